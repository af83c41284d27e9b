package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/normalize"
)

// Report counts what was skipped while parsing a catalog.
type Report struct {
	Images             int `json:"images"`
	Hotspots           int `json:"hotspots"`
	Parts              int `json:"parts"`
	DroppedRows        int `json:"dropped_rows"`
	InvalidCoordinates int `json:"invalid_coordinates"`
	UnplaceableRecords int `json:"unplaceable_records"`
}

// ParseCoordinateList parses "[x1,y1];[x2,y2]". Pairs that do not parse are
// skipped and counted in invalid.
func ParseCoordinateList(raw string) (points []domain.Point, invalid int) {
	for _, chunk := range strings.Split(raw, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		chunk = strings.TrimSuffix(strings.TrimPrefix(chunk, "["), "]")
		xs, ys, ok := strings.Cut(chunk, ",")
		if !ok {
			invalid++
			continue
		}
		p, ok := ParsePoint(xs, ys)
		if !ok {
			invalid++
			continue
		}
		points = append(points, p)
	}
	return points, invalid
}

// ParseCoordinates reads the coordinates of a hotspot row. In list format the
// koordinat column wins and the x/y pair is the fallback; single format only
// reads the pair.
func ParseCoordinates(row Row, format domain.CoordinateFormat) (points []domain.Point, invalid int) {
	if format == domain.CoordinatesList {
		if list := row.Get(colCoordinates...); list != "" {
			return ParseCoordinateList(list)
		}
	}

	xs, ys := row.Get(colX...), row.Get(colY...)
	if xs == "" && ys == "" {
		return nil, 0
	}
	p, ok := ParsePoint(xs, ys)
	if !ok {
		return nil, 1
	}
	return []domain.Point{p}, 0
}

// ParsePoint parses one x,y pair of decimal strings.
func ParsePoint(xs, ys string) (domain.Point, bool) {
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return domain.Point{}, false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return domain.Point{}, false
	}
	p := domain.Point{X: x, Y: y}
	return p, p.Finite()
}

// ParsePrice parses a harga cell into whole currency units. A trailing one or
// two digit group after "." or "," is a fraction and is rounded away. Values
// that do not parse, and negative prices, yield 0.
func ParsePrice(v any) int64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return 0
		}
		return int64(math.Round(t))
	case int64:
		return max(t, 0)
	case int:
		return int64(max(t, 0))
	}

	s := stringify(v)
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp"))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimPrefix(s, ".")
	if s == "" || strings.HasPrefix(s, "-") {
		return 0
	}

	var roundUp bool
	if m := priceFraction.FindStringSubmatch(s); m != nil {
		s = strings.TrimSuffix(s, m[0])
		roundUp = (len(m[1]) == 1 && m[1] >= "5") || m[1] >= "50"
	}
	// Grouped thousands: "12.500" or "12,500".
	n, err := strconv.ParseUint(strings.NewReplacer(".", "", ",", "").Replace(s), 10, 63)
	if err != nil {
		return 0
	}
	if roundUp {
		n++
	}
	return int64(n)
}

var priceFraction = regexp.MustCompile(`[.,](\d{1,2})$`)

func hotspotFromRow(row Row, format domain.CoordinateFormat, rep *Report) (domain.HotspotRecord, bool) {
	rec := domain.HotspotRecord{
		FigureID: row.Get(colFigure...),
		PartCode: row.Get(colPartCode...),
	}
	if rec.FigureID == "" || rec.PartCode == "" {
		rep.DroppedRows++
		return rec, false
	}

	points, invalid := ParseCoordinates(row, format)
	rec.Coordinates = points
	rep.InvalidCoordinates += invalid

	if !rec.Placeable() {
		rep.UnplaceableRecords++
	}
	return rec, true
}

func partFromRow(row Row, rep *Report) (domain.PartInfo, bool) {
	code := row.Get(colPartCode...)
	if code == "" {
		rep.DroppedRows++
		return domain.PartInfo{}, false
	}

	var price any
	for _, name := range colPrice {
		if v, ok := row.lookup(name); ok {
			price = v
			break
		}
	}

	return domain.PartInfo{
		Code:        code,
		Description: normalize.PlainText(row.Get(colDescription...)),
		Price:       ParsePrice(price),
	}, true
}

func imageFromRow(row Row, rep *Report) (domain.FigureImage, bool) {
	img := domain.FigureImage{
		FigureID: row.Get(colFigure...),
		URL:      row.Get(colImage...),
	}
	if img.FigureID == "" {
		rep.DroppedRows++
		return img, false
	}
	return img, true
}

// Build turns raw rows into a catalog. It never fails: unusable rows are
// dropped and counted in the report.
func Build(images, hotspots, parts []Row, format domain.CoordinateFormat) (*domain.Catalog, Report) {
	var rep Report
	c := &domain.Catalog{Parts: domain.PartMap{}}

	for _, row := range images {
		if img, ok := imageFromRow(row, &rep); ok {
			c.Images = append(c.Images, img)
		}
	}
	for _, row := range hotspots {
		if rec, ok := hotspotFromRow(row, format, &rep); ok {
			c.Hotspots = append(c.Hotspots, rec)
		}
	}
	for _, row := range parts {
		if p, ok := partFromRow(row, &rep); ok {
			c.Parts.Add(p)
		}
	}

	rep.Images = len(c.Images)
	rep.Hotspots = len(c.Hotspots)
	rep.Parts = len(c.Parts)
	return c, rep
}
