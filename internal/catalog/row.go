// Package catalog loads the three source collections (figure images, hotspot
// records, part info) and turns them into a domain.Catalog.
package catalog

import (
	"context"
	"strconv"
	"strings"
)

// Collection names one of the source collections.
type Collection string

// Source collections.
const (
	CollectionImages   Collection = "images"
	CollectionHotspots Collection = "hotspots"
	CollectionParts    Collection = "parts"
)

// Collections lists every collection a catalog is built from.
var Collections = []Collection{CollectionImages, CollectionHotspots, CollectionParts}

// Row is one spreadsheet-style record. Header names are matched case-insensitively.
type Row map[string]any

// Source fetches raw rows for a collection.
type Source interface {
	Fetch(ctx context.Context, c Collection) ([]Row, error)
	Name() string
}

// Column aliases seen in catalog exports.
var (
	colFigure      = []string{"figure", "fig", "figure_id"}
	colPartCode    = []string{"kodepart", "kode_part", "part_code", "partcode"}
	colCoordinates = []string{"koordinat", "coordinates", "coords"}
	colX           = []string{"x"}
	colY           = []string{"y"}
	colDescription = []string{"deskripsi", "description", "nama"}
	colPrice       = []string{"harga", "price"}
	colImage       = []string{"image", "gambar", "img", "url"}
)

// Get returns the first non-empty value among the given column names, as a
// trimmed string. Numbers are formatted without exponent or trailing zeros.
func (r Row) Get(names ...string) string {
	for _, name := range names {
		if v, ok := r.lookup(name); ok {
			if s := stringify(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func (r Row) lookup(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return v, true
		}
	}
	return nil, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return ""
	}
}
