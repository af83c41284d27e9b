package main

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/normalize"
)

// figureRow is one line of the per-figure table.
type figureRow struct {
	ID           string
	Hotspots     int
	Unplaceable  int
	UnknownParts int
}

// unknownPart is a placed part code with no parts entry.
type unknownPart struct {
	Code    string
	Figures []string
}

// summary is everything catalogcheck reports about one load.
type summary struct {
	Source       string
	Revision     string
	Report       catalog.Report
	Figures      []figureRow
	Orphans      []string      // figures with hotspots but no image
	UnknownParts []unknownPart // placed on a figure but absent from parts
	UnusedParts  int
}

// Problems counts findings that keep part of the catalog from rendering.
func (s summary) Problems() int {
	return len(s.Orphans) + len(s.UnknownParts) + s.Report.InvalidCoordinates + s.Report.UnplaceableRecords
}

func summarize(source string, cat *domain.Catalog, report catalog.Report) summary {
	m := domain.FigureMatcher{}
	s := summary{Source: source, Revision: cat.Revision, Report: report}

	withImage := make(map[string]bool)
	for _, id := range cat.Figures(m) {
		withImage[m.Key(id)] = true
		row := figureRow{ID: id}
		for _, rec := range cat.HotspotsFor(id, m) {
			row.Hotspots++
			if !rec.Placeable() {
				row.Unplaceable++
			}
			if _, ok := cat.Parts.Part(rec.PartCode); !ok {
				row.UnknownParts++
			}
		}
		s.Figures = append(s.Figures, row)
	}

	used := make(map[string]bool)
	orphans := make(map[string]bool)
	unknown := make(map[string]bool)
	for _, rec := range cat.Hotspots {
		used[rec.PartCode] = true
		if key := m.Key(rec.FigureID); key != "" && !withImage[key] && !orphans[key] {
			orphans[key] = true
			s.Orphans = append(s.Orphans, rec.FigureID)
		}
		if _, ok := cat.Parts.Part(rec.PartCode); !ok && rec.PartCode != "" && !unknown[rec.PartCode] {
			unknown[rec.PartCode] = true
			s.UnknownParts = append(s.UnknownParts, unknownPart{
				Code:    rec.PartCode,
				Figures: cat.FiguresForPart(rec.PartCode, m),
			})
		}
	}
	for code := range cat.Parts {
		if !used[code] {
			s.UnusedParts++
		}
	}

	slices.Sort(s.Orphans)
	slices.SortFunc(s.UnknownParts, func(a, b unknownPart) int {
		return strings.Compare(a.Code, b.Code)
	})
	return s
}

var reportTemplate = template.Must(template.New("report").Parse(`<h1>Catalog check: {{.Source}}</h1>
<p>Revision <code>{{.Revision}}</code></p>
<h2>Collections</h2>
<ul>
<li>Images: {{.Report.Images}}</li>
<li>Hotspots: {{.Report.Hotspots}}</li>
<li>Parts: {{.Report.Parts}}</li>
<li>Dropped rows: {{.Report.DroppedRows}}</li>
<li>Invalid coordinates: {{.Report.InvalidCoordinates}}</li>
<li>Unplaceable records: {{.Report.UnplaceableRecords}}</li>
<li>Parts never placed: {{.UnusedParts}}</li>
</ul>
<h2>Figures</h2>
<table>
<thead><tr><th>Figure</th><th>Hotspots</th><th>Unplaceable</th><th>Unknown parts</th></tr></thead>
<tbody>
{{range .Figures}}<tr><td>{{.ID}}</td><td>{{.Hotspots}}</td><td>{{.Unplaceable}}</td><td>{{.UnknownParts}}</td></tr>
{{end}}</tbody>
</table>
{{if .Orphans}}<h2>Figures without an image</h2>
<ul>
{{range .Orphans}}<li>{{.}}</li>
{{end}}</ul>
{{end}}{{if .UnknownParts}}<h2>Part codes missing from parts</h2>
<ul>
{{range .UnknownParts}}<li>{{.Code}} on {{range $i, $f := .Figures}}{{if $i}}, {{end}}{{$f}}{{end}}</li>
{{end}}</ul>
{{end}}`))

// render writes the summary as HTML, converted to Markdown unless html is asked for.
func render(s summary, format string) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, s); err != nil {
		return "", err
	}
	switch format {
	case "html":
		return buf.String(), nil
	case "markdown", "md", "":
		return normalize.Markdown(buf.String()), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}
