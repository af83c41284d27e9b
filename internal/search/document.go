package search

import (
	"strings"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/normalize"
)

// PartDocument is the indexed form of one catalog part.
type PartDocument struct {
	Code        string
	Description string
	Price       int64
	Figures     []string
}

// ToMap converts the document to the field layout of the index mapping.
func (d *PartDocument) ToMap() map[string]any {
	figureKeys := make([]string, len(d.Figures))
	for i, f := range d.Figures {
		figureKeys[i] = figureKey(f)
	}

	return map[string]any{
		"code":        d.Code,
		"code_key":    strings.ToLower(d.Code),
		"description": d.Description,
		"search_text": normalize.Fold(d.Description),
		"price":       float64(d.Price),
		"figures":     d.Figures,
		"figure_keys": figureKeys,
	}
}

// DocumentsFromCatalog builds one document per part, listing the figures each
// part appears on. Parts that only occur in hotspot records are included with
// an empty description.
func DocumentsFromCatalog(c *domain.Catalog, m domain.FigureMatcher) []*PartDocument {
	docs := make(map[string]*PartDocument, len(c.Parts))
	order := make([]string, 0, len(c.Parts))

	doc := func(code string) *PartDocument {
		code = strings.TrimSpace(code)
		if d, ok := docs[code]; ok {
			return d
		}
		d := &PartDocument{Code: code}
		if p, ok := c.Parts.Part(code); ok {
			d.Description = p.Description
			d.Price = p.Price
		}
		docs[code] = d
		order = append(order, code)
		return d
	}

	for code := range c.Parts {
		doc(code)
	}
	for _, rec := range c.Hotspots {
		d := doc(rec.PartCode)
		if !containsFigure(d.Figures, rec.FigureID, m) {
			d.Figures = append(d.Figures, strings.TrimSpace(rec.FigureID))
		}
	}

	out := make([]*PartDocument, 0, len(order))
	for _, code := range order {
		out = append(out, docs[code])
	}
	return out
}

func containsFigure(figures []string, id string, m domain.FigureMatcher) bool {
	for _, f := range figures {
		if m.Match(f, id) {
			return true
		}
	}
	return false
}

// figureKey is how figure ids are indexed and queried. Figure filtering in
// search is always case-insensitive.
func figureKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
