package domain

import (
	"slices"
	"time"
)

// Catalog is one consistent snapshot of the three source collections.
type Catalog struct {
	Revision  string          `json:"revision"`
	FetchedAt time.Time       `json:"fetched_at"`
	Images    []FigureImage   `json:"images"`
	Hotspots  []HotspotRecord `json:"hotspots"`
	Parts     PartMap         `json:"parts"`
}

// ResolveImage returns the image URL of the first image entry matching the figure.
func (c *Catalog) ResolveImage(figureID string, m FigureMatcher) (string, bool) {
	for _, img := range c.Images {
		if m.Match(img.FigureID, figureID) && img.URL != "" {
			return img.URL, true
		}
	}
	return "", false
}

// HotspotsFor returns the records belonging to a figure, in source order.
func (c *Catalog) HotspotsFor(figureID string, m FigureMatcher) []HotspotRecord {
	var out []HotspotRecord
	for _, rec := range c.Hotspots {
		if m.Match(rec.FigureID, figureID) {
			out = append(out, rec)
		}
	}
	return out
}

// Figures lists the distinct figure ids that have an image, sorted.
func (c *Catalog) Figures(m FigureMatcher) []string {
	seen := make(map[string]bool)
	var out []string
	for _, img := range c.Images {
		key := m.Key(img.FigureID)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, img.FigureID)
	}
	slices.Sort(out)
	return out
}

// FiguresForPart lists the figures a part code appears on, in first-seen order.
func (c *Catalog) FiguresForPart(code string, m FigureMatcher) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range c.Hotspots {
		if rec.PartCode != code {
			continue
		}
		key := m.Key(rec.FigureID)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec.FigureID)
	}
	return out
}
