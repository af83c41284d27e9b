// Package domain contains the core entities of the Katalog parts catalog: figures,
// their hotspot records, part info and estimation items.
package domain

import (
	"math"
	"strings"
)

// CoordinateFormat selects how hotspot coordinates are encoded in the source data.
type CoordinateFormat string

const (
	// CoordinatesList is a ';'-separated list of bracketed pairs: "[x1,y1];[x2,y2]".
	CoordinatesList CoordinateFormat = "list"
	// CoordinatesSingle is one x,y pair in separate columns.
	CoordinatesSingle CoordinateFormat = "single"
)

// Point is a position in image-natural pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both components are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// HotspotRecord places one part on one figure at one or more points.
type HotspotRecord struct {
	FigureID    string  `json:"figure"`
	PartCode    string  `json:"kodepart"`
	Coordinates []Point `json:"coordinates"`
}

// Placeable reports whether the record has at least one usable coordinate.
func (r HotspotRecord) Placeable() bool {
	return len(r.Coordinates) > 0
}

// FigureImage maps a figure to its exploded-view drawing.
type FigureImage struct {
	FigureID string `json:"figure"`
	URL      string `json:"image"`
}

// ImageProbe describes a figure image as measured by the server.
type ImageProbe struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	BlurHash string `json:"blurhash,omitempty"`
}

// FigureMatcher compares figure identifiers. Both sides are trimmed; comparison
// is case-insensitive unless CaseSensitive is set.
type FigureMatcher struct {
	CaseSensitive bool
}

// Match reports whether two figure ids refer to the same figure.
func (m FigureMatcher) Match(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if m.CaseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// Key returns the canonical map key for a figure id under this matcher.
func (m FigureMatcher) Key(figureID string) string {
	figureID = strings.TrimSpace(figureID)
	if m.CaseSensitive {
		return figureID
	}
	return strings.ToLower(figureID)
}
