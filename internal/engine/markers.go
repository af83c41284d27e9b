package engine

import (
	"log/slog"
	"maps"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/id"
	"github.com/katalogpart/katalog-server/internal/normalize"
)

const defaultTooltip = "Info"

// Marker is a clickable indicator over the figure image for one coordinate of a part.
type Marker struct {
	ID       string
	PartCode string
	Tooltip  string
	Position domain.Point

	release func()
}

// Frame is what the marker layer needs to know about the mounted view.
type Frame struct {
	Geometry Geometry
	// Attached is false until the figure view is mounted and measured.
	Attached bool
}

// MarkerLayer owns every marker of one figure view. Only markers created by
// the layer are ever removed by it.
type MarkerLayer struct {
	tag      string
	ids      *id.Sequence
	r        Renderer
	bindings *Bindings
	matcher  domain.FigureMatcher
	onClick  func(partCode string)
	logger   *slog.Logger

	markers []*Marker
	byPart  map[string][]*Marker
	targets map[string]domain.Point
}

// NewMarkerLayer creates an empty layer. tag identifies the layer's markers
// on the client; onClick receives the part code of a clicked marker.
func NewMarkerLayer(tag string, r Renderer, bindings *Bindings, matcher domain.FigureMatcher, onClick func(string), logger *slog.Logger) *MarkerLayer {
	return &MarkerLayer{
		tag:      tag,
		ids:      id.NewSequence(tag),
		r:        r,
		bindings: bindings,
		matcher:  matcher,
		onClick:  onClick,
		logger:   logger,
		byPart:   make(map[string][]*Marker),
	}
}

// Rebuild discards the layer's markers and places one marker per coordinate of
// every record belonging to figureID. It returns part code -> position of the
// part's first placed coordinate. When the view is not attached or not
// measurable yet nothing happens and the current targets are returned, nil if
// the layer was never built.
func (l *MarkerLayer) Rebuild(frame Frame, records []domain.HotspotRecord, parts domain.PartLookup, figureID string) map[string]domain.Point {
	if !frame.Attached {
		return maps.Clone(l.targets)
	}
	if _, err := frame.Geometry.Scale(); err != nil {
		l.logger.Debug("skipping marker rebuild", "figure", figureID, "error", err)
		return maps.Clone(l.targets)
	}

	l.clear()
	ops := []Op{{Kind: OpMarkersClear, Layer: l.tag}}

	for _, rec := range records {
		if !l.matcher.Match(rec.FigureID, figureID) {
			continue
		}
		tooltip := defaultTooltip
		if info, ok := parts.Part(rec.PartCode); ok {
			if t := normalize.TitleCase(info.Description); t != "" {
				tooltip = t
			}
		}

		for _, pt := range rec.Coordinates {
			pos, err := Transform(frame.Geometry, pt)
			if err != nil {
				continue
			}
			m := l.place(rec.PartCode, tooltip, pos)
			ops = append(ops, Op{
				Kind:           OpMarkerAdd,
				Target:         m.ID,
				Layer:          l.tag,
				PartCode:       m.PartCode,
				Tooltip:        m.Tooltip,
				Position:       &pos,
				PreventDefault: true,
			})
		}
	}

	l.r.Render(ops...)
	instruments().rebuilds.Add(bgCtx, 1)
	instruments().markers.Add(bgCtx, int64(len(l.markers)))

	return maps.Clone(l.targets)
}

func (l *MarkerLayer) place(partCode, tooltip string, pos domain.Point) *Marker {
	m := &Marker{
		ID:       l.ids.Next(),
		PartCode: partCode,
		Tooltip:  tooltip,
		Position: pos,
	}
	m.release = l.bindings.On(EventMarkerClick, m.ID, func(Event) {
		l.onClick(m.PartCode)
	})

	l.markers = append(l.markers, m)
	l.byPart[partCode] = append(l.byPart[partCode], m)
	if _, ok := l.targets[partCode]; !ok {
		l.targets[partCode] = pos
	}
	return m
}

func (l *MarkerLayer) clear() {
	for _, m := range l.markers {
		m.release()
	}
	l.markers = nil
	l.byPart = make(map[string][]*Marker)
	l.targets = make(map[string]domain.Point)
}

// Destroy removes every marker and releases their bindings.
func (l *MarkerLayer) Destroy() {
	if l.targets == nil {
		return
	}
	l.clear()
	l.targets = nil
	l.r.Render(Op{Kind: OpMarkersClear, Layer: l.tag})
}

// MarkersFor returns every marker of a part, in placement order.
func (l *MarkerLayer) MarkersFor(partCode string) []*Marker {
	return l.byPart[partCode]
}

// Len returns the number of markers currently placed.
func (l *MarkerLayer) Len() int {
	return len(l.markers)
}

// Markers returns the placed markers in placement order.
func (l *MarkerLayer) Markers() []*Marker {
	return l.markers
}
