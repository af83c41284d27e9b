package engine

import (
	"log/slog"
	"time"

	"github.com/katalogpart/katalog-server/internal/domain"
)

// Scheduler runs fn after d on the owner's event loop. cancel prevents a
// pending fn from running.
type Scheduler interface {
	After(d time.Duration, fn func()) (cancel func())
}

// SyncController keeps markers and rows in step: a marker click brings its
// row into view, a row click brings its marker into view. At most one row is
// highlighted at any time.
type SyncController struct {
	opts    Options
	r       Renderer
	sched   Scheduler
	markers *MarkerLayer
	rows    *RowIndex
	frame   func() Frame
	logger  *slog.Logger

	targets map[string]domain.Point

	highlighted     *Row
	highlightClass  string
	cancelHighlight func()

	glowing    []string
	cancelGlow func()
}

// NewSyncController wires markers and rows together. frame reports the latest
// measured layout.
func NewSyncController(opts Options, r Renderer, sched Scheduler, markers *MarkerLayer, rows *RowIndex, frame func() Frame, logger *slog.Logger) *SyncController {
	return &SyncController{
		opts:    opts,
		r:       r,
		sched:   sched,
		markers: markers,
		rows:    rows,
		frame:   frame,
		logger:  logger,
	}
}

// SetTargets replaces the part code -> scroll target map after a rebuild.
// Glow state is dropped since the glowing markers no longer exist.
func (c *SyncController) SetTargets(targets map[string]domain.Point) {
	c.targets = targets
	if c.cancelGlow != nil {
		c.cancelGlow()
		c.cancelGlow = nil
	}
	c.glowing = nil
}

// MarkerClicked scrolls the part's row into view and flashes it.
func (c *SyncController) MarkerClicked(partCode string) {
	row, ok := c.rows.Row(partCode)
	if !ok {
		c.logger.Debug("marker without row", "part", partCode)
		return
	}

	c.clearHighlight()
	c.r.Render(
		Op{Kind: OpScrollIntoView, Target: row.ID, Block: "center"},
		Op{Kind: OpClassAdd, Target: row.ID, Class: ClassRowHighlight},
	)
	c.highlighted = row
	c.highlightClass = ClassRowHighlight
	c.cancelHighlight = c.sched.After(c.opts.RowHighlightDuration, func() {
		c.cancelHighlight = nil
		c.clearHighlight()
	})
}

// RowClicked scrolls the figure to the row's part, marks the row active and
// makes every marker of the part glow. Clicks on the quantity input or the
// cart action are ignored.
func (c *SyncController) RowClicked(row *Row, ev Event) {
	if ev.fromExcludedTarget() {
		return
	}

	if target, ok := c.targets[row.PartCode]; ok {
		top := c.opts.scrollTop(target.Y, c.frame().Geometry.ContainerHeight)
		c.r.Render(Op{Kind: OpScrollContainer, Top: &top})
	}

	c.clearHighlight()
	c.r.Render(Op{Kind: OpClassAdd, Target: row.ID, Class: ClassRowActive})
	c.highlighted = row
	c.highlightClass = ClassRowActive

	c.clearGlow()
	markers := c.markers.MarkersFor(row.PartCode)
	if len(markers) == 0 {
		return
	}
	ops := make([]Op, 0, len(markers))
	for _, m := range markers {
		c.glowing = append(c.glowing, m.ID)
		ops = append(ops, Op{Kind: OpClassAdd, Target: m.ID, Class: ClassMarkerGlow})
	}
	c.r.Render(ops...)
	c.cancelGlow = c.sched.After(c.opts.MarkerGlowDuration, func() {
		c.cancelGlow = nil
		c.clearGlow()
	})
}

// HighlightedRow returns the id of the highlighted row, or "".
func (c *SyncController) HighlightedRow() string {
	if c.highlighted == nil {
		return ""
	}
	return c.highlighted.ID
}

// Glowing returns the ids of the markers currently glowing.
func (c *SyncController) Glowing() []string {
	return c.glowing
}

// Reset drops all highlight state and pending timers without rendering.
func (c *SyncController) Reset() {
	if c.cancelHighlight != nil {
		c.cancelHighlight()
		c.cancelHighlight = nil
	}
	if c.cancelGlow != nil {
		c.cancelGlow()
		c.cancelGlow = nil
	}
	c.highlighted = nil
	c.glowing = nil
}

func (c *SyncController) clearHighlight() {
	if c.cancelHighlight != nil {
		c.cancelHighlight()
		c.cancelHighlight = nil
	}
	if c.highlighted == nil {
		return
	}
	c.r.Render(Op{Kind: OpClassRemove, Target: c.highlighted.ID, Class: c.highlightClass})
	c.highlighted = nil
	c.highlightClass = ""
}

func (c *SyncController) clearGlow() {
	if c.cancelGlow != nil {
		c.cancelGlow()
		c.cancelGlow = nil
	}
	if len(c.glowing) == 0 {
		return
	}
	ops := make([]Op, 0, len(c.glowing))
	for _, markerID := range c.glowing {
		ops = append(ops, Op{Kind: OpClassRemove, Target: markerID, Class: ClassMarkerGlow})
	}
	c.r.Render(ops...)
	c.glowing = nil
}
