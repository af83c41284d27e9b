package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/id"
	"github.com/katalogpart/katalog-server/internal/logger"
)

type syncFixture struct {
	ctrl    *SyncController
	r       *recordingRenderer
	sched   *manualScheduler
	markers *MarkerLayer
	rows    *RowIndex
}

func newSyncFixture(t *testing.T, opts Options) *syncFixture {
	t.Helper()
	r := &recordingRenderer{}
	b := NewBindings()
	sched := &manualScheduler{}
	f := &syncFixture{r: r, sched: sched}

	f.markers = NewMarkerLayer("hs", r, b, domain.FigureMatcher{}, func(code string) { f.ctrl.MarkerClicked(code) }, logger.Discard())
	f.rows = BuildRowIndex(testRecords(), testParts(), testFigure, domain.FigureMatcher{}, id.NewSequence("el"))
	frame := attached()
	f.ctrl = NewSyncController(opts, r, sched, f.markers, f.rows, func() Frame { return frame }, logger.Discard())
	f.ctrl.SetTargets(f.markers.Rebuild(frame, testRecords(), testParts(), testFigure))
	r.Reset()
	return f
}

func (f *syncFixture) row(t *testing.T, code string) *Row {
	t.Helper()
	row, ok := f.rows.Row(code)
	require.True(t, ok)
	return row
}

func TestSync_MarkerClickFlashesRow(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-2")

	f.ctrl.MarkerClicked("P-2")

	assert.Equal(t, []Op{
		{Kind: OpScrollIntoView, Target: row.ID, Block: "center"},
		{Kind: OpClassAdd, Target: row.ID, Class: ClassRowHighlight},
	}, f.r.Ops())
	assert.Equal(t, row.ID, f.ctrl.HighlightedRow())

	f.r.Reset()
	assert.Equal(t, 1, f.sched.FireAll())
	assert.Equal(t, []Op{{Kind: OpClassRemove, Target: row.ID, Class: ClassRowHighlight}}, f.r.Ops())
	assert.Empty(t, f.ctrl.HighlightedRow())
}

func TestSync_RowClickScrollsAndGlowsAllMarkers(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-2")

	f.ctrl.RowClicked(row, Event{Type: EventRowClick, Target: row.ID, Classes: []string{"desc"}})

	scrolls := f.r.Of(OpScrollContainer)
	require.Len(t, scrolls, 1)
	// Target y is 25, container is 300 tall: 25-150 clamps to 0.
	assert.Zero(t, *scrolls[0].Top)

	assert.Equal(t, row.ID, f.ctrl.HighlightedRow())
	assert.Len(t, f.ctrl.Glowing(), 3)
	assert.Len(t, f.r.Of(OpClassAdd), 4, "row plus three markers")

	f.r.Reset()
	f.sched.FireAll()
	assert.Len(t, f.r.Of(OpClassRemove), 3)
	assert.Empty(t, f.ctrl.Glowing())
	assert.Equal(t, row.ID, f.ctrl.HighlightedRow(), "row stays active after the glow ends")
}

func TestSync_ScrollModes(t *testing.T) {
	opts := DefaultOptions()
	opts.ScrollCenterMode = ScrollFixedOffset
	f := newSyncFixture(t, opts)
	f.ctrl.SetTargets(map[string]domain.Point{"P-1": {X: 110, Y: 470}})

	row := f.row(t, "P-1")
	f.ctrl.RowClicked(row, Event{Type: EventRowClick, Target: row.ID})

	scrolls := f.r.Of(OpScrollContainer)
	require.Len(t, scrolls, 1)
	assert.InDelta(t, 370, *scrolls[0].Top, 1e-9)

	center := newSyncFixture(t, DefaultOptions())
	center.ctrl.SetTargets(map[string]domain.Point{"P-1": {X: 110, Y: 470}})
	center.ctrl.RowClicked(center.row(t, "P-1"), Event{Type: EventRowClick})

	scrolls = center.r.Of(OpScrollContainer)
	require.Len(t, scrolls, 1)
	assert.InDelta(t, 320, *scrolls[0].Top, 1e-9)
}

func TestSync_ExcludedTargetsAreIgnored(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-1")

	for _, class := range []string{ClassQtyInput, ClassCartAction} {
		f.ctrl.RowClicked(row, Event{Type: EventRowClick, Target: row.ID, Classes: []string{"icon", class}})
	}

	assert.Empty(t, f.r.Ops())
	assert.Empty(t, f.ctrl.HighlightedRow())
}

func TestSync_HighlightExclusivity(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	p1, p2 := f.row(t, "P-1"), f.row(t, "P-2")

	f.ctrl.MarkerClicked("P-1")
	f.ctrl.RowClicked(p2, Event{Type: EventRowClick, Target: p2.ID})
	f.ctrl.MarkerClicked("P-1")

	// Replay the class ops and check at most one row is ever highlighted.
	active := map[string]bool{}
	rowIDs := map[string]bool{p1.ID: true, p2.ID: true}
	for _, op := range f.r.Ops() {
		if !rowIDs[op.Target] {
			continue
		}
		switch op.Kind {
		case OpClassAdd:
			active[op.Target] = true
		case OpClassRemove:
			delete(active, op.Target)
		}
		assert.LessOrEqual(t, len(active), 1)
	}
	assert.Equal(t, map[string]bool{p1.ID: true}, active)
	assert.Equal(t, p1.ID, f.ctrl.HighlightedRow())
}

func TestSync_StaleTimerDoesNotClearNewHighlight(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-1")

	f.ctrl.MarkerClicked("P-1")
	f.ctrl.MarkerClicked("P-1")

	assert.Equal(t, 1, f.sched.Live(), "first expiry was cancelled")
	f.sched.FireAll()
	assert.Empty(t, f.ctrl.HighlightedRow())

	f.ctrl.MarkerClicked("P-1")
	f.ctrl.RowClicked(row, Event{Type: EventRowClick})
	f.r.Reset()
	f.sched.FireAll()
	assert.Equal(t, row.ID, f.ctrl.HighlightedRow(), "flash expiry must not clear the active row")
}

func TestSync_UnpositionedRowOnlyHighlights(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-3")

	f.ctrl.RowClicked(row, Event{Type: EventRowClick, Target: row.ID})

	assert.Empty(t, f.r.Of(OpScrollContainer))
	assert.Equal(t, []Op{{Kind: OpClassAdd, Target: row.ID, Class: ClassRowActive}}, f.r.Ops())
}

func TestSync_MarkerClickThroughBindings(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	marker := f.markers.MarkersFor("P-1")[0]

	f.markers.bindings.Dispatch(Event{Type: EventMarkerClick, Target: marker.ID})

	assert.Equal(t, f.row(t, "P-1").ID, f.ctrl.HighlightedRow())
}

func TestSync_ResetDropsState(t *testing.T) {
	f := newSyncFixture(t, DefaultOptions())
	row := f.row(t, "P-2")
	f.ctrl.RowClicked(row, Event{Type: EventRowClick})
	f.r.Reset()

	f.ctrl.Reset()

	assert.Zero(t, f.sched.Live())
	assert.Empty(t, f.ctrl.HighlightedRow())
	assert.Empty(t, f.r.Ops())
}
