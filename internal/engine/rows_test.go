package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/id"
)

func TestBuildRowIndex(t *testing.T) {
	records := append(testRecords(), domain.HotspotRecord{
		FigureID: testFigure, PartCode: "P-1", Coordinates: []domain.Point{{X: 5, Y: 5}},
	})

	ix := BuildRowIndex(records, testParts(), testFigure, domain.FigureMatcher{}, id.NewSequence("el"))

	require.Equal(t, 4, ix.Len())
	codes := make([]string, 0, ix.Len())
	for _, row := range ix.Rows() {
		codes = append(codes, row.PartCode)
	}
	assert.Equal(t, []string{"P-1", "P-2", "P-3", "P-1"}, codes)

	first, ok := ix.Row("P-1")
	require.True(t, ok)
	assert.Equal(t, ix.Rows()[0], first, "repeated part code maps to its first row")

	malformed, ok := ix.Row("P-3")
	require.True(t, ok)
	assert.False(t, malformed.Positioned)
	assert.Equal(t, "-", malformed.Description)
	assert.Zero(t, malformed.Price)

	p2, _ := ix.Row("P-2")
	assert.Equal(t, RowView{ID: p2.ID, PartCode: "P-2", Description: "GASKET", Price: 12000, Qty: 1, Positioned: true}, p2.View())

	byID, ok := ix.ByID(p2.ID)
	require.True(t, ok)
	assert.Same(t, p2, byID)

	_, ok = ix.Row("P-4")
	assert.False(t, ok, "other figures are excluded")
}

func TestBuildRowIndex_EmptyFigure(t *testing.T) {
	ix := BuildRowIndex(testRecords(), testParts(), "F-404", domain.FigureMatcher{}, id.NewSequence("el"))

	assert.Zero(t, ix.Len())
	assert.Empty(t, ix.Ops())
}

func TestRowIndex_BindAndDestroy(t *testing.T) {
	ix := BuildRowIndex(testRecords(), testParts(), testFigure, domain.FigureMatcher{}, id.NewSequence("el"))
	b := NewBindings()

	var clicked, added []string
	ix.Bind(b, RowHandlers{
		Click: func(r *Row, _ Event) { clicked = append(clicked, r.PartCode) },
		Add:   func(r *Row, _ Event) { added = append(added, r.PartCode) },
	})
	assert.Equal(t, 2*ix.Len(), b.Len())

	row, _ := ix.Row("P-2")
	b.Dispatch(Event{Type: EventRowClick, Target: row.ID})
	b.Dispatch(Event{Type: EventAddToEstimation, Target: row.ID})
	b.Dispatch(Event{Type: EventQtyChange, Target: row.ID})

	assert.Equal(t, []string{"P-2"}, clicked)
	assert.Equal(t, []string{"P-2"}, added)

	ix.Destroy()
	assert.Zero(t, b.Len())
}

func TestRow_Item(t *testing.T) {
	row := &Row{PartCode: "P-1", Description: "BOLT", Price: 4500}
	assert.Equal(t, domain.EstimationItem{PartCode: "P-1", Description: "BOLT", Qty: 3, Price: 4500}, row.Item(3))
}
