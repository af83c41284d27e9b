package engine

import (
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/id"
)

const unknownDescription = "-"

// Row is one table row of the figure's parts list.
type Row struct {
	ID          string
	PartCode    string
	Description string
	Price       int64
	Qty         int
	// Positioned is false for records without a usable coordinate.
	Positioned bool

	releases []func()
}

// View returns the client representation of the row.
func (r *Row) View() RowView {
	return RowView{
		ID:          r.ID,
		PartCode:    r.PartCode,
		Description: r.Description,
		Price:       r.Price,
		Qty:         r.Qty,
		Positioned:  r.Positioned,
	}
}

// Item returns the estimation payload for the row at the given quantity.
func (r *Row) Item(qty int) domain.EstimationItem {
	return domain.EstimationItem{
		PartCode:    r.PartCode,
		Description: r.Description,
		Qty:         qty,
		Price:       r.Price,
	}
}

// RowHandlers are the reactions wired to every row.
type RowHandlers struct {
	Click     func(*Row, Event)
	QtyChange func(*Row, Event)
	Add       func(*Row, Event)
}

// RowIndex maps part codes to table rows for one render of the table.
type RowIndex struct {
	rows   []*Row
	byPart map[string]*Row
	byID   map[string]*Row
}

// BuildRowIndex creates one row per record of figureID, in record order.
// A part code repeated across records maps to its first row.
func BuildRowIndex(records []domain.HotspotRecord, parts domain.PartLookup, figureID string, matcher domain.FigureMatcher, ids *id.Sequence) *RowIndex {
	ix := &RowIndex{
		byPart: make(map[string]*Row),
		byID:   make(map[string]*Row),
	}

	for _, rec := range records {
		if !matcher.Match(rec.FigureID, figureID) {
			continue
		}

		row := &Row{
			ID:          ids.Next(),
			PartCode:    rec.PartCode,
			Description: unknownDescription,
			Qty:         1,
			Positioned:  rec.Placeable(),
		}
		if info, ok := parts.Part(rec.PartCode); ok {
			if info.Description != "" {
				row.Description = info.Description
			}
			row.Price = info.Price
		}

		ix.rows = append(ix.rows, row)
		ix.byID[row.ID] = row
		if _, exists := ix.byPart[row.PartCode]; !exists {
			ix.byPart[row.PartCode] = row
		}
	}

	return ix
}

// Bind registers the row handlers for every row.
func (ix *RowIndex) Bind(b *Bindings, h RowHandlers) {
	for _, row := range ix.rows {
		if h.Click != nil {
			row.releases = append(row.releases, b.On(EventRowClick, row.ID, func(ev Event) { h.Click(row, ev) }))
		}
		if h.QtyChange != nil {
			row.releases = append(row.releases, b.On(EventQtyChange, row.ID, func(ev Event) { h.QtyChange(row, ev) }))
		}
		if h.Add != nil {
			row.releases = append(row.releases, b.On(EventAddToEstimation, row.ID, func(ev Event) { h.Add(row, ev) }))
		}
	}
}

// Ops returns the row_add instructions for the whole table.
func (ix *RowIndex) Ops() []Op {
	ops := make([]Op, 0, len(ix.rows))
	for _, row := range ix.rows {
		v := row.View()
		ops = append(ops, Op{Kind: OpRowAdd, Target: row.ID, PartCode: row.PartCode, Row: &v})
	}
	return ops
}

// Row returns the row for a part code.
func (ix *RowIndex) Row(partCode string) (*Row, bool) {
	row, ok := ix.byPart[partCode]
	return row, ok
}

// ByID returns the row with the given element id.
func (ix *RowIndex) ByID(rowID string) (*Row, bool) {
	row, ok := ix.byID[rowID]
	return row, ok
}

// Rows returns all rows in table order.
func (ix *RowIndex) Rows() []*Row {
	return ix.rows
}

// Len returns the number of rows.
func (ix *RowIndex) Len() int {
	return len(ix.rows)
}

// Destroy releases every row binding.
func (ix *RowIndex) Destroy() {
	for _, row := range ix.rows {
		row.releases = releaseAll(row.releases)
	}
}
