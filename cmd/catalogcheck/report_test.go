package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/domain"
)

func testCatalog() *domain.Catalog {
	parts := domain.PartMap{}
	parts.Add(domain.PartInfo{Code: "P-1", Description: "Bolt", Price: 1200})
	parts.Add(domain.PartInfo{Code: "P-2", Description: "Washer", Price: 300})
	parts.Add(domain.PartInfo{Code: "P-9", Description: "Spare", Price: 50})

	return &domain.Catalog{
		Revision: "rev-1",
		Images: []domain.FigureImage{
			{FigureID: "FIG-A", URL: "https://img.test/a.png"},
		},
		Hotspots: []domain.HotspotRecord{
			{FigureID: "FIG-A", PartCode: "P-1", Coordinates: []domain.Point{{X: 10, Y: 20}}},
			{FigureID: "fig-a ", PartCode: "P-2"},
			{FigureID: "FIG-A", PartCode: "P-404", Coordinates: []domain.Point{{X: 1, Y: 1}}},
			{FigureID: "FIG-B", PartCode: "P-1", Coordinates: []domain.Point{{X: 5, Y: 5}}},
		},
		Parts: parts,
	}
}

func TestSummarize(t *testing.T) {
	s := summarize("sqlite", testCatalog(), catalog.Report{Images: 1, Hotspots: 4, Parts: 3, UnplaceableRecords: 1})

	require.Len(t, s.Figures, 1)
	assert.Equal(t, figureRow{ID: "FIG-A", Hotspots: 3, Unplaceable: 1, UnknownParts: 1}, s.Figures[0])
	assert.Equal(t, []string{"FIG-B"}, s.Orphans)
	assert.Equal(t, []unknownPart{{Code: "P-404", Figures: []string{"FIG-A"}}}, s.UnknownParts)
	assert.Equal(t, 1, s.UnusedParts)
	assert.Equal(t, 3, s.Problems())
}

func TestRender_Markdown(t *testing.T) {
	s := summarize("sqlite", testCatalog(), catalog.Report{Images: 1})

	out, err := render(s, "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Catalog check: sqlite")
	assert.Contains(t, out, "FIG-B")
	assert.Contains(t, out, "P-404 on FIG-A")
	assert.NotContains(t, out, "<li>")
}

func TestRender_HTML(t *testing.T) {
	out, err := render(summarize("http", testCatalog(), catalog.Report{}), "html")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Catalog check: http</h1>")
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := render(summary{}, "pdf")
	assert.Error(t, err)
}
