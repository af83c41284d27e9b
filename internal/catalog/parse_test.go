package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
)

func TestRow_GetCaseInsensitive(t *testing.T) {
	row := Row{"Figure": " A-12 ", "KodePart": 90210.0, "Harga": int64(5)}

	assert.Equal(t, "A-12", row.Get(colFigure...))
	assert.Equal(t, "90210", row.Get(colPartCode...))
	assert.Equal(t, "5", row.Get(colPrice...))
	assert.Empty(t, row.Get("missing"))
}

func TestParseCoordinateList(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        []domain.Point
		wantInvalid int
	}{
		{"two pairs", "[200,100];[350.5,80]", []domain.Point{{X: 200, Y: 100}, {X: 350.5, Y: 80}}, 0},
		{"spaces", " [ 1 , 2 ] ; [3,4] ", []domain.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, 0},
		{"bad pair skipped", "[1,2];[abc,4];[5,6]", []domain.Point{{X: 1, Y: 2}, {X: 5, Y: 6}}, 1},
		{"missing comma", "[12]", nil, 1},
		{"trailing separator", "[1,2];", []domain.Point{{X: 1, Y: 2}}, 0},
		{"empty", "", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, invalid := ParseCoordinateList(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantInvalid, invalid)
		})
	}
}

func TestParseCoordinates_Format(t *testing.T) {
	row := Row{"koordinat": "[1,2];[3,4]", "x": "9", "y": "8"}

	list, _ := ParseCoordinates(row, domain.CoordinatesList)
	assert.Len(t, list, 2)

	single, _ := ParseCoordinates(row, domain.CoordinatesSingle)
	assert.Equal(t, []domain.Point{{X: 9, Y: 8}}, single)

	fallback, _ := ParseCoordinates(Row{"x": 200.0, "y": 100.0}, domain.CoordinatesList)
	assert.Equal(t, []domain.Point{{X: 200, Y: 100}}, fallback)

	none, invalid := ParseCoordinates(Row{"x": "abc", "y": "1"}, domain.CoordinatesList)
	assert.Empty(t, none)
	assert.Equal(t, 1, invalid)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{12500.0, 12500},
		{int64(300), 300},
		{"12500", 12500},
		{"Rp 12.500", 12500},
		{"Rp12,500", 12500},
		{" 7 500 ", 7500},
		{"Rp 12.500,00", 12500},
		{"Rp 12,500.00", 12500},
		{"1.234.567,5", 1234568},
		{"Rp 12.500,49", 12500},
		{"-500", 0},
		{"Rp -12.500", 0},
		{-250.0, 0},
		{int64(-3), 0},
		{-7, 0},
		{"call us", 0},
		{"", 0},
		{nil, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePrice(tt.in), "ParsePrice(%v)", tt.in)
	}
}

func TestBuild(t *testing.T) {
	images := []Row{
		{"figure": "A-12", "image": "https://img.example.test/a12.png"},
		{"figure": "", "image": "orphan.png"},
	}
	hotspots := []Row{
		{"figure": "A-12", "kodepart": "P-1", "x": "200", "y": "100"},
		{"figure": "A-12", "kodepart": "P-2", "koordinat": "[10,10];[20,20]"},
		{"figure": "A-12", "kodepart": "P-3", "x": "abc", "y": "100"},
		{"figure": "A-12", "kodepart": ""},
	}
	parts := []Row{
		{"kodepart": "P-1", "deskripsi": "<b>Bolt</b> M6", "harga": "Rp 2.000"},
		{"kodepart": "P-1", "deskripsi": "duplicate", "harga": 1.0},
		{"deskripsi": "no code"},
	}

	cat, rep := Build(images, hotspots, parts, domain.CoordinatesList)

	require.Len(t, cat.Images, 1)
	require.Len(t, cat.Hotspots, 3)
	assert.Len(t, cat.Hotspots[1].Coordinates, 2)
	assert.False(t, cat.Hotspots[2].Placeable(), "malformed coordinates keep the record")

	p, ok := cat.Parts.Part("P-1")
	require.True(t, ok)
	assert.Equal(t, "Bolt M6", p.Description)
	assert.Equal(t, int64(2000), p.Price)

	assert.Equal(t, Report{
		Images:             1,
		Hotspots:           3,
		Parts:              1,
		DroppedRows:        3,
		InvalidCoordinates: 1,
		UnplaceableRecords: 1,
	}, rep)
}
