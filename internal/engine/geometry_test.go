package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
)

func TestTransform_BasicPlacement(t *testing.T) {
	g := Geometry{NaturalWidth: 1000, ClientWidth: 500, OffsetX: 10, OffsetY: 20}

	got, err := Transform(g, domain.Point{X: 200, Y: 100})
	require.NoError(t, err)
	assert.InDelta(t, 110, got.X, 1e-9)
	assert.InDelta(t, 70, got.Y, 1e-9)
}

func TestTransform_ScalingInvariance(t *testing.T) {
	a := domain.Point{X: 120, Y: 40}
	b := domain.Point{X: 620, Y: 340}

	for _, clientWidth := range []float64{250, 500, 1000, 1733} {
		g := Geometry{NaturalWidth: 1000, ClientWidth: clientWidth, OffsetX: 7, OffsetY: 3}
		scale, err := g.Scale()
		require.NoError(t, err)

		pa, err := Transform(g, a)
		require.NoError(t, err)
		pb, err := Transform(g, b)
		require.NoError(t, err)

		// Relative positions scale uniformly; offsets cancel out.
		assert.InDelta(t, (b.X-a.X)*scale, pb.X-pa.X, 1e-9)
		assert.InDelta(t, (b.Y-a.Y)*scale, pb.Y-pa.Y, 1e-9)
	}
}

func TestTransform_RequiresNaturalWidth(t *testing.T) {
	for _, w := range []float64{0, -1} {
		_, err := Transform(Geometry{NaturalWidth: w, ClientWidth: 500}, domain.Point{X: 1, Y: 1})
		assert.ErrorIs(t, err, ErrImageNotLoaded)
	}
}

func TestTransform_RejectsNonFinitePoints(t *testing.T) {
	g := testGeometry()

	_, err := Transform(g, domain.Point{X: math.NaN(), Y: 1})
	assert.ErrorIs(t, err, ErrInvalidPoint)

	_, err = Transform(g, domain.Point{X: 1, Y: math.Inf(-1)})
	assert.ErrorIs(t, err, ErrInvalidPoint)
}

func TestOptions_ScrollTop(t *testing.T) {
	center := DefaultOptions()
	fixed := DefaultOptions()
	fixed.ScrollCenterMode = ScrollFixedOffset

	assert.InDelta(t, 250, center.scrollTop(400, 300), 1e-9)
	assert.InDelta(t, 300, fixed.scrollTop(400, 300), 1e-9)
	assert.Zero(t, center.scrollTop(50, 300), "clamped at the top")
	assert.Zero(t, fixed.scrollTop(40, 300), "clamped at the top")
}
