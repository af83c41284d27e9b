package engine

import (
	"errors"

	"github.com/katalogpart/katalog-server/internal/domain"
)

var (
	// ErrImageNotLoaded is returned when the image has no natural size yet.
	ErrImageNotLoaded = errors.New("image natural width not available")
	// ErrInvalidPoint is returned for coordinates that are not finite numbers.
	ErrInvalidPoint = errors.New("coordinate is not a finite number")
)

// Geometry is the measured layout of a figure image, as reported by the client.
// Offsets are the image's top-left corner relative to the marker container.
type Geometry struct {
	NaturalWidth    float64 `json:"natural_width"`
	NaturalHeight   float64 `json:"natural_height"`
	ClientWidth     float64 `json:"client_width"`
	ClientHeight    float64 `json:"client_height"`
	OffsetX         float64 `json:"offset_x"`
	OffsetY         float64 `json:"offset_y"`
	ContainerHeight float64 `json:"container_height"`
}

// Scale returns rendered width over natural width.
func (g Geometry) Scale() (float64, error) {
	if g.NaturalWidth <= 0 {
		return 0, ErrImageNotLoaded
	}
	return g.ClientWidth / g.NaturalWidth, nil
}

// Transform maps a point in image-natural space to the container's screen space.
func Transform(g Geometry, p domain.Point) (domain.Point, error) {
	scale, err := g.Scale()
	if err != nil {
		return domain.Point{}, err
	}
	if !p.Finite() {
		return domain.Point{}, ErrInvalidPoint
	}
	return domain.Point{
		X: p.X*scale + g.OffsetX,
		Y: p.Y*scale + g.OffsetY,
	}, nil
}
