package engine

import (
	"time"

	"github.com/katalogpart/katalog-server/internal/domain"
)

// ScrollCenterMode selects how the container is scrolled toward a part.
type ScrollCenterMode string

const (
	// ScrollViewportCenter centers the part vertically in the container.
	ScrollViewportCenter ScrollCenterMode = "viewport-center"
	// ScrollFixedOffset puts the part a fixed distance below the container top.
	ScrollFixedOffset ScrollCenterMode = "fixed-offset"
)

// Options configures figure matching, scrolling and timing for every session.
type Options struct {
	CaseSensitiveFigureMatch bool
	ScrollCenterMode         ScrollCenterMode
	FixedScrollOffset        float64
	CoordinateFormat         domain.CoordinateFormat
	ResizeDebounce           time.Duration
	RowHighlightDuration     time.Duration
	MarkerGlowDuration       time.Duration
}

// DefaultOptions returns the stock behavior.
func DefaultOptions() Options {
	return Options{
		ScrollCenterMode:     ScrollViewportCenter,
		FixedScrollOffset:    100,
		CoordinateFormat:     domain.CoordinatesList,
		ResizeDebounce:       100 * time.Millisecond,
		RowHighlightDuration: 1500 * time.Millisecond,
		MarkerGlowDuration:   time.Second,
	}
}

func (o Options) matcher() domain.FigureMatcher {
	return domain.FigureMatcher{CaseSensitive: o.CaseSensitiveFigureMatch}
}

// scrollTop returns the container scroll position that brings screenY into view.
func (o Options) scrollTop(screenY, containerHeight float64) float64 {
	var top float64
	if o.ScrollCenterMode == ScrollFixedOffset {
		top = screenY - o.FixedScrollOffset
	} else {
		top = screenY - containerHeight/2
	}
	return max(top, 0)
}
