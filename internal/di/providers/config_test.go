package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/engine"
)

func TestEngineOptions_Defaults(t *testing.T) {
	assert.Equal(t, engine.DefaultOptions(), engineOptions(config.EngineConfig{}))
}

func TestEngineOptions_Overrides(t *testing.T) {
	opts := engineOptions(config.EngineConfig{
		CaseSensitiveFigureMatch: true,
		ScrollCenterMode:         "fixed-offset",
		FixedScrollOffset:        40,
		CoordinateFormat:         "single",
		ResizeDebounce:           250 * time.Millisecond,
		RowHighlightDuration:     2 * time.Second,
		MarkerGlowDuration:       500 * time.Millisecond,
	})

	assert.True(t, opts.CaseSensitiveFigureMatch)
	assert.Equal(t, engine.ScrollFixedOffset, opts.ScrollCenterMode)
	assert.InDelta(t, 40.0, opts.FixedScrollOffset, 0.001)
	assert.Equal(t, domain.CoordinatesSingle, opts.CoordinateFormat)
	assert.Equal(t, 250*time.Millisecond, opts.ResizeDebounce)
	assert.Equal(t, 2*time.Second, opts.RowHighlightDuration)
	assert.Equal(t, 500*time.Millisecond, opts.MarkerGlowDuration)
}
