package engine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/katalogpart/katalog-server/internal/engine"

var bgCtx = context.Background()

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type engineInstruments struct {
	sessions      metric.Int64Counter
	rebuilds      metric.Int64Counter
	markers       metric.Int64Counter
	loadFailures  metric.Int64Counter
	estimateItems metric.Int64Counter
}

var instruments = sync.OnceValue(func() *engineInstruments {
	m := meter()
	return &engineInstruments{
		sessions: counter(m, "katalog.engine.sessions",
			"Figure sessions opened"),
		rebuilds: counter(m, "katalog.engine.marker_rebuilds",
			"Marker layer rebuilds"),
		markers: counter(m, "katalog.engine.markers_placed",
			"Markers placed across all rebuilds"),
		loadFailures: counter(m, "katalog.engine.load_failures",
			"Figure sessions that ended in the error state"),
		estimateItems: counter(m, "katalog.engine.estimation_items",
			"Rows added to the estimation"),
	}
})

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}
