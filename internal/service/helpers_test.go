package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/engine"
	"github.com/katalogpart/katalog-server/internal/logger"
	"github.com/katalogpart/katalog-server/internal/search"
	"github.com/katalogpart/katalog-server/internal/sse"
	"github.com/katalogpart/katalog-server/internal/store"
)

type fakeSource struct {
	mu    sync.Mutex
	rows  map[catalog.Collection][]catalog.Row
	err   error
	calls atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{rows: map[catalog.Collection][]catalog.Row{
		catalog.CollectionImages: {
			{"figure": "A-12", "image": "https://img.example.test/a12.png"},
			{"figure": "B-03", "image": ""},
		},
		catalog.CollectionHotspots: {
			{"figure": "A-12", "kodepart": "P-1", "x": "200", "y": "100"},
			{"figure": "A-12", "kodepart": "P-2", "koordinat": "[300,50];[320,60]"},
			{"figure": "C-07", "kodepart": "P-3", "x": "5", "y": "5"},
		},
		catalog.CollectionParts: {
			{"kodepart": "P-1", "deskripsi": "Bolt, flange", "harga": "Rp 2.500"},
			{"kodepart": "P-2", "deskripsi": "Oil seal", "harga": 18000.0},
		},
	}}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Fetch(ctx context.Context, c catalog.Collection) ([]catalog.Row, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[c], nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type fakeProber struct {
	calls atomic.Int32
	err   error
}

func (p *fakeProber) Probe(ctx context.Context, url string) (*domain.ImageProbe, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return &domain.ImageProbe{URL: url, Width: 1000, Height: 800, Format: "png"}, nil
}

type recordingEmitter struct {
	mu        sync.Mutex
	broadcast []sse.Event
	byViewer  map[string][]sse.Event
	forgotten []string
	connected map[string]bool
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{
		byViewer:  make(map[string][]sse.Event),
		connected: make(map[string]bool),
	}
}

func (e *recordingEmitter) Emit(event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcast = append(e.broadcast, event)
}

func (e *recordingEmitter) EmitToViewer(viewerID string, event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byViewer[viewerID] = append(e.byViewer[viewerID], event)
}

func (e *recordingEmitter) Forget(viewerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forgotten = append(e.forgotten, viewerID)
}

func (e *recordingEmitter) Connected(viewerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected[viewerID]
}

func (e *recordingEmitter) Pending(string) int { return 0 }

func (e *recordingEmitter) connect(viewerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected[viewerID] = true
}

// ops flattens every render op sent to viewerID.
func (e *recordingEmitter) ops(viewerID string) []engine.Op {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []engine.Op
	for _, ev := range e.byViewer[viewerID] {
		if data, ok := ev.Data.(sse.RenderEventData); ok {
			out = append(out, data.Ops.([]engine.Op)...)
		}
	}
	return out
}

func (e *recordingEmitter) hasOp(viewerID string, kind engine.OpKind) bool {
	for _, op := range e.ops(viewerID) {
		if op.Kind == kind {
			return true
		}
	}
	return false
}

type testEnv struct {
	source  *fakeSource
	prober  *fakeProber
	emitter *recordingEmitter
	cache   *store.Store
	catalog *CatalogService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cache, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	env := &testEnv{
		source:  newFakeSource(),
		prober:  &fakeProber{},
		emitter: newRecordingEmitter(),
		cache:   cache,
	}
	loader := catalog.NewLoader(env.source, domain.CoordinatesList, logger.Discard())
	env.catalog = NewCatalogService(loader, cache, index, env.prober, env.emitter, engine.DefaultOptions(), logger.Discard())
	return env
}

var errUpstream = errors.New("upstream down")

func engineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.ResizeDebounce = 10 * time.Millisecond
	opts.RowHighlightDuration = 20 * time.Millisecond
	opts.MarkerGlowDuration = 20 * time.Millisecond
	return opts
}
