package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/logger"
)

type recordingRenderer struct {
	mu  sync.Mutex
	ops []Op
}

func (r *recordingRenderer) Render(ops ...Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, ops...)
}

func (r *recordingRenderer) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

func (r *recordingRenderer) Count(kind OpKind) int {
	n := 0
	for _, op := range r.Ops() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recordingRenderer) Of(kind OpKind) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func (r *recordingRenderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// manualScheduler holds timers until the test fires them.
type manualScheduler struct {
	pending []*manualTimer
}

type manualTimer struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (s *manualScheduler) After(d time.Duration, fn func()) func() {
	t := &manualTimer{d: d, fn: fn}
	s.pending = append(s.pending, t)
	return func() { t.cancelled = true }
}

// FireAll runs every live timer once.
func (s *manualScheduler) FireAll() int {
	timers := s.pending
	s.pending = nil
	fired := 0
	for _, t := range timers {
		if !t.cancelled {
			t.fn()
			fired++
		}
	}
	return fired
}

func (s *manualScheduler) Live() int {
	n := 0
	for _, t := range s.pending {
		if !t.cancelled {
			n++
		}
	}
	return n
}

type stubSource struct {
	data    *FigureData
	err     error
	block   chan struct{}
	mu      sync.Mutex
	calls   int
	lastCtx context.Context
}

func (s *stubSource) FigureData(ctx context.Context, figureID string) (*FigureData, error) {
	s.mu.Lock()
	s.calls++
	s.lastCtx = ctx
	s.mu.Unlock()

	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	d := *s.data
	d.FigureID = figureID
	return &d, nil
}

type recordingEstimator struct {
	mu    sync.Mutex
	items []domain.EstimationItem
}

func (e *recordingEstimator) AddItem(_ context.Context, item domain.EstimationItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, item)
	return nil
}

func (e *recordingEstimator) Items() []domain.EstimationItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.EstimationItem(nil), e.items...)
}

const testFigure = "F-12"

func testRecords() []domain.HotspotRecord {
	return []domain.HotspotRecord{
		{FigureID: "F-12", PartCode: "P-1", Coordinates: []domain.Point{{X: 200, Y: 100}}},
		{FigureID: "F-12", PartCode: "P-2", Coordinates: []domain.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}}},
		{FigureID: " f-12 ", PartCode: "P-3"},
		{FigureID: "F-99", PartCode: "P-4", Coordinates: []domain.Point{{X: 1, Y: 1}}},
	}
}

func testParts() domain.PartMap {
	return domain.PartMap{
		"P-1": {Code: "P-1", Description: "BOLT, FLANGE", Price: 4500},
		"P-2": {Code: "P-2", Description: "GASKET", Price: 12000},
		"P-4": {Code: "P-4", Description: "SPRING", Price: 800},
	}
}

func testGeometry() Geometry {
	return Geometry{
		NaturalWidth:    1000,
		NaturalHeight:   800,
		ClientWidth:     500,
		ClientHeight:    400,
		OffsetX:         10,
		OffsetY:         20,
		ContainerHeight: 300,
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ResizeDebounce = 30 * time.Millisecond
	opts.RowHighlightDuration = 40 * time.Millisecond
	opts.MarkerGlowDuration = 40 * time.Millisecond
	return opts
}

func testFigureData() *FigureData {
	return &FigureData{
		ImageURL: "https://img.test/f12.webp",
		Records:  testRecords(),
		Parts:    testParts(),
		Probe:    &domain.ImageProbe{Width: 1000, Height: 800, BlurHash: "LKO2?U%2Tw=w]~RBVZRi};RPxuwH"},
	}
}

func newTestSession(t *testing.T, src DataSource, caps Capabilities) (*FigureSession, *recordingRenderer, *recordingEstimator, *Bindings) {
	t.Helper()
	r := &recordingRenderer{}
	est := &recordingEstimator{}
	window := NewBindings()
	s := StartSession(context.Background(), "fs-test", testFigure, caps, SessionDeps{
		Options:   testOptions(),
		Renderer:  r,
		Source:    src,
		Estimator: est,
		Window:    window,
		Logger:    logger.Discard(),
	})
	t.Cleanup(s.Close)
	return s, r, est, window
}

func waitForState(t *testing.T, s *FigureSession, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, 2*time.Second, 5*time.Millisecond,
		"session never reached %s (at %s)", want, s.State())
}

func snapshotOf(t *testing.T, s *FigureSession) Snapshot {
	t.Helper()
	var snap Snapshot
	require.True(t, s.Inspect(func(sn Snapshot) { snap = sn }))
	return snap
}

func imageID(t *testing.T, r *recordingRenderer) string {
	t.Helper()
	mounts := r.Of(OpMountSkeleton)
	require.Len(t, mounts, 1)
	return mounts[0].Skeleton.ImageID
}

func loadedEvent(target string, g Geometry) Event {
	return Event{Type: EventImageLoaded, Target: target, Geometry: &g}
}
