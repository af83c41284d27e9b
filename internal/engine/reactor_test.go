package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/logger"
)

// reactorFixture runs posted work on the test goroutine, like a session loop.
type reactorFixture struct {
	lr       *LayoutReactor
	r        *recordingRenderer
	bindings *Bindings
	window   *Bindings
	inbox    chan func()
	loads    []Geometry
	relayout []Geometry
}

func newReactorFixture(t *testing.T, caps Capabilities) *reactorFixture {
	t.Helper()
	f := &reactorFixture{
		r:        &recordingRenderer{},
		bindings: NewBindings(),
		window:   NewBindings(),
		inbox:    make(chan func(), 16),
	}
	f.lr = NewLayoutReactor("img-1", "https://img.test/a.png", caps, testOptions(), f.r,
		func(fn func()) { f.inbox <- fn },
		ReactorHooks{
			FirstLoad: func(g Geometry) { f.loads = append(f.loads, g) },
			Relayout:  func(g Geometry) { f.relayout = append(f.relayout, g) },
		},
		logger.Discard())
	f.lr.Start(f.bindings, f.window)
	t.Cleanup(f.lr.Stop)
	return f
}

// drain runs posted work until nothing arrives for the quiet period.
func (f *reactorFixture) drain(quiet time.Duration) {
	for {
		select {
		case fn := <-f.inbox:
			fn()
		case <-time.After(quiet):
			return
		}
	}
}

func withWidth(w float64) Geometry {
	g := testGeometry()
	g.ClientWidth = w
	return g
}

func TestReactor_EagerAssignsSrcImmediately(t *testing.T) {
	f := newReactorFixture(t, Capabilities{})

	assign := f.r.Of(OpAssignSrc)
	require.Len(t, assign, 1)
	assert.Equal(t, "https://img.test/a.png", assign[0].URL)
	assert.Equal(t, 1, f.window.Count(EventWindowResized), "window fallback for resize")
	assert.Zero(t, f.bindings.Count(EventImageResized))
}

func TestReactor_LazyWaitsForVisibility(t *testing.T) {
	f := newReactorFixture(t, Capabilities{LazyLoad: true, ResizeObserver: true})
	assert.Empty(t, f.r.Of(OpAssignSrc))
	assert.Zero(t, f.window.Len(), "per-image resize observation replaces the window listener")

	// A load before the src is assigned builds nothing.
	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))
	assert.Empty(t, f.loads)

	f.bindings.Dispatch(Event{Type: EventImageVisible, Target: "img-1"})
	f.bindings.Dispatch(Event{Type: EventImageVisible, Target: "img-1"})
	assert.Len(t, f.r.Of(OpAssignSrc), 1)

	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))
	require.Len(t, f.loads, 1)
	assert.Equal(t, testGeometry(), f.loads[0])
}

func TestReactor_NothingBuiltBeforeLoad(t *testing.T) {
	f := newReactorFixture(t, Capabilities{ResizeObserver: true})

	g := withWidth(320)
	f.bindings.Dispatch(Event{Type: EventImageResized, Target: "img-1", Geometry: &g})
	f.drain(100 * time.Millisecond)

	assert.Empty(t, f.loads)
	assert.Empty(t, f.relayout)
}

func TestReactor_ResizeIsDebounced(t *testing.T) {
	f := newReactorFixture(t, Capabilities{ResizeObserver: true})
	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))
	require.Len(t, f.loads, 1)

	// Five signals well inside one debounce window.
	for i := range 5 {
		g := withWidth(float64(400 + i*10))
		f.bindings.Dispatch(Event{Type: EventImageResized, Target: "img-1", Geometry: &g})
	}
	f.drain(150 * time.Millisecond)

	require.Len(t, f.relayout, 1)
	assert.InDelta(t, 440, f.relayout[0].ClientWidth, 1e-9, "uses the last geometry")
}

func TestReactor_WindowFallbackIsDebounced(t *testing.T) {
	f := newReactorFixture(t, Capabilities{})
	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))

	for i := range 5 {
		g := withWidth(float64(300 + i))
		f.window.Dispatch(Event{Type: EventWindowResized, Geometry: &g})
	}
	f.drain(150 * time.Millisecond)

	require.Len(t, f.relayout, 1)
	assert.InDelta(t, 304, f.relayout[0].ClientWidth, 1e-9)
}

func TestReactor_StopReleasesListenersAndPendingWork(t *testing.T) {
	f := newReactorFixture(t, Capabilities{})
	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))

	g := withWidth(250)
	f.window.Dispatch(Event{Type: EventWindowResized, Geometry: &g})
	f.lr.Stop()
	f.drain(150 * time.Millisecond)

	assert.Empty(t, f.relayout)
	assert.Zero(t, f.window.Len())
	assert.Zero(t, f.bindings.Len())
}

func TestReactor_ReloadRelayoutsImmediately(t *testing.T) {
	f := newReactorFixture(t, Capabilities{})
	f.bindings.Dispatch(loadedEvent("img-1", testGeometry()))
	f.bindings.Dispatch(loadedEvent("img-1", withWidth(640)))

	require.Len(t, f.loads, 1)
	require.Len(t, f.relayout, 1)
	assert.InDelta(t, 640, f.relayout[0].ClientWidth, 1e-9)
}
