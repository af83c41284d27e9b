package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/katalogpart/katalog-server/internal/domain"
	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/id"
)

// Messages shown inline when a figure cannot be displayed.
const (
	MsgImageMissing = "Figure image is not available."
	MsgLoadFailed   = "Failed to load data."
)

const inboxSize = 64

// State is the lifecycle state of a figure session.
type State int32

// Session states.
const (
	StateIdle State = iota
	StateLoading
	StateRendered
	StateInteractive
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateInteractive:
		return "interactive"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// FigureData is everything a session needs to display one figure.
type FigureData struct {
	FigureID string
	ImageURL string
	Records  []domain.HotspotRecord
	Parts    domain.PartLookup
	Probe    *domain.ImageProbe
}

// DataSource fetches the data for a figure. Implementations must honor ctx.
type DataSource interface {
	FigureData(ctx context.Context, figureID string) (*FigureData, error)
}

// Estimator receives rows added to the cost estimation.
type Estimator interface {
	AddItem(ctx context.Context, item domain.EstimationItem) error
}

// SessionDeps are the collaborators of a session.
type SessionDeps struct {
	Options   Options
	Renderer  Renderer
	Source    DataSource
	Estimator Estimator
	// Window is the viewer-wide registry for window-level listeners.
	Window *Bindings
	Logger *slog.Logger
}

// FigureSession is the interactive state of one open figure. All state is
// owned by a single goroutine that drains the session inbox; fetch results,
// timers and client events are posted to it.
type FigureSession struct {
	ID       string
	FigureID string

	opts      Options
	caps      Capabilities
	r         Renderer
	source    DataSource
	estimator Estimator
	window    *Bindings
	logger    *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32

	// Owned by the loop goroutine.
	ids      *id.Sequence
	bindings *Bindings
	data     *FigureData
	frame    Frame
	markers  *MarkerLayer
	rows     *RowIndex
	sync     *SyncController
	reactor  *LayoutReactor
	stopping bool
	mounted  bool
}

// StartSession begins loading figureID and returns immediately.
func StartSession(parent context.Context, sessionID, figureID string, caps Capabilities, deps SessionDeps) *FigureSession {
	ctx, cancel := context.WithCancel(parent)
	s := &FigureSession{
		ID:        sessionID,
		FigureID:  figureID,
		opts:      deps.Options,
		caps:      caps,
		r:         deps.Renderer,
		source:    deps.Source,
		estimator: deps.Estimator,
		window:    deps.Window,
		logger:    deps.Logger.With("session", sessionID, "figure", figureID),
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		ids:       id.NewSequence("el"),
		bindings:  NewBindings(),
	}

	instruments().sessions.Add(bgCtx, 1)
	go s.run()
	s.post(s.load)
	return s
}

// State returns the current lifecycle state.
func (s *FigureSession) State() State {
	return State(s.state.Load())
}

// Done is closed once the session has been torn down.
func (s *FigureSession) Done() <-chan struct{} {
	return s.done
}

// Dispatch queues a client event for the session's bindings. It reports
// false when the session has already been torn down.
func (s *FigureSession) Dispatch(ev Event) bool {
	return s.post(func() {
		s.bindings.Dispatch(ev)
	})
}

// Inspect runs fn on the session loop and waits for it. It reports false when
// the session has already been torn down.
func (s *FigureSession) Inspect(fn func(Snapshot)) bool {
	ran := make(chan struct{})
	if !s.post(func() {
		defer close(ran)
		fn(s.snapshot())
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-s.done:
		return false
	}
}

// Close tears the session down and waits for its goroutine to exit.
func (s *FigureSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.post(s.teardown)
		<-s.done
	})
}

func (s *FigureSession) run() {
	defer close(s.done)
	for fn := range s.inbox {
		s.safely(fn)
		if s.stopping {
			return
		}
	}
}

func (s *FigureSession) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("figure session task panicked", "panic", r)
		}
	}()
	fn()
}

// post enqueues fn for the loop. Returns false if the loop has exited.
func (s *FigureSession) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.inbox <- fn:
		return true
	case <-s.done:
		return false
	}
}

// After implements Scheduler on the session loop.
func (s *FigureSession) After(d time.Duration, fn func()) func() {
	cancelled := false
	t := time.AfterFunc(d, func() {
		s.post(func() {
			if !cancelled && !s.stopping {
				fn()
			}
		})
	})
	return func() {
		cancelled = true
		t.Stop()
	}
}

func (s *FigureSession) setState(st State) {
	prev := State(s.state.Swap(int32(st)))
	if prev != st {
		s.logger.Debug("figure session state", "from", prev.String(), "to", st.String())
	}
}

func (s *FigureSession) load() {
	s.setState(StateLoading)
	ctx := s.ctx
	go func() {
		data, err := s.source.FigureData(ctx, s.FigureID)
		s.post(func() { s.loaded(data, err) })
	}()
}

// loaded runs on the loop once the fetch completes. Results arriving after the
// session moved on are dropped.
func (s *FigureSession) loaded(data *FigureData, err error) {
	if s.State() != StateLoading || s.ctx.Err() != nil {
		s.logger.Debug("discarding stale figure data")
		return
	}

	switch {
	case errors.Is(err, domainerrors.ErrDataMissing):
		s.fail(MsgImageMissing, "image_missing", err)
		return
	case err != nil:
		s.fail(MsgLoadFailed, "fetch_failed", err)
		return
	case data == nil || data.ImageURL == "":
		s.fail(MsgImageMissing, "image_missing", nil)
		return
	}
	if data.Parts == nil {
		data.Parts = domain.PartMap{}
	}
	s.data = data
	s.mount()
}

func (s *FigureSession) fail(msg, reason string, err error) {
	s.setState(StateError)
	instruments().loadFailures.Add(bgCtx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	if err != nil {
		s.logger.Warn("figure could not be loaded", "reason", reason, "error", err)
	} else {
		s.logger.Warn("figure could not be loaded", "reason", reason)
	}
	s.r.Render(Op{Kind: OpShowError, Message: msg})
}

func (s *FigureSession) mount() {
	imageID := s.ids.Next()
	layerTag := "hs-" + s.ID

	skeleton := &Skeleton{
		FigureID:       s.FigureID,
		ImageID:        imageID,
		Layer:          layerTag,
		Lazy:           s.caps.LazyLoad,
		ObserveResize:  s.caps.ResizeObserver,
		ExcludeClasses: excludedRowTargets,
	}
	if p := s.data.Probe; p != nil {
		skeleton.Width, skeleton.Height, skeleton.BlurHash = p.Width, p.Height, p.BlurHash
	}
	s.r.Render(Op{Kind: OpMountSkeleton, Target: imageID, Skeleton: skeleton})
	s.mounted = true
	s.setState(StateRendered)

	s.markers = NewMarkerLayer(layerTag, s.r, s.bindings, s.opts.matcher(), s.markerClicked, s.logger)
	s.reactor = NewLayoutReactor(imageID, s.data.ImageURL, s.caps, s.opts, s.r, func(fn func()) { s.post(fn) },
		ReactorHooks{FirstLoad: s.firstLoad, Relayout: s.relayout}, s.logger)
	s.reactor.Start(s.bindings, s.window)
}

func (s *FigureSession) firstLoad(g Geometry) {
	s.frame = Frame{Geometry: g, Attached: s.mounted}

	s.rows = BuildRowIndex(s.data.Records, s.data.Parts, s.FigureID, s.opts.matcher(), s.ids)
	if ops := s.rows.Ops(); len(ops) > 0 {
		s.r.Render(ops...)
	}

	s.sync = NewSyncController(s.opts, s.r, s, s.markers, s.rows, func() Frame { return s.frame }, s.logger)
	s.rows.Bind(s.bindings, RowHandlers{
		Click:     s.sync.RowClicked,
		QtyChange: s.qtyChanged,
		Add:       s.addToEstimation,
	})

	s.sync.SetTargets(s.markers.Rebuild(s.frame, s.data.Records, s.data.Parts, s.FigureID))
	s.setState(StateInteractive)
	s.logger.Info("figure interactive", "rows", s.rows.Len(), "markers", s.markers.Len())
}

func (s *FigureSession) relayout(g Geometry) {
	s.frame = Frame{Geometry: g, Attached: s.mounted}
	targets := s.markers.Rebuild(s.frame, s.data.Records, s.data.Parts, s.FigureID)
	if targets != nil && s.sync != nil {
		s.sync.SetTargets(targets)
	}
}

func (s *FigureSession) markerClicked(partCode string) {
	if s.sync != nil {
		s.sync.MarkerClicked(partCode)
	}
}

func (s *FigureSession) qtyChanged(row *Row, ev Event) {
	if ev.Qty < 1 {
		return
	}
	row.Qty = ev.Qty
}

func (s *FigureSession) addToEstimation(row *Row, ev Event) {
	qty := row.Qty
	if ev.Qty > 0 {
		qty = ev.Qty
		row.Qty = qty
	}
	item := row.Item(qty)
	if err := s.estimator.AddItem(s.ctx, item); err != nil {
		s.logger.Warn("failed to add part to estimation", "part", item.PartCode, "error", err)
		return
	}
	instruments().estimateItems.Add(bgCtx, 1)
}

// teardown releases every listener and timer and returns to idle. It is the
// last task the loop runs.
func (s *FigureSession) teardown() {
	s.cancel()
	if s.reactor != nil {
		s.reactor.Stop()
	}
	if s.sync != nil {
		s.sync.Reset()
	}
	if s.markers != nil {
		s.markers.Destroy()
	}
	if s.rows != nil {
		s.rows.Destroy()
	}
	if s.mounted || s.State() == StateError {
		s.r.Render(Op{Kind: OpTeardown})
	}
	s.mounted = false
	s.setState(StateIdle)
	s.stopping = true
}

// Snapshot is a read-only view of session internals.
type Snapshot struct {
	State          State
	Rows           []RowView
	Markers        []Marker
	Targets        map[string]domain.Point
	HighlightedRow string
	Glowing        []string
	Bindings       int
	SrcAssigned    bool
}

func (s *FigureSession) snapshot() Snapshot {
	snap := Snapshot{State: s.State(), Bindings: s.bindings.Len()}
	if s.rows != nil {
		for _, row := range s.rows.Rows() {
			snap.Rows = append(snap.Rows, row.View())
		}
	}
	if s.markers != nil {
		for _, m := range s.markers.Markers() {
			snap.Markers = append(snap.Markers, *m)
		}
		snap.Targets = maps.Clone(s.markers.targets)
	}
	if s.sync != nil {
		snap.HighlightedRow = s.sync.HighlightedRow()
		snap.Glowing = append([]string(nil), s.sync.Glowing()...)
	}
	if s.reactor != nil {
		snap.SrcAssigned = s.reactor.SrcAssigned()
	}
	return snap
}
