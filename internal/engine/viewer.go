package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/katalogpart/katalog-server/internal/id"
)

var (
	// ErrNoSession is returned when an event arrives with no figure open.
	ErrNoSession = errors.New("no figure open")
	// ErrViewerClosed is returned for operations on a closed viewer.
	ErrViewerClosed = errors.New("viewer closed")
)

// ViewerDeps are shared by every session a viewer opens.
type ViewerDeps struct {
	Options   Options
	Renderer  Renderer
	Source    DataSource
	Estimator Estimator
	Logger    *slog.Logger
}

// Viewer is one client tab. It owns the window-level listener registry and at
// most one figure session; opening a figure tears the previous one down first.
type Viewer struct {
	ID string

	deps   ViewerDeps
	ctx    context.Context
	cancel context.CancelFunc
	window *Bindings
	logger *slog.Logger

	mu       sync.Mutex
	session  *FigureSession
	closed   bool
	lastSeen time.Time
}

// NewViewer creates a viewer with no figure open.
func NewViewer(viewerID string, deps ViewerDeps) *Viewer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Viewer{
		ID:       viewerID,
		deps:     deps,
		ctx:      ctx,
		cancel:   cancel,
		window:   NewBindings(),
		logger:   deps.Logger.With("viewer", viewerID),
		lastSeen: time.Now(),
	}
}

// Open tears down the current figure, if any, and starts loading figureID.
func (v *Viewer) Open(figureID string, caps Capabilities) (*FigureSession, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrViewerClosed
	}
	v.touch()

	if v.session != nil {
		v.session.Close()
		v.session = nil
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, err
	}

	v.session = StartSession(v.ctx, sessionID, figureID, caps, SessionDeps{
		Options:   v.deps.Options,
		Renderer:  v.deps.Renderer,
		Source:    v.deps.Source,
		Estimator: v.deps.Estimator,
		Window:    v.window,
		Logger:    v.logger,
	})
	return v.session, nil
}

// CloseFigure tears down the open figure and returns the viewer to idle.
func (v *Viewer) CloseFigure() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
}

// Dispatch routes a client event. Window events go to the window registry;
// everything else goes to the open figure.
func (v *Viewer) Dispatch(ev Event) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewerClosed
	}
	v.touch()
	session := v.session
	v.mu.Unlock()

	if ev.Type == EventWindowResized {
		v.window.Dispatch(ev)
		return nil
	}
	if session == nil || !session.Dispatch(ev) {
		return ErrNoSession
	}
	return nil
}

// Session returns the open figure session, or nil.
func (v *Viewer) Session() *FigureSession {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session
}

// WindowListeners returns the number of live window-level listeners.
func (v *Viewer) WindowListeners() int {
	return v.window.Count(EventWindowResized)
}

// IdleSince returns when the viewer last received a call.
func (v *Viewer) IdleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Close tears down the open figure and rejects further calls.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return
	}
	v.closed = true
	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
	v.cancel()
}

func (v *Viewer) touch() {
	v.lastSeen = time.Now()
}
