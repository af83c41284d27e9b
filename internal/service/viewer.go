package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/engine"
	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/id"
	"github.com/katalogpart/katalog-server/internal/sse"
)

// ViewerEmitter delivers events to one viewer's stream.
type ViewerEmitter interface {
	EmitToViewer(viewerID string, event sse.Event)
	Forget(viewerID string)
	Connected(viewerID string) bool
	Pending(viewerID string) int
}

// ViewerState is a point-in-time view of a viewer and its open figure.
type ViewerState struct {
	ID              string           `json:"id"`
	FigureID        string           `json:"figure,omitempty"`
	SessionID       string           `json:"session_id,omitempty"`
	State           string           `json:"state"`
	Rows            []engine.RowView `json:"rows,omitempty"`
	Markers         int              `json:"markers"`
	HighlightedRow  string           `json:"highlighted_row,omitempty"`
	Glowing         []string         `json:"glowing,omitempty"`
	WindowListeners int              `json:"window_listeners"`
	StreamConnected bool             `json:"stream_connected"`
	HeldEvents      int              `json:"held_events"`
}

// ViewerService is the hub of connected viewers. Each viewer's render ops and
// estimation items are pushed to its SSE stream.
type ViewerService struct {
	source  engine.DataSource
	events  ViewerEmitter
	opts    engine.Options
	idleTTL time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	viewers map[string]*engine.Viewer
}

// NewViewerService creates a viewer hub. Viewers idle for longer than idleTTL
// are reaped by RunReaper.
func NewViewerService(source engine.DataSource, events ViewerEmitter, opts engine.Options, idleTTL time.Duration, logger *slog.Logger) *ViewerService {
	return &ViewerService{
		source:  source,
		events:  events,
		opts:    opts,
		idleTTL: idleTTL,
		logger:  logger,
		viewers: make(map[string]*engine.Viewer),
	}
}

// Create registers a new viewer and returns its id.
func (s *ViewerService) Create(ctx context.Context) (string, error) {
	viewerID, err := id.Generate(id.PrefixViewer)
	if err != nil {
		return "", domainerrors.Internal("failed to generate viewer id").WithCause(err)
	}

	v := engine.NewViewer(viewerID, engine.ViewerDeps{
		Options:   s.opts,
		Renderer:  s.renderer(viewerID),
		Source:    s.source,
		Estimator: &streamEstimator{viewerID: viewerID, events: s.events},
		Logger:    s.logger,
	})

	s.mu.Lock()
	s.viewers[viewerID] = v
	total := len(s.viewers)
	s.mu.Unlock()

	s.logger.Info("viewer created", "viewer", viewerID, "total_viewers", total)
	return viewerID, nil
}

func (s *ViewerService) renderer(viewerID string) engine.Renderer {
	return engine.RendererFunc(func(ops ...engine.Op) {
		if len(ops) == 0 {
			return
		}
		s.events.EmitToViewer(viewerID, sse.NewRenderEvent(viewerID, ops))
	})
}

// Exists reports whether viewerID is registered.
func (s *ViewerService) Exists(viewerID string) bool {
	_, err := s.get(viewerID)
	return err == nil
}

func (s *ViewerService) get(viewerID string) (*engine.Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.viewers[viewerID]
	if !ok {
		return nil, domainerrors.NotFoundf("viewer %q not found", viewerID)
	}
	return v, nil
}

// OpenFigure tears down the viewer's current figure and starts loading
// figureID. It returns the new session id.
func (s *ViewerService) OpenFigure(ctx context.Context, viewerID, figureID string, caps engine.Capabilities) (string, error) {
	v, err := s.get(viewerID)
	if err != nil {
		return "", err
	}

	session, err := v.Open(figureID, caps)
	if err != nil {
		return "", mapViewerError(err)
	}
	return session.ID, nil
}

// CloseFigure returns the viewer to idle.
func (s *ViewerService) CloseFigure(ctx context.Context, viewerID string) error {
	v, err := s.get(viewerID)
	if err != nil {
		return err
	}
	v.CloseFigure()
	return nil
}

// Dispatch posts a client event to the viewer.
func (s *ViewerService) Dispatch(ctx context.Context, viewerID string, ev engine.Event) error {
	v, err := s.get(viewerID)
	if err != nil {
		return err
	}
	return mapViewerError(v.Dispatch(ev))
}

// State returns a snapshot of the viewer.
func (s *ViewerService) State(ctx context.Context, viewerID string) (*ViewerState, error) {
	v, err := s.get(viewerID)
	if err != nil {
		return nil, err
	}

	st := &ViewerState{
		ID:              viewerID,
		State:           engine.StateIdle.String(),
		WindowListeners: v.WindowListeners(),
		StreamConnected: s.events.Connected(viewerID),
		HeldEvents:      s.events.Pending(viewerID),
	}
	session := v.Session()
	if session == nil {
		return st, nil
	}

	st.FigureID = session.FigureID
	st.SessionID = session.ID
	session.Inspect(func(snap engine.Snapshot) {
		st.State = snap.State.String()
		st.Rows = snap.Rows
		st.Markers = len(snap.Markers)
		st.HighlightedRow = snap.HighlightedRow
		st.Glowing = snap.Glowing
	})
	return st, nil
}

// Close tears the viewer down and forgets it.
func (s *ViewerService) Close(ctx context.Context, viewerID string) error {
	s.mu.Lock()
	v, ok := s.viewers[viewerID]
	delete(s.viewers, viewerID)
	s.mu.Unlock()

	if !ok {
		return domainerrors.NotFoundf("viewer %q not found", viewerID)
	}

	v.Close()
	s.events.Forget(viewerID)
	s.logger.Info("viewer closed", "viewer", viewerID)
	return nil
}

// Count returns the number of registered viewers.
func (s *ViewerService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// ReapIdle closes viewers with no activity since before now-idleTTL.
func (s *ViewerService) ReapIdle(now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTTL)

	s.mu.RLock()
	var stale []string
	for viewerID, v := range s.viewers {
		// An open stream keeps the viewer alive.
		if v.IdleSince().Before(cutoff) && !s.events.Connected(viewerID) {
			stale = append(stale, viewerID)
		}
	}
	s.mu.RUnlock()

	for _, viewerID := range stale {
		_ = s.Close(context.Background(), viewerID)
	}
	if len(stale) > 0 {
		s.logger.Info("reaped idle viewers", "count", len(stale))
	}
	return len(stale)
}

// RunReaper reaps idle viewers every interval until ctx is done.
func (s *ViewerService) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.ReapIdle(now)
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown closes every viewer.
func (s *ViewerService) Shutdown() {
	s.mu.Lock()
	viewers := s.viewers
	s.viewers = make(map[string]*engine.Viewer)
	s.mu.Unlock()

	for viewerID, v := range viewers {
		v.Close()
		s.events.Forget(viewerID)
	}
}

func mapViewerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, engine.ErrNoSession):
		return domainerrors.Conflict("no figure open").WithCause(err)
	case errors.Is(err, engine.ErrViewerClosed):
		return domainerrors.NotFound("viewer closed").WithCause(err)
	default:
		return err
	}
}

// streamEstimator hands estimation items to the client, which owns the cart.
type streamEstimator struct {
	viewerID string
	events   ViewerEmitter
}

func (e *streamEstimator) AddItem(ctx context.Context, item domain.EstimationItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.events.EmitToViewer(e.viewerID, sse.NewRenderEvent(e.viewerID, []engine.Op{{
		Kind:  engine.OpEstimate,
		Item:  &item,
		Total: item.Total(),
	}}))
	return nil
}
