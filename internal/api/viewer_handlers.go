package api

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/katalogpart/katalog-server/internal/engine"
	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/service"
)

func (s *Server) registerViewerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createViewer",
		Method:        http.MethodPost,
		Path:          "/api/v1/viewers",
		Summary:       "Create viewer",
		Description:   "Registers a viewer. Render instructions for it are streamed from /api/v1/viewers/{id}/stream.",
		Tags:          []string{"Viewers"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateViewer)

	huma.Register(s.api, huma.Operation{
		OperationID: "getViewer",
		Method:      http.MethodGet,
		Path:        "/api/v1/viewers/{id}",
		Summary:     "Get viewer state",
		Description: "Returns the open figure, its state, rows, marker count and highlights",
		Tags:        []string{"Viewers"},
	}, s.handleGetViewer)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteViewer",
		Method:        http.MethodDelete,
		Path:          "/api/v1/viewers/{id}",
		Summary:       "Delete viewer",
		Description:   "Tears down the open figure and forgets the viewer",
		Tags:          []string{"Viewers"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteViewer)

	huma.Register(s.api, huma.Operation{
		OperationID:   "openFigure",
		Method:        http.MethodPost,
		Path:          "/api/v1/viewers/{id}/figure",
		Summary:       "Open figure",
		Description:   "Tears down the current figure, if any, and starts loading a new one",
		Tags:          []string{"Viewers"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleOpenFigure)

	huma.Register(s.api, huma.Operation{
		OperationID:   "closeFigure",
		Method:        http.MethodDelete,
		Path:          "/api/v1/viewers/{id}/figure",
		Summary:       "Close figure",
		Description:   "Tears down the open figure and returns the viewer to idle",
		Tags:          []string{"Viewers"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleCloseFigure)

	huma.Register(s.api, huma.Operation{
		OperationID:   "postViewerEvent",
		Method:        http.MethodPost,
		Path:          "/api/v1/viewers/{id}/events",
		Summary:       "Post viewer event",
		Description:   "Delivers a client event (image load, resize, clicks, quantity, estimation) to the open figure",
		Tags:          []string{"Viewers"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   huma.Middlewares{s.limitEvents},
	}, s.handlePostEvent)
}

// ViewerPath identifies a viewer.
type ViewerPath struct {
	ID string `path:"id" maxLength:"64" doc:"Viewer id"`
}

// CreateViewerOutput returns the new viewer id.
type CreateViewerOutput struct {
	Body struct {
		ViewerID string `json:"viewer_id" doc:"Viewer id"`
		Stream   string `json:"stream" doc:"Path of the render stream"`
	}
}

func (s *Server) handleCreateViewer(ctx context.Context, _ *struct{}) (*CreateViewerOutput, error) {
	viewerID, err := s.services.Viewers.Create(ctx)
	if err != nil {
		return nil, err
	}
	out := &CreateViewerOutput{}
	out.Body.ViewerID = viewerID
	out.Body.Stream = "/api/v1/viewers/" + viewerID + "/stream"
	return out, nil
}

// ViewerStateOutput wraps viewer state for Huma.
type ViewerStateOutput struct {
	Body *service.ViewerState
}

func (s *Server) handleGetViewer(ctx context.Context, input *ViewerPath) (*ViewerStateOutput, error) {
	st, err := s.services.Viewers.State(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ViewerStateOutput{Body: st}, nil
}

func (s *Server) handleDeleteViewer(ctx context.Context, input *ViewerPath) (*struct{}, error) {
	if err := s.services.Viewers.Close(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// OpenFigureRequest selects a figure and reports client capabilities.
type OpenFigureRequest struct {
	Figure                  string `json:"figure" maxLength:"128" validate:"required,figureid" doc:"Figure id"`
	LazySupported           bool   `json:"lazy_supported,omitempty" doc:"Client can defer image loading until visible"`
	ResizeObserverSupported bool   `json:"resize_observer_supported,omitempty" doc:"Client can observe the image element's size"`
}

// OpenFigureInput contains the viewer and the figure to open.
type OpenFigureInput struct {
	ViewerPath
	Body OpenFigureRequest
}

// OpenFigureOutput returns the new session id.
type OpenFigureOutput struct {
	Body struct {
		SessionID string `json:"session_id" doc:"Figure session id"`
		Figure    string `json:"figure" doc:"Requested figure id"`
	}
}

func (s *Server) handleOpenFigure(ctx context.Context, input *OpenFigureInput) (*OpenFigureOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	figureID := strings.TrimSpace(input.Body.Figure)
	sessionID, err := s.services.Viewers.OpenFigure(ctx, input.ID, figureID, engine.Capabilities{
		LazyLoad:       input.Body.LazySupported,
		ResizeObserver: input.Body.ResizeObserverSupported,
	})
	if err != nil {
		return nil, err
	}

	out := &OpenFigureOutput{}
	out.Body.SessionID = sessionID
	out.Body.Figure = figureID
	return out, nil
}

func (s *Server) handleCloseFigure(ctx context.Context, input *ViewerPath) (*struct{}, error) {
	if err := s.services.Viewers.CloseFigure(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

// GeometryRequest is the measured layout of the figure image.
type GeometryRequest struct {
	NaturalWidth    float64 `json:"natural_width" validate:"gte=0"`
	NaturalHeight   float64 `json:"natural_height" validate:"gte=0"`
	ClientWidth     float64 `json:"client_width" validate:"gte=0"`
	ClientHeight    float64 `json:"client_height" validate:"gte=0"`
	OffsetX         float64 `json:"offset_x,omitempty"`
	OffsetY         float64 `json:"offset_y,omitempty"`
	ContainerHeight float64 `json:"container_height,omitempty" validate:"gte=0"`
}

// EventRequest is one client event.
type EventRequest struct {
	Type     string           `json:"type" validate:"required,oneof=image_visible image_loaded image_resized window_resized marker_click row_click qty_change add_to_estimation" doc:"Event type"`
	Target   string           `json:"target,omitempty" maxLength:"128" validate:"omitempty,max=128" doc:"Element id the event happened on"`
	Geometry *GeometryRequest `json:"geometry,omitempty" validate:"omitempty" doc:"Image layout, for load and resize events"`
	Classes  []string         `json:"classes,omitempty" maxItems:"16" validate:"omitempty,max=16,dive,max=64" doc:"Classes of the element actually clicked"`
	Qty      int              `json:"qty,omitempty" validate:"gte=0,lte=9999" doc:"Quantity for qty_change and add_to_estimation"`
}

// Events addressed to an element.
var targetedEvents = []engine.EventType{
	engine.EventMarkerClick,
	engine.EventRowClick,
	engine.EventQtyChange,
	engine.EventAddToEstimation,
}

func (r EventRequest) toEngine() (engine.Event, error) {
	ev := engine.Event{
		Type:    engine.EventType(r.Type),
		Target:  strings.TrimSpace(r.Target),
		Classes: r.Classes,
		Qty:     r.Qty,
	}
	if slices.Contains(targetedEvents, ev.Type) && ev.Target == "" {
		return ev, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"target": "is required for " + r.Type + " events",
		})
	}
	if g := r.Geometry; g != nil {
		ev.Geometry = &engine.Geometry{
			NaturalWidth:    g.NaturalWidth,
			NaturalHeight:   g.NaturalHeight,
			ClientWidth:     g.ClientWidth,
			ClientHeight:    g.ClientHeight,
			OffsetX:         g.OffsetX,
			OffsetY:         g.OffsetY,
			ContainerHeight: g.ContainerHeight,
		}
	}
	return ev, nil
}

// PostEventInput contains the viewer and the event.
type PostEventInput struct {
	ViewerPath
	Body EventRequest
}

func (s *Server) handlePostEvent(ctx context.Context, input *PostEventInput) (*struct{}, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	ev, err := input.Body.toEngine()
	if err != nil {
		return nil, err
	}
	if err := s.services.Viewers.Dispatch(ctx, input.ID, ev); err != nil {
		return nil, err
	}
	return nil, nil
}
