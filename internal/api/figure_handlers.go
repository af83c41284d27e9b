package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/katalogpart/katalog-server/internal/search"
	"github.com/katalogpart/katalog-server/internal/service"
)

func (s *Server) registerFigureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFigures",
		Method:      http.MethodGet,
		Path:        "/api/v1/figures",
		Summary:     "List figures",
		Description: "Returns every figure that has an image, with its hotspot count",
		Tags:        []string{"Figures"},
	}, s.handleListFigures)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFigure",
		Method:      http.MethodGet,
		Path:        "/api/v1/figures/{figure}",
		Summary:     "Get figure",
		Description: "Returns the figure image, its measured size and its parts with source-space coordinates",
		Tags:        []string{"Figures"},
	}, s.handleGetFigure)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchParts",
		Method:      http.MethodGet,
		Path:        "/api/v1/parts/search",
		Summary:     "Search parts",
		Description: "Full-text search over part codes and descriptions",
		Tags:        []string{"Parts"},
	}, s.handleSearchParts)
}

// ListFiguresOutput wraps the figure list for Huma.
type ListFiguresOutput struct {
	Body struct {
		Figures []service.FigureSummary `json:"figures" doc:"Known figures"`
	}
}

func (s *Server) handleListFigures(ctx context.Context, _ *struct{}) (*ListFiguresOutput, error) {
	figures, err := s.services.Catalog.Figures(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListFiguresOutput{}
	out.Body.Figures = figures
	return out, nil
}

// GetFigureInput identifies a figure.
type GetFigureInput struct {
	Figure string `path:"figure" maxLength:"128" doc:"Figure id (matching is trimmed and case-insensitive by default)"`
}

// GetFigureOutput wraps a figure for Huma.
type GetFigureOutput struct {
	Body *service.FigureDetail
}

func (s *Server) handleGetFigure(ctx context.Context, input *GetFigureInput) (*GetFigureOutput, error) {
	detail, err := s.services.Catalog.Figure(ctx, input.Figure)
	if err != nil {
		return nil, err
	}
	return &GetFigureOutput{Body: detail}, nil
}

// SearchPartsInput contains parameters for searching parts.
type SearchPartsInput struct {
	Query  string `query:"q" maxLength:"200" doc:"Search query; empty lists every part"`
	Figure string `query:"figure" maxLength:"128" doc:"Only parts placed on this figure"`
	Limit  int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset int    `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchPartsOutput wraps search results for Huma.
type SearchPartsOutput struct {
	Body *search.SearchResult
}

func (s *Server) handleSearchParts(ctx context.Context, input *SearchPartsInput) (*SearchPartsOutput, error) {
	res, err := s.services.Catalog.SearchParts(ctx, search.SearchParams{
		Query:  strings.TrimSpace(input.Query),
		Figure: strings.TrimSpace(input.Figure),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchPartsOutput{Body: res}, nil
}

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "refreshCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/refresh",
		Summary:     "Refresh catalog",
		Description: "Reloads images, hotspots and parts from the configured source. Concurrent calls share one load.",
		Tags:        []string{"Catalog"},
	}, s.handleRefreshCatalog)
}

// RefreshCatalogOutput wraps a refresh result for Huma.
type RefreshCatalogOutput struct {
	Body *service.RefreshResult
}

func (s *Server) handleRefreshCatalog(ctx context.Context, _ *struct{}) (*RefreshCatalogOutput, error) {
	res, err := s.services.Catalog.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return &RefreshCatalogOutput{Body: res}, nil
}
