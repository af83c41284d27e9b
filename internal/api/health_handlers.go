package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Revision   string                     `json:"revision,omitempty" doc:"Revision of the live catalog"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"catalog": s.checkCatalog(),
		"search":  s.checkSearchIndex(),
		"sse":     s.checkSSEManager(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	out := &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}
	if cat, err := s.services.Catalog.Current(); err == nil {
		out.Body.Revision = cat.Revision
	}
	return out, nil
}

// checkCatalog reports whether a catalog snapshot is being served.
func (s *Server) checkCatalog() ComponentHealth {
	cat, err := s.services.Catalog.Current()
	if err != nil {
		return ComponentHealth{Status: "unhealthy", Message: "no catalog loaded"}
	}
	age := time.Since(cat.FetchedAt).Round(time.Second)
	return ComponentHealth{Status: "healthy", Message: "fetched " + age.String() + " ago"}
}

// checkSearchIndex verifies the Bleve index is accessible.
func (s *Server) checkSearchIndex() ComponentHealth {
	start := time.Now()
	count, err := s.services.Catalog.IndexedParts()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "search index unreachable",
		}
	}

	// Index is accessible but might be empty (degraded during reindex)
	if count == 0 {
		return ComponentHealth{
			Status:  "degraded",
			Latency: latency.String(),
			Message: "search index empty",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
		Message: strconv.FormatUint(count, 10) + " parts indexed",
	}
}

// checkSSEManager reports connected streams and viewers.
func (s *Server) checkSSEManager() ComponentHealth {
	return ComponentHealth{
		Status: "healthy",
		Message: strconv.Itoa(s.services.SSE.ClientCount()) + " streams, " +
			strconv.Itoa(s.services.Viewers.Count()) + " viewers",
	}
}
