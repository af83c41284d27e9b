package api

import (
	"github.com/katalogpart/katalog-server/internal/service"
	"github.com/katalogpart/katalog-server/internal/sse"
	"github.com/katalogpart/katalog-server/internal/validation"
)

// Services groups the business logic the API server exposes.
type Services struct {
	Catalog *service.CatalogService
	Viewers *service.ViewerService
	SSE     *sse.Manager
}

// Options configures the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string
	// EventsPerSec bounds viewer events per client IP.
	EventsPerSec float64
	Version      string
	Validator    *validation.Validator
}
