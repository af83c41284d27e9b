package providers

import (
	"context"
	"errors"
	"time"

	"github.com/samber/do/v2"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/engine"
	"github.com/katalogpart/katalog-server/internal/logger"
	"github.com/katalogpart/katalog-server/internal/media/images"
	"github.com/katalogpart/katalog-server/internal/service"
)

// reaperInterval is how often idle viewers are looked for.
const reaperInterval = time.Minute

// CatalogSourceHandle wraps the configured catalog source with shutdown capability.
type CatalogSourceHandle struct {
	catalog.Source
	close func() error
}

// Shutdown implements do.Shutdownable.
func (h *CatalogSourceHandle) Shutdown() error {
	return h.close()
}

// ProvideCatalogSource provides the HTTP or SQLite catalog source.
func ProvideCatalogSource(i do.Injector) (*CatalogSourceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch cfg.Catalog.Source {
	case config.SourceSQLite:
		src, err := catalog.OpenSQLite(cfg.Catalog.SQLitePath, log.Component("catalog"))
		if err != nil {
			return nil, err
		}
		log.Info("Catalog source ready", "source", src.Name(), "path", cfg.Catalog.SQLitePath)
		return &CatalogSourceHandle{Source: src, close: src.Close}, nil
	case config.SourceHTTP:
		src := catalog.NewHTTPSource(catalog.HTTPOptions{
			ImagesURL:      cfg.Catalog.ImagesURL,
			HotspotsURL:    cfg.Catalog.HotspotsURL,
			PartsURL:       cfg.Catalog.PartsURL,
			RequestsPerSec: cfg.Catalog.RequestsPerSec,
			Timeout:        cfg.Catalog.FetchTimeout,
		}, log.Component("catalog"))
		log.Info("Catalog source ready", "source", src.Name())
		return &CatalogSourceHandle{Source: src, close: func() error {
			src.Close()
			return nil
		}}, nil
	default:
		return nil, errors.New("unknown catalog source: " + cfg.Catalog.Source)
	}
}

// ProvideCatalogLoader provides the loader that joins source collections into a catalog.
func ProvideCatalogLoader(i do.Injector) (*catalog.Loader, error) {
	src := do.MustInvoke[*CatalogSourceHandle](i)
	opts := do.MustInvoke[engine.Options](i)
	log := do.MustInvoke[*logger.Logger](i)

	return catalog.NewLoader(src.Source, opts.CoordinateFormat, log.Component("catalog")), nil
}

// ProvideImageProber provides the figure image prober.
func ProvideImageProber(i do.Injector) (*images.Prober, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return images.NewProber(log.Component("images")), nil
}

// CatalogServiceHandle wraps the catalog service and its refresh loop.
type CatalogServiceHandle struct {
	*service.CatalogService
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogServiceHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideCatalogService loads the first catalog and starts periodic refresh.
func ProvideCatalogService(i do.Injector) (*CatalogServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	loader := do.MustInvoke[*catalog.Loader](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	prober := do.MustInvoke[*images.Prober](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	opts := do.MustInvoke[engine.Options](i)

	svc := service.NewCatalogService(
		loader,
		storeHandle.Store,
		indexHandle.SearchIndex,
		prober,
		sseHandle.Manager,
		opts,
		log.Component("catalog"),
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer initCancel()
	if err := svc.Initialize(initCtx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go svc.RunPeriodicRefresh(ctx, cfg.Catalog.RefreshInterval)

	log.Info("Catalog service started", "refresh_interval", cfg.Catalog.RefreshInterval)

	return &CatalogServiceHandle{CatalogService: svc, cancel: cancel}, nil
}

// ViewerServiceHandle wraps the viewer hub and its idle reaper.
type ViewerServiceHandle struct {
	*service.ViewerService
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ViewerServiceHandle) Shutdown() error {
	h.cancel()
	h.ViewerService.Shutdown()
	return nil
}

// ProvideViewerService provides the viewer hub.
func ProvideViewerService(i do.Injector) (*ViewerServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	catalogHandle := do.MustInvoke[*CatalogServiceHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	opts := do.MustInvoke[engine.Options](i)

	svc := service.NewViewerService(
		catalogHandle.CatalogService,
		sseHandle.Manager,
		opts,
		cfg.Server.ViewerIdleTTL,
		log.Component("viewer"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go svc.RunReaper(ctx, reaperInterval)

	log.Info("Viewer service started", "idle_ttl", cfg.Server.ViewerIdleTTL)

	return &ViewerServiceHandle{ViewerService: svc, cancel: cancel}, nil
}
