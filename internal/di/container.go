// Package di provides dependency injection configuration for the Katalog server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/di/providers"
	"github.com/katalogpart/katalog-server/internal/engine"
	"github.com/katalogpart/katalog-server/internal/logger"
	"github.com/katalogpart/katalog-server/internal/media/images"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideEngineOptions)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogSource)
	do.Provide(injector, providers.ProvideCatalogLoader)
	do.Provide(injector, providers.ProvideImageProber)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)
	do.Provide(injector, providers.ProvideViewerService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services.
// The first catalog load happens here, before the HTTP server accepts requests.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[engine.Options](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}

	if _, err := do.Invoke[*providers.CatalogSourceHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*catalog.Loader](injector)
	_ = do.MustInvoke[*images.Prober](injector)

	// Business services
	if _, err := do.Invoke[*providers.CatalogServiceHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.ViewerServiceHandle](injector)

	// Workers
	if _, err := do.Invoke[*providers.FileWatcherHandle](injector); err != nil {
		return err
	}

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
