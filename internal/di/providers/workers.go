package providers

import (
	"context"
	"errors"

	"github.com/samber/do/v2"

	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/logger"
	"github.com/katalogpart/katalog-server/internal/watcher"
)

// FileWatcherHandle wraps the catalog export watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type FileWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *FileWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideFileWatcher watches the SQLite export and reloads the catalog when it changes.
func ProvideFileWatcher(i do.Injector) (*FileWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Catalog.Source != config.SourceSQLite || !cfg.Catalog.WatchSQLite {
		log.Info("Catalog export watcher disabled")
		return &FileWatcherHandle{}, nil
	}

	catalogHandle := do.MustInvoke[*CatalogServiceHandle](i)

	w, err := watcher.New(log.Component("watcher"), cfg.Catalog.SQLitePath, watcher.Options{})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Catalog export watcher error", "error", err)
		}
	}()

	go catalogHandle.ReloadOnChange(ctx, w.Events())

	go func() {
		for {
			select {
			case err := <-w.Errors():
				log.Warn("catalog export watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Catalog export watcher started", "path", w.Path())

	return &FileWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
