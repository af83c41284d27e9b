package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/do/v2"

	"github.com/katalogpart/katalog-server/internal/config"
	"github.com/katalogpart/katalog-server/internal/logger"
	"github.com/katalogpart/katalog-server/internal/sse"
	"github.com/katalogpart/katalog-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Component("sse"))

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// storeGCInterval is how often the cache's value log is compacted.
const storeGCInterval = time.Hour

// StoreHandle wraps the snapshot cache and its GC job with shutdown capability.
type StoreHandle struct {
	*store.Store
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideStore provides the Badger-backed snapshot cache.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.CachePath()
	db, err := store.New(path, log.Component("store"))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(storeGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				db.RunGC(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Snapshot cache initialized", "path", path)

	return &StoreHandle{Store: db, cancel: cancel}, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
