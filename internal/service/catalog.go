// Package service holds the application services behind the HTTP API: the
// catalog lifecycle and the hub of connected viewers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/katalogpart/katalog-server/internal/catalog"
	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/engine"
	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/search"
	"github.com/katalogpart/katalog-server/internal/sse"
	"github.com/katalogpart/katalog-server/internal/store"
	"github.com/katalogpart/katalog-server/internal/watcher"
)

// Prober measures a figure image.
type Prober interface {
	Probe(ctx context.Context, url string) (*domain.ImageProbe, error)
}

// EventEmitter publishes SSE events.
type EventEmitter interface {
	Emit(event sse.Event)
}

// RefreshResult describes a completed catalog refresh.
type RefreshResult struct {
	Revision  string         `json:"revision"`
	FetchedAt time.Time      `json:"fetched_at"`
	Source    string         `json:"source"`
	Report    catalog.Report `json:"report"`
}

// FigureSummary is one entry of the figure list.
type FigureSummary struct {
	ID       string `json:"figure"`
	ImageURL string `json:"image"`
	Hotspots int    `json:"hotspots"`
}

// FigurePart is a hotspot record joined with its part info.
type FigurePart struct {
	Code        string         `json:"kodepart"`
	Description string         `json:"deskripsi"`
	Price       int64          `json:"harga"`
	Known       bool           `json:"known"`
	Coordinates []domain.Point `json:"coordinates"`
}

// FigureDetail is the full data of one figure.
type FigureDetail struct {
	ID       string             `json:"figure"`
	ImageURL string             `json:"image"`
	Probe    *domain.ImageProbe `json:"probe,omitempty"`
	Parts    []FigurePart       `json:"parts"`
}

// CatalogService owns the live catalog snapshot. It loads it from the
// configured source, falls back to the cached snapshot when the source is
// down, keeps the part index in sync and serves figure data to sessions.
type CatalogService struct {
	loader  *catalog.Loader
	cache   *store.Store
	index   *search.SearchIndex
	prober  Prober
	events  EventEmitter
	matcher domain.FigureMatcher
	logger  *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	current *domain.Catalog
}

// NewCatalogService creates a catalog service. events may be nil.
func NewCatalogService(
	loader *catalog.Loader,
	cache *store.Store,
	index *search.SearchIndex,
	prober Prober,
	events EventEmitter,
	opts engine.Options,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		loader:  loader,
		cache:   cache,
		index:   index,
		prober:  prober,
		events:  events,
		matcher: domain.FigureMatcher{CaseSensitive: opts.CaseSensitiveFigureMatch},
		logger:  logger,
	}
}

// Initialize loads the first catalog. If the source fails, the cached
// snapshot is used instead; with neither available the service starts empty
// and figures fail to load until a refresh succeeds.
func (s *CatalogService) Initialize(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	if err == nil {
		return nil
	}

	snap, cacheErr := s.cache.LoadSnapshot(ctx)
	if cacheErr != nil {
		if errors.Is(cacheErr, store.ErrNotFound) {
			s.logger.Warn("catalog unavailable and no cached snapshot", "error", err)
			return nil
		}
		return fmt.Errorf("load cached snapshot: %w", cacheErr)
	}

	s.install(snap)
	if ixErr := s.index.ReplaceAll(search.DocumentsFromCatalog(snap, s.matcher)); ixErr != nil {
		s.logger.Warn("failed to index cached catalog", "error", ixErr)
	}
	s.logger.Warn("serving cached catalog snapshot",
		"revision", snap.Revision,
		"fetched_at", snap.FetchedAt,
		"error", err,
	)
	return nil
}

// Refresh reloads the catalog from the source. Concurrent calls share one load.
func (s *CatalogService) Refresh(ctx context.Context) (*RefreshResult, error) {
	v, err, _ := s.group.Do("refresh", func() (any, error) {
		cat, rep, err := s.loader.Load(ctx)
		if err != nil {
			return nil, err
		}

		s.install(cat)

		if err := s.cache.SaveSnapshot(ctx, cat); err != nil {
			s.logger.Warn("failed to cache catalog snapshot", "error", err)
		}
		if err := s.index.ReplaceAll(search.DocumentsFromCatalog(cat, s.matcher)); err != nil {
			s.logger.Warn("failed to index catalog", "error", err)
		}

		if s.events != nil {
			s.events.Emit(sse.NewCatalogRefreshedEvent(cat.Revision, len(cat.Figures(s.matcher)), len(cat.Parts)))
		}

		return &RefreshResult{
			Revision:  cat.Revision,
			FetchedAt: cat.FetchedAt,
			Source:    s.loader.Source().Name(),
			Report:    rep,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*RefreshResult), nil
}

// RunPeriodicRefresh refreshes every interval until ctx is done.
func (s *CatalogService) RunPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("periodic catalog refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ReloadOnChange refreshes the catalog whenever the local export settles after
// a change. A removed export keeps the current snapshot.
func (s *CatalogService) ReloadOnChange(ctx context.Context, events <-chan watcher.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type == watcher.EventRemoved {
				s.logger.Warn("catalog export removed, keeping current snapshot", "path", ev.Path)
				continue
			}
			s.logger.Info("catalog export changed", "path", ev.Path, "change", ev.Type.String())
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("catalog reload failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *CatalogService) install(cat *domain.Catalog) {
	s.mu.Lock()
	s.current = cat
	s.mu.Unlock()
}

// Current returns the live catalog, or FETCH_FAILED when none has loaded.
func (s *CatalogService) Current() (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domainerrors.ErrFetchFailed
	}
	return s.current, nil
}

// Figures lists every figure with an image.
func (s *CatalogService) Figures(ctx context.Context) ([]FigureSummary, error) {
	cat, err := s.Current()
	if err != nil {
		return nil, err
	}

	ids := cat.Figures(s.matcher)
	out := make([]FigureSummary, 0, len(ids))
	for _, figureID := range ids {
		url, _ := cat.ResolveImage(figureID, s.matcher)
		out = append(out, FigureSummary{
			ID:       figureID,
			ImageURL: url,
			Hotspots: len(cat.HotspotsFor(figureID, s.matcher)),
		})
	}
	return out, nil
}

// Figure returns one figure with its parts joined to the part catalog.
func (s *CatalogService) Figure(ctx context.Context, figureID string) (*FigureDetail, error) {
	cat, err := s.Current()
	if err != nil {
		return nil, err
	}

	url, hasImage := cat.ResolveImage(figureID, s.matcher)
	records := cat.HotspotsFor(figureID, s.matcher)
	if !hasImage && len(records) == 0 {
		return nil, domainerrors.NotFoundf("figure %q not found", figureID)
	}

	detail := &FigureDetail{
		ID:       figureID,
		ImageURL: url,
		Parts:    make([]FigurePart, 0, len(records)),
	}
	for _, rec := range records {
		fp := FigurePart{Code: rec.PartCode, Coordinates: rec.Coordinates}
		if p, ok := cat.Parts.Part(rec.PartCode); ok {
			fp.Description = p.Description
			fp.Price = p.Price
			fp.Known = true
		}
		detail.Parts = append(detail.Parts, fp)
	}
	if hasImage {
		detail.Probe = s.probe(ctx, url)
	}
	return detail, nil
}

// SearchParts queries the part index.
func (s *CatalogService) SearchParts(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexedParts returns the number of parts in the search index.
func (s *CatalogService) IndexedParts() (uint64, error) {
	return s.index.DocumentCount()
}

// FigureData implements engine.DataSource.
func (s *CatalogService) FigureData(ctx context.Context, figureID string) (*engine.FigureData, error) {
	cat, err := s.Current()
	if err != nil {
		// Nothing loaded yet: try the source once on behalf of this figure.
		if _, refreshErr := s.Refresh(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		if cat, err = s.Current(); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	url, ok := cat.ResolveImage(figureID, s.matcher)
	if !ok {
		return nil, domainerrors.DataMissingf("no image for figure %q", figureID)
	}

	return &engine.FigureData{
		FigureID: figureID,
		ImageURL: url,
		Records:  cat.HotspotsFor(figureID, s.matcher),
		Parts:    cat.Parts,
		Probe:    s.probe(ctx, url),
	}, nil
}

// probe returns the cached probe for url, measuring the image on a miss.
// Failures are logged and yield nil; the client then sizes from the image.
func (s *CatalogService) probe(ctx context.Context, url string) *domain.ImageProbe {
	if s.prober == nil || url == "" {
		return nil
	}

	if p, err := s.cache.Probes.Get(ctx, url); err == nil {
		return p
	}

	v, err, _ := s.group.Do("probe:"+url, func() (any, error) {
		p, err := s.prober.Probe(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Probes.Put(ctx, url, p); err != nil {
			s.logger.Warn("failed to cache image probe", "url", url, "error", err)
		}
		return p, nil
	})
	if err != nil {
		s.logger.Warn("image probe failed", "url", url, "error", err)
		return nil
	}
	return v.(*domain.ImageProbe)
}
