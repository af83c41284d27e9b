package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/katalogpart/katalog-server/internal/domain"
	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
)

// Loader builds catalog snapshots from a Source.
type Loader struct {
	source Source
	format domain.CoordinateFormat
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader creates a loader reading from source.
func NewLoader(source Source, format domain.CoordinateFormat, logger *slog.Logger) *Loader {
	if format == "" {
		format = domain.CoordinatesList
	}
	return &Loader{
		source: source,
		format: format,
		logger: logger,
		now:    time.Now,
	}
}

// Source returns the underlying source.
func (l *Loader) Source() Source { return l.source }

// Load fetches the three collections concurrently. If any fetch fails the
// whole load fails; a partial catalog is never returned.
func (l *Loader) Load(ctx context.Context) (*domain.Catalog, Report, error) {
	start := l.now()

	var images, hotspots, parts []Row
	g, gctx := errgroup.WithContext(ctx)
	fetch := func(c Collection, dst *[]Row) {
		g.Go(func() error {
			rows, err := l.source.Fetch(gctx, c)
			if err != nil {
				return err
			}
			*dst = rows
			return nil
		})
	}
	fetch(CollectionImages, &images)
	fetch(CollectionHotspots, &hotspots)
	fetch(CollectionParts, &parts)

	if err := g.Wait(); err != nil {
		l.logger.Warn("catalog load failed", "source", l.source.Name(), "error", err)
		return nil, Report{}, domainerrors.FetchFailed(err, "failed to load catalog from "+l.source.Name())
	}

	cat, rep := Build(images, hotspots, parts, l.format)
	cat.Revision = uuid.NewString()
	cat.FetchedAt = l.now()

	l.logger.Info("catalog loaded",
		"source", l.source.Name(),
		"revision", cat.Revision,
		"images", rep.Images,
		"hotspots", rep.Hotspots,
		"parts", rep.Parts,
		"dropped", rep.DroppedRows,
		"invalid_coordinates", rep.InvalidCoordinates,
		"duration", l.now().Sub(start),
	)
	return cat, rep, nil
}
