package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/store"
)

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LoadSnapshot(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	cat := &domain.Catalog{
		Revision:  "rev-1",
		FetchedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Images:    []domain.FigureImage{{FigureID: "A-12", URL: "a.png"}},
		Hotspots: []domain.HotspotRecord{
			{FigureID: "A-12", PartCode: "P-1", Coordinates: []domain.Point{{X: 200, Y: 100}}},
		},
		Parts: domain.PartMap{"P-1": {Code: "P-1", Description: "Bolt", Price: 2000}},
	}
	require.NoError(t, s.SaveSnapshot(ctx, cat))

	got, err := s.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, cat.Revision, got.Revision)
	assert.True(t, cat.FetchedAt.Equal(got.FetchedAt))
	assert.Equal(t, cat.Hotspots, got.Hotspots)
	assert.Equal(t, cat.Parts, got.Parts)
}

func TestStore_InMemory(t *testing.T) {
	s, err := store.NewInMemory(nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Probes.Put(context.Background(), "a", &domain.ImageProbe{URL: "a"}))
	_, err = s.Probes.Get(context.Background(), "a")
	assert.NoError(t, err)
}
