package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/domain"
	"github.com/katalogpart/katalog-server/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEntity_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	probe := &domain.ImageProbe{URL: "https://img.example.test/a.png", Width: 1000, Height: 800, Format: "png"}
	require.NoError(t, s.Probes.Create(ctx, probe.URL, probe))

	got, err := s.Probes.Get(ctx, probe.URL)
	require.NoError(t, err)
	assert.Equal(t, probe, got)

	err = s.Probes.Create(ctx, probe.URL, probe)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestEntity_PutOverwrites(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	url := "https://img.example.test/b.png"

	require.NoError(t, s.Probes.Put(ctx, url, &domain.ImageProbe{URL: url, Width: 10}))
	require.NoError(t, s.Probes.Put(ctx, url, &domain.ImageProbe{URL: url, Width: 20}))

	got, err := s.Probes.Get(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Width)
}

func TestEntity_GetMissing(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Probes.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_DeleteIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Probes.Put(ctx, "x", &domain.ImageProbe{URL: "x"}))
	require.NoError(t, s.Probes.Delete(ctx, "x"))
	require.NoError(t, s.Probes.Delete(ctx, "x"))

	_, err := s.Probes.Get(ctx, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_List(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, url := range []string{"a", "b", "c"} {
		require.NoError(t, s.Probes.Put(ctx, url, &domain.ImageProbe{URL: url}))
	}

	var urls []string
	for p, err := range s.Probes.List(ctx) {
		require.NoError(t, err)
		urls = append(urls, p.URL)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, urls)
}

func TestEntity_CancelledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Probes.Get(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
