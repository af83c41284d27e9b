package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/logger"
)

func newTestHTTPSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src := NewHTTPSource(HTTPOptions{
		ImagesURL:      server.URL + "/images",
		HotspotsURL:    server.URL + "/hotspots",
		PartsURL:       server.URL + "/parts",
		RequestsPerSec: 100,
	}, logger.Discard())
	src.http = server.Client()
	t.Cleanup(src.Close)
	return src
}

func TestHTTPSource_Fetch(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		statusCode int
		wantRows   int
		wantErr    error
	}{
		{"bare array", `[{"figure":"A-12","image":"a.png"},{"figure":"B-1","image":"b.png"}]`, http.StatusOK, 2, nil},
		{"wrapped data", `{"data":[{"figure":"A-12"}]}`, http.StatusOK, 1, nil},
		{"wrapped rows", `{"rows":[]}`, http.StatusOK, 0, nil},
		{"unknown shape", `{"meta":1}`, http.StatusOK, 0, ErrUnknownFormat},
		{"not found", ``, http.StatusNotFound, 0, ErrNotFound},
		{"rate limited", ``, http.StatusTooManyRequests, 0, ErrRateLimited},
		{"server error", ``, http.StatusBadGateway, 0, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestHTTPSource(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				assert.Equal(t, "/images", r.URL.Path)
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			})

			rows, err := src.Fetch(context.Background(), CollectionImages)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
		})
	}
}

func TestHTTPSource_MissingURL(t *testing.T) {
	src := NewHTTPSource(HTTPOptions{}, logger.Discard())
	defer src.Close()

	_, err := src.Fetch(context.Background(), CollectionParts)
	assert.ErrorIs(t, err, ErrNoCollectionURL)
}

func TestHTTPSource_ContextCancellation(t *testing.T) {
	src := newTestHTTPSource(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.Fetch(ctx, CollectionHotspots)
	assert.Error(t, err)
}
