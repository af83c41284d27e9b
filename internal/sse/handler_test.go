package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalogpart/katalog-server/internal/logger"
)

func TestHandler_StreamsViewerEvents(t *testing.T) {
	m := startManager(t)
	h := NewHandler(m, func(r *http.Request) (string, bool) {
		id := r.URL.Query().Get("viewer")
		return id, id == "vw-a"
	}, logger.Discard())

	server := httptest.NewServer(h)
	defer server.Close()

	m.EmitToViewer("vw-a", NewRenderEvent("", []string{"mount"}))
	require.Eventually(t, func() bool { return m.Pending("vw-a") == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"?viewer=vw-a", nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for len(events) < 2 && scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"connected", "render"}, events)
}

func TestHandler_UnknownViewer(t *testing.T) {
	m := NewManager(logger.Discard())
	h := NewHandler(m, func(*http.Request) (string, bool) { return "", false }, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	m := NewManager(logger.Discard())
	h := NewHandler(m, func(*http.Request) (string, bool) { return "vw-1", true }, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Equal(t, 0, m.ClientCount())
}
