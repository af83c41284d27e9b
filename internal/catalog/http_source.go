package catalog

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/katalogpart/katalog-server/internal/ratelimit"
)

const (
	defaultRPS     = 2.0
	defaultBurst   = 3
	defaultTimeout = 20 * time.Second

	// Upper bound on one collection body.
	maxBodyBytes = 32 << 20
)

// Sentinel errors for HTTP source fetches.
var (
	ErrNotFound        = errors.New("catalog: collection not found")
	ErrRateLimited     = errors.New("catalog: rate limited by upstream")
	ErrServer          = errors.New("catalog: upstream server error")
	ErrUnknownFormat   = errors.New("catalog: unrecognised collection payload")
	ErrNoCollectionURL = errors.New("catalog: no url configured for collection")
)

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	ImagesURL   string
	HotspotsURL string
	PartsURL    string

	RequestsPerSec float64
	Timeout        time.Duration
}

// HTTPSource reads collections from spreadsheet-backed JSON endpoints.
// Requests are rate limited per upstream host.
type HTTPSource struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	urls    map[Collection]string
	logger  *slog.Logger
}

// NewHTTPSource creates an HTTP source.
func NewHTTPSource(opts HTTPOptions, logger *slog.Logger) *HTTPSource {
	rps := opts.RequestsPerSec
	if rps <= 0 {
		rps = defaultRPS
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPSource{
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(rps, defaultBurst),
		urls: map[Collection]string{
			CollectionImages:   opts.ImagesURL,
			CollectionHotspots: opts.HotspotsURL,
			CollectionParts:    opts.PartsURL,
		},
		logger: logger,
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Close releases the rate limiter.
func (s *HTTPSource) Close() {
	s.limiter.Stop()
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, c Collection) ([]Row, error) {
	raw := s.urls[c]
	if raw == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCollectionURL, c)
	}

	body, err := s.doRequest(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c, err)
	}

	rows, err := decodeRows(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}

	s.logger.Debug("collection fetched", "collection", c, "rows", len(rows))
	return rows, nil
}

func (s *HTTPSource) doRequest(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if err := s.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Katalog/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// decodeRows accepts a bare array of objects or an object wrapping one under
// data, rows, or items.
func decodeRows(body []byte) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}

	var wrapped map[string]any
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, ErrUnknownFormat
	}
	for _, key := range []string{"data", "rows", "items"} {
		list, ok := wrapped[key].([]any)
		if !ok {
			continue
		}
		rows = make([]Row, 0, len(list))
		for _, item := range list {
			if obj, ok := item.(map[string]any); ok {
				rows = append(rows, Row(obj))
			}
		}
		return rows, nil
	}
	return nil, ErrUnknownFormat
}
