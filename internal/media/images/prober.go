// Package images measures figure images: natural size, format and a BlurHash
// placeholder shown while the real image loads.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/katalogpart/katalog-server/internal/domain"
)

const (
	// maxImageSize limits download size to prevent memory exhaustion.
	maxImageSize = 15 * 1024 * 1024

	downloadTimeout = 30 * time.Second
)

// Probe errors.
var (
	ErrEmptyURL  = errors.New("images: empty url")
	ErrTooLarge  = errors.New("images: image exceeds size limit")
	ErrBadStatus = errors.New("images: unexpected response status")
)

// Prober downloads and measures figure images.
type Prober struct {
	http     *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewProber creates a prober.
func NewProber(logger *slog.Logger) *Prober {
	return &Prober{
		http:     &http.Client{Timeout: downloadTimeout},
		maxBytes: maxImageSize,
		logger:   logger,
	}
}

// Probe fetches the image at url and returns its dimensions, format and
// BlurHash. A failed BlurHash still yields a probe without one.
func (p *Prober) Probe(ctx context.Context, url string) (*domain.ImageProbe, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}

	data, err := p.download(ctx, url)
	if err != nil {
		return nil, err
	}
	return p.measure(url, data)
}

func (p *Prober) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

func (p *Prober) measure(url string, data []byte) (*domain.ImageProbe, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	probe := &domain.ImageProbe{
		URL:    url,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: format,
	}

	if hash, err := ComputeBlurHash(img); err != nil {
		p.logger.Warn("blurhash failed", "url", url, "error", err)
	} else {
		probe.BlurHash = hash
	}

	p.logger.Debug("image probed",
		"url", url,
		"width", probe.Width,
		"height", probe.Height,
		"format", format,
		"size", len(data),
	)
	return probe, nil
}
