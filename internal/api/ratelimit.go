package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/katalogpart/katalog-server/internal/errors"
	"github.com/katalogpart/katalog-server/internal/http/response"
	"github.com/katalogpart/katalog-server/internal/ratelimit"
)

// RateLimitMiddleware creates a middleware that rate limits requests by IP.
// Returns 429 Too Many Requests when limit is exceeded.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r.RemoteAddr, r.Header.Get("X-Forwarded-For"))

			if !limiter.Allow(key) {
				logger.Warn("rate limit exceeded", "ip", key, "path", r.URL.Path)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitEvents is the huma counterpart of RateLimitMiddleware for viewer events.
func (s *Server) limitEvents(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr(), ctx.Header("X-Forwarded-For"))
	if !s.eventLimiter.Allow(key) {
		s.logger.Warn("viewer event rate limit exceeded", "ip", key)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many viewer events",
			domainerrors.RateLimited("too many viewer events"))
		return
	}
	next(ctx)
}

// clientIP prefers the first X-Forwarded-For hop and falls back to the
// remote address without its port.
func clientIP(remoteAddr, forwardedFor string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
