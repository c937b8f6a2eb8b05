package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danuputra/tokoku/internal/ratelimit"
)

// RateLimit throttles outbound requests per target host so the process
// stays inside the hosted backend's quota. The limiter failing open is
// deliberate: a broken limiter must not take the storefront down.
func RateLimit(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if limiter == nil || rules == nil {
				return next.RoundTrip(req)
			}

			limit, window, err := rules.OutboundLimit()
			if err != nil {
				log.Error("outbound rate limit rule unavailable", slog.Any("error", err))
				return next.RoundTrip(req)
			}

			key := "outbound:" + req.URL.Host
			result, err := limiter.Check(req.Context(), key, limit, window)
			if err != nil {
				log.Warn("rate limiter error", slog.String("host", req.URL.Host), slog.Any("error", err))
				return next.RoundTrip(req)
			}

			if !result.Allowed {
				log.Warn("outbound rate limit exceeded",
					slog.String("host", req.URL.Host),
					slog.Time("reset_at", result.ResetAt),
				)
				return nil, fmt.Errorf("%w: host %s", ratelimit.ErrLimitExceeded, req.URL.Host)
			}

			return next.RoundTrip(req)
		})
	}
}
