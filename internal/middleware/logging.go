package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danuputra/tokoku/pkg/logger"
)

// Logging logs every outbound request with its duration and status, tagging
// it with the correlation ID from the context (generating one when absent).
func Logging(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			correlationID := logger.CorrelationIDFromContext(req.Context())
			if correlationID == "" {
				correlationID = uuid.NewString()
				req = req.WithContext(logger.ContextWithCorrelationID(req.Context(), correlationID))
			}
			req.Header.Set("X-Correlation-ID", correlationID)

			start := time.Now()
			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			if err != nil {
				log.Error("outbound request failed",
					slog.String("method", req.Method),
					slog.String("host", req.URL.Host),
					slog.String("path", req.URL.Path),
					slog.Duration("duration", duration),
					slog.String("correlation_id", correlationID),
					slog.Any("error", err),
				)
				return nil, err
			}

			log.Debug("outbound request",
				slog.String("method", req.Method),
				slog.String("host", req.URL.Host),
				slog.String("path", req.URL.Path),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", duration),
				slog.String("correlation_id", correlationID),
			)

			return resp, nil
		})
	}
}
