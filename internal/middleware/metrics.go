package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/danuputra/tokoku/pkg/metrics"
)

// Metrics measures outbound request counts and latency per method and
// status class.
func Metrics() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			status := "error"
			if err == nil {
				status = fmt.Sprintf("%dxx", resp.StatusCode/100)
			}

			metrics.RecordGatewayRequest(req.Method, status, duration)
			return resp, err
		})
	}
}
