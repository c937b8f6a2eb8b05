// Package gateway implements the client for the hosted backend-as-a-service:
// auth accounts, row-level table access and object storage. Every call is a
// plain request/response over HTTPS; the hard parts (password hashing,
// referential integrity, storage) live on the other side of the wire.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/danuputra/tokoku/pkg/logger"
)

// Config defines connection parameters for the gateway client.
type Config struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	AnonKey string        `mapstructure:"anon_key" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TokenSource supplies the bearer token for authenticated calls. The session
// actor implements it; an empty token falls back to the anon key.
type TokenSource interface {
	AccessToken() string
}

// APIError is a non-2xx gateway response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("gateway: %d %s", e.Status, e.Message)
}

// Client talks to the remote data gateway.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	tokens  TokenSource
	events  *AuthEvents
	log     *slog.Logger
}

// New constructs a gateway client. httpClient may carry a middleware
// transport chain; nil falls back to a default client with cfg.Timeout.
func New(cfg Config, httpClient *http.Client, tokens TokenSource, log *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		anonKey: cfg.AnonKey,
		http:    httpClient,
		tokens:  tokens,
		events:  NewAuthEvents(),
		log:     log,
	}
}

// Events exposes the auth-state event hub for subscribers.
func (c *Client) Events() *AuthEvents {
	return c.events
}

// HealthCheck probes the REST surface so the health checker can report
// gateway reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/rest/v1/", nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req, "")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("gateway unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// do issues a JSON request and decodes the response into dest when dest is
// non-nil. bearer overrides the token source for calls that must run with a
// specific token (e.g. the rollback delete with a just-issued session).
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	c.applyHeaders(req, "")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(resp)
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) applyHeaders(req *http.Request, bearer string) {
	if bearer == "" && c.tokens != nil {
		bearer = c.tokens.AccessToken()
	}
	if bearer == "" {
		bearer = c.anonKey
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	if correlationID := logger.CorrelationIDFromContext(req.Context()); correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(raw) > 0 {
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			// Some auth endpoints answer {"error_description": "..."} or plain text.
			var alt struct {
				ErrorDescription string `json:"error_description"`
				Msg              string `json:"msg"`
				Err              string `json:"error"`
			}
			if jsonErr := json.Unmarshal(raw, &alt); jsonErr == nil {
				switch {
				case alt.ErrorDescription != "":
					apiErr.Message = alt.ErrorDescription
				case alt.Msg != "":
					apiErr.Message = alt.Msg
				case alt.Err != "":
					apiErr.Message = alt.Err
				}
			}
			if apiErr.Message == "" {
				apiErr.Message = string(raw)
			}
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

func closeBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}
