// Package functions implements the client for the serverless function
// gateway: wallet provisioning, reward-event emission, privileged user
// deletion and the admin user listing. All calls are bearer-authenticated
// with a session access token.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const rewardCreatedMessage = "Reward event created"

// Config defines connection parameters for the function gateway.
type Config struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RewardEventRequest is the payload for the create-reward-events function.
type RewardEventRequest struct {
	UserID          string            `json:"user_id"`
	RewardSettingID string            `json:"reward_setting_id"`
	Amount          int64             `json:"amount"`
	Note            string            `json:"note"`
	Status          string            `json:"status"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ListedUser is one entry of the admin user listing, an account joined with
// its profile.
type ListedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Client talks to the function gateway.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// New constructs a function gateway client.
func New(cfg Config, httpClient *http.Client, log *slog.Logger) *Client {
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

	return &Client{baseURL: cfg.BaseURL, http: httpClient, log: log}
}

// CreateWallet provisions the wallet for the account that owns accessToken.
// Anything but a 201 is a provisioning failure.
func (c *Client) CreateWallet(ctx context.Context, accessToken string) error {
	resp, err := c.call(ctx, http.MethodPost, "/create-wallet", accessToken, nil)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	defer drainBody(resp.Body)

	var body struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusCreated {
		msg := body.Err
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("create wallet: %s", msg)
	}

	c.log.Info("wallet provisioned", slog.String("message", body.Message))
	return nil
}

// CreateRewardEvent appends one reward ledger entry. The function confirms
// success with a fixed message; anything else is treated as a failure.
func (c *Client) CreateRewardEvent(ctx context.Context, accessToken string, req RewardEventRequest) error {
	if req.UserID == "" || req.RewardSettingID == "" || req.Status == "" {
		return fmt.Errorf("create reward event: incomplete payload")
	}

	resp, err := c.call(ctx, http.MethodPost, "/create-reward-events", accessToken, req)
	if err != nil {
		return fmt.Errorf("create reward event: %w", err)
	}
	defer drainBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("create reward event: %s", readError(resp))
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("create reward event: decode response: %w", err)
	}

	if body.Message != rewardCreatedMessage {
		return fmt.Errorf("create reward event: unexpected response %q", body.Message)
	}

	return nil
}

// DeleteUser removes an auth account through the privileged side channel.
// isRollback marks the call as a registration-saga compensating action.
func (c *Client) DeleteUser(ctx context.Context, accessToken, userID string, isRollback bool) error {
	if userID == "" || accessToken == "" {
		return fmt.Errorf("delete user: user id and access token are required")
	}

	payload := map[string]any{"user_id": userID, "isRollback": isRollback}

	resp, err := c.call(ctx, http.MethodDelete, "/delete-user", accessToken, payload)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	defer drainBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("delete user: %s", readError(resp))
	}

	return nil
}

// ListUsers fetches every account with its profile. Admin tokens only; the
// function rejects everyone else.
func (c *Client) ListUsers(ctx context.Context, accessToken string) ([]ListedUser, error) {
	resp, err := c.call(ctx, http.MethodGet, "/list-users", accessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer drainBody(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("list users: %s", readError(resp))
	}

	var body struct {
		Users []ListedUser `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("list users: decode response: %w", err)
	}

	return body.Users, nil
}

func (c *Client) call(ctx context.Context, method, path, accessToken string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return c.http.Do(req)
}

func readError(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil || len(raw) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}

	var body struct {
		Err string `json:"error"`
	}
	if jsonErr := json.Unmarshal(raw, &body); jsonErr == nil && body.Err != "" {
		return body.Err
	}

	return fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw))
}

func drainBody(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}
