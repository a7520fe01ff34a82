package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"scooter/internal/config"
	"scooter/internal/domain"
	"scooter/internal/metrics"
)

// Client is an HTTP client for the rental backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend Client. Outgoing requests are reported to
// New Relic as external segments when the request context carries a transaction.
func NewClient(cfg config.BackendConfig) *Client {
	baseURL := cfg.BaseURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newrelic.NewRoundTripper(http.DefaultTransport),
		},
	}
}

// UnlockResult is the outcome of a successful unlock.
type UnlockResult struct {
	// RentalID is empty when the backend does not report it on unlock.
	RentalID string
}

// LockResult is the outcome of a successful lock.
type LockResult struct {
	RentalID string
}

// envelope is the backend's response wrapper.
type envelope struct {
	Message  json.RawMessage `json:"message"`
	Redirect string          `json:"redirect"`
}

// Unlock asks the backend to unlock a scooter for a user and start a rental.
func (c *Client) Unlock(ctx context.Context, scooterID, userID string) (*UnlockResult, error) {
	path := "scooter/" + url.PathEscape(scooterID) + "/single-unlock?user_id=" + url.QueryEscape(userID)
	status, env, err := c.do(ctx, "unlock", http.MethodPost, path)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, rejection("unlock", status, env)
	}

	rentalID := ""
	if rental, err := decodeRental(env.Message); err == nil && rental != nil {
		rentalID = rental.ID
	}
	return &UnlockResult{RentalID: rentalID}, nil
}

// Lock asks the backend to lock a scooter and complete the user's rental.
func (c *Client) Lock(ctx context.Context, scooterID, userID string) (*LockResult, error) {
	path := "scooter/" + url.PathEscape(scooterID) + "/single-lock?user_id=" + url.QueryEscape(userID)
	status, env, err := c.do(ctx, "lock", http.MethodPost, path)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, rejection("lock", status, env)
	}

	rentalID := ""
	if rental, err := decodeRental(env.Message); err == nil && rental != nil {
		rentalID = rental.ID
	}
	return &LockResult{RentalID: rentalID}, nil
}

// GetRental retrieves a rental by ID.
func (c *Client) GetRental(ctx context.Context, rentalID string) (*domain.Rental, error) {
	env, err := c.read(ctx, "get_rental", "rental/"+url.PathEscape(rentalID))
	if err != nil {
		return nil, err
	}
	rental, err := decodeRental(env.Message)
	if err != nil {
		return nil, err
	}
	if rental == nil {
		return nil, ErrNotFound
	}
	return rental, nil
}

// ActiveRental retrieves the user's active rental.
func (c *Client) ActiveRental(ctx context.Context, userID string) (*domain.Rental, error) {
	env, err := c.read(ctx, "active_rental", "rental?user_id="+url.QueryEscape(userID))
	if err != nil {
		return nil, err
	}
	rental, err := decodeRental(env.Message)
	if err != nil {
		return nil, err
	}
	if rental == nil {
		return nil, ErrNotFound
	}
	return rental, nil
}

// PollStatus checks whether a rental may continue.
func (c *Client) PollStatus(ctx context.Context, rentalID string) (domain.PollResult, error) {
	env, err := c.read(ctx, "poll_status", "rental/ok/"+url.PathEscape(rentalID))
	if err != nil {
		return domain.PollResult{}, err
	}
	return decodePollResult(env.Message)
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	env, err := c.read(ctx, "get_user", "user/"+url.PathEscape(userID))
	if err != nil {
		return nil, err
	}
	user, err := decodeUser(env.Message)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetScooter retrieves a scooter by ID.
func (c *Client) GetScooter(ctx context.Context, scooterID string) (*domain.Scooter, error) {
	env, err := c.read(ctx, "get_scooter", "scooter/"+url.PathEscape(scooterID))
	if err != nil {
		return nil, err
	}
	scooter, err := decodeScooter(env.Message)
	if err != nil {
		return nil, err
	}
	if scooter == nil {
		return nil, ErrNotFound
	}
	return scooter, nil
}

// read performs a GET and maps non-2xx statuses to errors.
func (c *Client) read(ctx context.Context, operation, path string) (*envelope, error) {
	status, env, err := c.do(ctx, operation, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, ErrNotFound
	case status < 200 || status > 299:
		return nil, fmt.Errorf("backend %s: status %d: %w", operation, status, ErrUnavailable)
	}
	return env, nil
}

// do sends a request and decodes the response envelope.
func (c *Client) do(ctx context.Context, operation, method, path string) (int, *envelope, error) {
	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("backend %s: build request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackendRequest(operation, 0, started)
		return 0, nil, fmt.Errorf("backend %s: %w: %w", operation, ErrUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackendRequest(operation, resp.StatusCode, started)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("backend %s: read body: %w", operation, err)
	}

	env := &envelope{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, env); err != nil {
			// Error bodies are not always JSON; keep the status meaningful.
			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return resp.StatusCode, env, nil
			}
			return resp.StatusCode, nil, fmt.Errorf("backend %s: %w: %v", operation, ErrUnexpectedPayload, err)
		}
	}
	return resp.StatusCode, env, nil
}

func rejection(operation string, status int, env *envelope) *APIError {
	apiErr := &APIError{
		Operation:  operation,
		StatusCode: status,
		Reason:     env.Redirect,
	}
	var message string
	if err := json.Unmarshal(env.Message, &message); err == nil {
		apiErr.Message = message
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
