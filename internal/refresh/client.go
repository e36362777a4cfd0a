package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "grindlogger-worker"

// Exercise is the slice of the remote collection's schema the refresher
// needs. The full schema is owned by the CRUD service.
type Exercise struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Client lists the remote collection and refreshes single items.
type Client interface {
	ListExercises(ctx context.Context) ([]Exercise, error)
	RefreshExercise(ctx context.Context, id int) error
}

// StatusError is a non-2xx response from the remote API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Transient reports whether an error is worth retrying: network failures and
// 5xx responses are, 4xx responses are not.
func Transient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// HTTPClient talks to the workout API over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client with a fixed per-request timeout shared by
// all calls.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListExercises fetches the whole collection via GET /exercises.
func (c *HTTPClient) ListExercises(ctx context.Context) ([]Exercise, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/exercises", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list exercises: %w", &StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	var items []Exercise
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("list exercises: decode: %w", err)
	}
	return items, nil
}

// RefreshExercise re-submits one item via PATCH /exercises/{id}.
func (c *HTTPClient) RefreshExercise(ctx context.Context, id int) error {
	url := fmt.Sprintf("%s/exercises/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("refresh exercise %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("refresh exercise %d: %w", id, &StatusError{Code: resp.StatusCode, Body: string(body)})
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
