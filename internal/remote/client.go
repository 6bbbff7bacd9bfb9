// Package remote talks to the hosted catalog service.
//
// Client implements the paginated REST fetches the sync orchestrator needs;
// Subscriber maintains a WebSocket subscription for push updates between
// syncs. Both treat the remote as authoritative and never write to it.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Vadko/lbk-launcher/internal/catalog"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	retryBaseDelay  = 500 * time.Millisecond
	maxResponseSize = 64 << 20 // 64 MiB per page
)

// ClientConfig holds catalog client configuration.
type ClientConfig struct {
	// BaseURL of the catalog API, e.g. https://api.example.com
	BaseURL string

	// Timeout per HTTP request (default: 30s).
	Timeout time.Duration

	// Retries is the number of attempts per request (default: 3).
	Retries int

	// Logger for request activity (default: stderr logger).
	Logger *log.Logger
}

// Client fetches catalog pages over HTTP. It implements the Fetcher contract
// used by the sync orchestrator: transient failures (network errors, 5xx)
// are retried with backoff; anything that survives the retry budget is
// returned to the caller.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	retries int
	logger  *log.Logger
}

// NewClient creates a catalog client for the given API base URL.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("catalog API base URL is required")
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog API URL %q: %w", config.BaseURL, err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := config.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[remote] ", log.LstdFlags)
	}

	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		logger:  logger,
	}, nil
}

// FetchApproved returns one page of the approved catalog.
func (c *Client) FetchApproved(ctx context.Context, offset, limit int) ([]*catalog.Game, error) {
	query := url.Values{}
	query.Set("approved", "true")
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var games []*catalog.Game
	if err := c.getJSON(ctx, "/v1/games", query, &games); err != nil {
		return nil, fmt.Errorf("failed to fetch approved games: %w", err)
	}
	return games, nil
}

// FetchUpdatedSince returns one page of approved rows updated after since.
func (c *Client) FetchUpdatedSince(ctx context.Context, since time.Time, offset, limit int) ([]*catalog.Game, error) {
	query := url.Values{}
	query.Set("approved", "true")
	query.Set("updated_after", since.UTC().Format(time.RFC3339))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	var games []*catalog.Game
	if err := c.getJSON(ctx, "/v1/games", query, &games); err != nil {
		return nil, fmt.Errorf("failed to fetch updated games: %w", err)
	}
	return games, nil
}

// FetchDeletedIDs returns the remote tombstone list, optionally bounded by a
// deletion-time lower bound.
func (c *Client) FetchDeletedIDs(ctx context.Context, since *time.Time) ([]string, error) {
	query := url.Values{}
	if since != nil {
		query.Set("deleted_after", since.UTC().Format(time.RFC3339))
	}

	var ids []string
	if err := c.getJSON(ctx, "/v1/games/deleted", query, &ids); err != nil {
		return nil, fmt.Errorf("failed to fetch deleted ids: %w", err)
	}
	return ids, nil
}

// getJSON performs a GET with retries and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-2))
			c.logger.Printf("Retrying %s in %v (attempt %d/%d): %v",
				path, delay, attempt, c.retries, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.doGet(ctx, u.String(), out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) doGet(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode >= 500 {
			return &transientError{err}
		}
		return err
	}

	body := io.LimitReader(resp.Body, maxResponseSize)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// transientError marks failures worth retrying: network errors and 5xx.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
