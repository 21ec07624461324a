// Package analysis wraps the external narrative-analysis service. The
// endpoint is an opaque collaborator reached over HTTP; this client only adds
// the bounded retry policy the dashboards were tuned against.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Retry policy: fixed budget, fixed delay, no backoff. The submit request
// blocks the caller for the whole window, so changing these constants changes
// user-visible latency.
const (
	maxAttempts = 5
	retryDelay  = 2000 * time.Millisecond
)

// Error reports an exhausted retry budget.
type Error struct {
	Attempts int
	Last     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analysis failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *Error) Unwrap() error { return e.Last }

type Client struct {
	endpoint   string
	httpClient *http.Client
	sleep      func(time.Duration)
	log        zerolog.Logger
}

func New(endpoint string, logger zerolog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		sleep:      time.Sleep,
		log:        logger,
	}
}

// GenerateReport posts the form document to the analysis endpoint and returns
// the report document. A non-2xx response and a transport error both consume
// an attempt; every attempt after the first waits the fixed delay first.
func (c *Client) GenerateReport(ctx context.Context, form json.RawMessage) (json.RawMessage, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(retryDelay)
		}
		report, err := c.call(ctx, form)
		if err == nil {
			return report, nil
		}
		lastErr = err
		c.log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Err(err).
			Msg("analysis request failed")
	}
	return nil, &Error{Attempts: maxAttempts, Last: lastErr}
}

func (c *Client) call(ctx context.Context, form json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(form))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post form: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("analysis endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("analysis endpoint returned invalid JSON")
	}
	return body, nil
}
