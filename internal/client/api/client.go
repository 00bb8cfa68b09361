// Package api is the network service for the addrhub client: a JSON HTTP
// client that injects the bearer token on every authenticated call and
// maps transport and server failures onto the shared sentinel errors.
// Retry policy for transient failures on idempotent reads lives here, not
// in the repositories.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dkotenko/addrhub/internal/common"
	"github.com/dkotenko/addrhub/internal/logging"
)

const (
	requestTimeout = 12 * time.Second
	retryBase      = 100 * time.Millisecond
	retryMax       = 3
)

// TokenSource supplies the current access token; ok is false when logged
// out, in which case the request is sent unauthenticated.
type TokenSource func() (token string, ok bool)

// Client talks to the remote account service.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
	log     logging.Logger
}

// New returns a client rooted at baseURL. token may be nil for a client
// that only performs unauthenticated calls (e.g. the code exchange).
func New(baseURL string, token TokenSource, log logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		token:   token,
		log:     log,
	}
}

// envelope is the service's standard response wrapper.
type envelope struct {
	Response json.RawMessage `json:"response"`
}

// Get performs an authenticated read, retrying transient failures with
// fibonacci backoff. out may be nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	backoff := retry.WithMaxRetries(retryMax, retry.NewFibonacci(retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Post performs an authenticated write. Writes are never retried here;
// reconciliation of failed writes is the repositories' concern.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Delete performs an authenticated delete.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok, ok := c.token(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		c.log.Debug(ctx, "request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return err
	}
	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", common.ErrUnavailable, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return common.ErrUnauthorized
	case code == http.StatusNotFound:
		return common.ErrNotFound
	case code >= 500:
		return fmt.Errorf("%w: status %d", common.ErrUnavailable, code)
	default:
		return fmt.Errorf("%w: status %d", common.ErrValidation, code)
	}
}

func isTransient(err error) bool {
	return err != nil && errors.Is(err, common.ErrUnavailable)
}
