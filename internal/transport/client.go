// Package transport provides the authenticated HTTP client shared by every
// remote call fwdsync makes. All outbound requests go through Client.Do,
// which applies the bounded-retry policy: client errors fail immediately,
// server errors and rate limits retry with exponential backoff, and network
// errors retry under the same policy.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/forwardops/fwdsync/pkg/constants"
	errs "github.com/forwardops/fwdsync/pkg/errors"
	"github.com/forwardops/fwdsync/pkg/logging"
)

// Client performs HTTP requests with authentication and bounded retries.
type Client struct {
	http   *http.Client
	auth   Authenticator
	policy Policy
	dryRun bool
	sleep  func(time.Duration)
	log    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithDryRun makes mutating requests log their intent and return success
// without touching the network. Read requests still go out.
func WithDryRun(dry bool) Option {
	return func(c *Client) { c.dryRun = dry }
}

// WithSleep replaces the backoff sleep function. Tests use this to observe
// delays without waiting on them.
func WithSleep(f func(time.Duration)) Option {
	return func(c *Client) { c.sleep = f }
}

// WithLogger sets the logger used for attempt and outcome logging.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:   auth,
		policy: DefaultPolicy,
		sleep:  time.Sleep,
		log:    *logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one logical remote call.
type Request struct {
	Method string
	URL    string

	// Query parameters appended to the URL, if any.
	Query url.Values

	// Header entries set on every attempt, if any.
	Header http.Header

	// Payload is JSON-encoded as the request body when non-nil.
	Payload any

	// Subject identifies the record this call is for and is included in
	// every log line (e.g. "device=sw-lab-01").
	Subject string
}

// Response is the result of a successful call.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do performs the request under the client's retry policy. It returns a
// non-nil error for fatal client errors and for transient failures that
// survive every attempt; it never swallows a failure.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.dryRun && req.Method != http.MethodGet {
		payload, _ := json.Marshal(req.Payload)
		c.log.Info().
			Str("method", req.Method).
			Str("url", req.URL).
			Str("subject", req.Subject).
			RawJSON("payload", payload).
			Msg("[dry-run] Skipping request")
		return &Response{StatusCode: http.StatusOK}, nil
	}

	var lastErr error
	delay := c.policy.InitialDelay

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		resp, err := c.attempt(ctx, req, attempt)
		if err != nil {
			// Network-level failure: no response to classify.
			c.log.Warn().
				Str("subject", req.Subject).
				Int("attempt", attempt).
				Int("max_attempts", c.policy.MaxAttempts).
				Err(err).
				Msg("Network error")
			lastErr = err
			if attempt == c.policy.MaxAttempts {
				break
			}
			if err := c.wait(ctx, delay); err != nil {
				return nil, err
			}
			delay = c.policy.NextDelay(delay)
			continue
		}

		switch Classify(resp.StatusCode) {
		case OutcomeSuccess:
			c.log.Info().
				Str("method", req.Method).
				Str("subject", req.Subject).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Msg("Request succeeded")
			return resp, nil

		case OutcomeFatal:
			c.log.Error().
				Str("method", req.Method).
				Str("url", req.URL).
				Str("subject", req.Subject).
				Int("status", resp.StatusCode).
				Str("response", string(resp.Body)).
				Msg("Client error, not retrying")
			return nil, errs.NewAPIError(req.URL, resp.StatusCode, string(resp.Body))

		case OutcomeRetry:
			c.log.Warn().
				Str("subject", req.Subject).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Int("max_attempts", c.policy.MaxAttempts).
				Str("response", string(resp.Body)).
				Msg("Server error")
			lastErr = errs.NewAPIError(req.URL, resp.StatusCode, string(resp.Body))
			if attempt == c.policy.MaxAttempts {
				break
			}
			if err := c.wait(ctx, delay); err != nil {
				return nil, err
			}
			delay = c.policy.NextDelay(delay)
		}
	}

	return nil, fmt.Errorf("%s %s: %w after %d attempts: %w",
		req.Method, req.URL, errs.ErrRetriesExhausted, c.policy.MaxAttempts, lastErr)
}

// attempt builds and sends the request once. The body is marshaled fresh on
// every attempt so retries never reuse a drained reader.
func (c *Client) attempt(ctx context.Context, req Request, attempt int) (*Response, error) {
	var body io.Reader
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, errs.WrapParse("json", "request payload", err)
		}
		body = bytes.NewReader(data)
	}

	target := req.URL
	if len(req.Query) > 0 {
		target = req.URL + "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	c.auth.Apply(httpReq)

	c.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Str("subject", req.Subject).
		Int("attempt", attempt).
		Int("max_attempts", c.policy.MaxAttempts).
		Msg("Sending request")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errs.WrapIO("read", "response body", err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: data}, nil
}

// wait sleeps for the given backoff delay, honoring context cancellation.
func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleep(delay)
	return nil
}

// DecodeJSON decodes a response body into the target structure.
func DecodeJSON(resp *Response, target any) error {
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return errs.WrapParse("json", "response", err)
	}
	return nil
}
