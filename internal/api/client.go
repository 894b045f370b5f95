// Package api is the REST client for the TaskProX backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/existflow/taskprox/internal/logger"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultAuthPrefix = "/auth"
	apiPrefix         = "/api"
)

// TokenSource supplies the bearer token attached to each request
type TokenSource interface {
	Token() string
}

// Options configures a Client
type Options struct {
	BaseURL    string
	AuthPrefix string
	Timeout    time.Duration
	Tokens     TokenSource
	HTTPClient *http.Client
}

// Client talks to the backend. Calls are never retried; a run of failures
// opens the circuit breaker and later calls fail fast until it recovers.
type Client struct {
	baseURL    string
	authPrefix string
	tokens     TokenSource
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logger.Logger
}

// NewClient creates a client for baseURL
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.AuthPrefix == "" {
		opts.AuthPrefix = DefaultAuthPrefix
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	log := logger.WithFields(logger.F("component", "api"))
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "taskprox-api",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		IsSuccessful: func(err error) bool {
			var apiErr *Error
			if errors.As(err, &apiErr) {
				// the server answered; only its own failures count
				return apiErr.Status > 0 && apiErr.Status < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				logger.F("breaker", name), logger.F("from", from.String()), logger.F("to", to.String()))
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		authPrefix: "/" + strings.Trim(opts.AuthPrefix, "/"),
		tokens:     opts.Tokens,
		httpClient: opts.HTTPClient,
		breaker:    breaker,
		log:        log,
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) authPath(p string) string {
	return c.authPrefix + p
}

func apiPath(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return apiPrefix + fmt.Sprintf(format, escaped...)
}

// do sends one request through the breaker and decodes a JSON reply into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &Error{Message: "server unavailable, try again shortly"}
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("Request failed", logger.F("method", method), logger.F("path", path),
			logger.F("request_id", requestID), logger.F("error", err))
		return &Error{Message: fmt.Sprintf("failed to connect: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	c.log.Debug("Request completed", logger.F("method", method), logger.F("path", path),
		logger.F("status", resp.StatusCode), logger.F("request_id", requestID),
		logger.F("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response: %v", err)}
	}
	return nil
}

// messageReply is the {"message": ...} acknowledgement most mutations return
type messageReply struct {
	Message string `json:"message"`
}
