// Package bridge is the HTTP client for the conversational AI bridge
// service. It covers both chat modes — the blocking JSON call and the
// server-sent-event-style stream — plus the bridge's connectivity and
// configuration probes.
//
// Non-streaming calls are idempotent on the bridge side and retry with
// backoff on transient failures. Streaming calls are never retried: a
// half-consumed stream that was replayed would duplicate history.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rwahub/chatlink/pkg/chat"
	"github.com/rwahub/chatlink/pkg/logger"
	"github.com/rwahub/chatlink/pkg/sse"
)

const (
	// DefaultBaseURL is the bridge's default local address.
	DefaultBaseURL = "http://127.0.0.1:2026"

	chatPath       = "/api/v1/chat"
	connectionPath = "/api/v1/test/connection"
	configPath     = "/api/v1/config"
)

const (
	// defaultTimeout bounds both request paths. Assistant replies can be
	// slow, streaming ones especially.
	defaultTimeout = 5 * time.Minute

	defaultRetryMax     = 2
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 4 * time.Second
)

// Client talks to one bridge endpoint. It is safe for concurrent use.
type Client struct {
	baseURL string
	logger  *slog.Logger

	// httpClient serves the streaming path: one attempt, no retries.
	httpClient *http.Client

	// retryClient serves the non-streaming path with retry/backoff.
	retryClient *retryablehttp.Client
}

// Option configures a Client created with NewClient.
type Option func(*Client)

// WithLogger sets the client's logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds every request, streaming and non-streaming alike.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
		c.retryClient.HTTPClient.Timeout = d
	}
}

// WithRetry configures the retry budget for non-streaming calls. max is the
// number of retries after the first attempt; waits bound the backoff delay.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = max
		c.retryClient.RetryWaitMin = waitMin
		c.retryClient.RetryWaitMax = waitMax
	}
}

// WithRetryMax sets only the retry budget for non-streaming calls, keeping
// the default backoff bounds. Zero disables retries entirely.
func WithRetryMax(max int) Option {
	return func(c *Client) { c.retryClient.RetryMax = max }
}

// NewClient creates a Client for the bridge at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.HTTPClient.Timeout = defaultTimeout
	// retryablehttp's own logging is line noise next to ours.
	rc.Logger = nil

	c := &Client{
		baseURL:     baseURL,
		logger:      logger.Nop(),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		retryClient: rc,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Chat performs a blocking chat call and returns the parsed response body.
func (c *Client) Chat(ctx context.Context, req chat.ChatRequest) (*chat.ChatResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending chat request",
		"url", c.baseURL+chatPath,
		"conversation_id", req.ConversationID,
	)

	resp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "chat", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "chat", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp chat.ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, &ProtocolError{Status: resp.StatusCode, Err: fmt.Errorf("decoding chat response: %w", err)}
	}

	return &chatResp, nil
}

// ChatStream performs a streaming chat call. Every decoded stream event is
// forwarded to onEvent synchronously, in arrival order. The call returns nil
// when the bridge signals end or closes the stream, and a TransportError if
// the connection fails mid-read. Malformed frames are logged and skipped;
// one bad frame never aborts an otherwise healthy stream.
func (c *Client) ChatStream(ctx context.Context, req chat.ChatRequest, onEvent func(chat.StreamEvent)) error {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	c.logger.Debug("opening chat stream",
		"url", c.baseURL+chatPath,
		"conversation_id", req.ConversationID,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Op: "chat stream", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &ProtocolError{Status: resp.StatusCode, Body: string(respBody)}
	}

	decoder := sse.NewDecoder(resp.Body)

	for {
		frame, err := decoder.Next()
		if err != nil {
			return &TransportError{Op: "chat stream read", Err: err}
		}
		if frame == nil {
			// Stream closed without an end event. The session's
			// reconciliation handles any pending content.
			return nil
		}

		ev, err := chat.ParseStreamEvent([]byte(frame.Data))
		if err != nil {
			c.logger.Debug("skipping malformed stream frame",
				"error", err,
				"frame", frame.Data,
			)
			continue
		}

		onEvent(*ev)

		if ev.Type == chat.EventEnd {
			return nil
		}
	}
}

// TestConnection probes the bridge's connectivity endpoint and returns the
// raw probe payload.
func (c *Client) TestConnection(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, connectionPath, "connection test")
}

// FetchConfig retrieves the bridge's advertised configuration.
func (c *Client) FetchConfig(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, configPath, "config fetch")
}

func (c *Client) getJSON(ctx context.Context, path, op string) (map[string]any, error) {
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}

	resp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, &ProtocolError{Status: resp.StatusCode, Err: fmt.Errorf("decoding %s response: %w", op, err)}
	}

	return payload, nil
}

// Verify interface compliance.
var _ chat.BridgeClient = (*Client)(nil)
