package acctlib

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/modacct/account-sdk/component/entities"
	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/values"
)

const (
	defaultForwardTimeout  = 30 * time.Second
	defaultMaxResponseSize = 10 * 1024 * 1024 // 10MB
	defaultRetryBackoff    = time.Second
	maxRetryBackoff        = 30 * time.Second
	callValueHeader        = "X-Call-Value"
)

// HTTPForwarderOption configures an HTTPForwarder.
type HTTPForwarderOption func(*httpForwarderConfig)

type httpForwarderConfig struct {
	client          *http.Client
	timeout         time.Duration
	maxResponseSize int64
	maxRetries      int
	retryBackoff    time.Duration
	logger          *slog.Logger
}

// WithHTTPClient overrides the HTTP client. The retry and timeout options are
// ignored when a client is supplied.
func WithHTTPClient(client *http.Client) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.client = client
	}
}

// WithForwardTimeout sets the per-call timeout. Default: 30s.
func WithForwardTimeout(timeout time.Duration) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.timeout = timeout
	}
}

// WithMaxResponseSize caps the callee response size in bytes. Default: 10MB.
func WithMaxResponseSize(limit int64) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.maxResponseSize = limit
	}
}

// WithMaxRetries sets the retry budget for transient failures. Default: 3.
func WithMaxRetries(n int) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the initial backoff between retries. Default: 1s.
func WithRetryBackoff(d time.Duration) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.retryBackoff = d
	}
}

// WithForwarderLogger sets the logger.
func WithForwarderLogger(logger *slog.Logger) HTTPForwarderOption {
	return func(c *httpForwarderConfig) {
		c.logger = logger
	}
}

// HTTPForwarder forwards external calls to an HTTP endpoint. Each call POSTs
// the raw payload to {base}/call/{target}; the callee's response body is the
// call result. Transient failures (429, 5xx, network errors) are retried with
// exponential backoff.
type HTTPForwarder struct {
	baseURL         string
	client          *http.Client
	maxResponseSize int64
	logger          *slog.Logger
}

// NewHTTPForwarder creates a forwarder posting to baseURL.
func NewHTTPForwarder(baseURL string, opts ...HTTPForwarderOption) (*HTTPForwarder, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid forwarder base URL: %w", err)
	}

	cfg := httpForwarderConfig{
		timeout:         defaultForwardTimeout,
		maxResponseSize: defaultMaxResponseSize,
		maxRetries:      3,
		retryBackoff:    defaultRetryBackoff,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.timeout,
			Transport: &retryTransport{
				maxRetries: cfg.maxRetries,
				backoff:    cfg.retryBackoff,
				maxBackoff: maxRetryBackoff,
				onRetry: func(attempt int, wait time.Duration, status int) {
					cfg.logger.Debug("retrying external call",
						"attempt", attempt,
						"wait", wait.String(),
						"status", status)
				},
			},
		}
	}

	return &HTTPForwarder{
		baseURL:         baseURL,
		client:          client,
		maxResponseSize: cfg.maxResponseSize,
		logger:          cfg.logger,
	}, nil
}

// Forward posts the call payload to the target's endpoint. A 2xx response
// body is the call result; any other status is returned as
// *entities.RawCallError carrying the exact response body.
func (f *HTTPForwarder) Forward(ctx context.Context, target values.Address, value uint64, payload []byte) ([]byte, error) {
	endpoint := f.baseURL + "/call/" + target.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build forward request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(callValueHeader, strconv.FormatUint(value, 10))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", target, err)
	}
	if int64(len(body)) > f.maxResponseSize {
		return nil, fmt.Errorf("response from %s exceeds the %d byte cap", target, f.maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug("external call failed",
			"target", target.String(),
			"status", resp.StatusCode,
			"body_bytes", len(body))
		return nil, &entities.RawCallError{Data: body}
	}
	return body, nil
}

var _ ports.Forwarder = (*HTTPForwarder)(nil)
