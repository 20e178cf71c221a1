// Package api implements the deposit backend's JSON-over-HTTPS contract.
//
// Calls are single-shot: a transport failure is surfaced once as a
// *domain.TransportError and never retried here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/metrics"
)

// Config holds backend client settings.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Proxy format: host:port, host:port:user:pass or host:port:user:pass:socks5
	Proxy string
}

// HealthStatus represents the observed health of the backend.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// Client talks to the deposit backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.Proxy != "" {
		configureProxy(transport, cfg.Proxy)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// response is a completed HTTP exchange.
type response struct {
	StatusCode int
	Body       []byte
}

// do performs one request. Only network-level failures are returned as
// errors; status handling is left to the caller.
func (c *Client) do(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body any,
) (*response, error) {
	start := time.Now()

	urlStr := c.baseURL + path
	if len(query) > 0 {
		urlStr += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		metrics.BackendRequests.WithLabelValues(op, "error").Inc()
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		metrics.BackendRequests.WithLabelValues(op, "error").Inc()
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	latency := time.Since(start)
	metrics.BackendLatency.WithLabelValues(op).Observe(latency.Seconds())
	metrics.BackendRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= http.StatusInternalServerError {
		c.recordFailure()
	} else {
		c.recordSuccess(latency)
	}

	return &response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// doJSON performs a request that must answer 200 and decodes the body into out.
func (c *Client) doJSON(
	ctx context.Context,
	op, method, path string,
	query url.Values,
	body any,
	out any,
) error {
	resp, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *response) error {
	body := strings.TrimSpace(string(resp.Body))
	if len(body) > 512 {
		body = body[:512]
	}
	return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Body: body}
}

// Health returns the backend's observed health.
func (c *Client) Health() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true

	if c.requestCount > 0 {
		c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	}
	if c.successCount > 0 {
		c.health.Latency = c.totalLatency / time.Duration(c.successCount)
	}
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.LastFailureAt = time.Now()

	if c.requestCount > 0 {
		c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	}

	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}
