package oai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

// Transport sends one set of request parameters and returns the raw response.
type Transport interface {
	Send(ctx context.Context, params map[string]string) (*domain.RawResponse, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, params map[string]string) (*domain.RawResponse, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, params map[string]string) (*domain.RawResponse, error) {
	return f(ctx, params)
}

// HealthStatus represents the health state of a transport.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	Throttled     int           `json:"throttled"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// HTTPTransport implements Transport with form-encoded POST requests.
type HTTPTransport struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client

	mu            sync.RWMutex
	health        HealthStatus
	totalLatency  time.Duration
	successCount  int
	failureCount  int
	requestCount  int
	throttleCount int
}

// NewHTTPTransport creates a transport for the given base URL.
func NewHTTPTransport(endpoint string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		endpoint:  endpoint,
		userAgent: "harvester/1.0",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// Endpoint returns the base URL requests are sent to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Send posts params to the endpoint. Non-200 statuses are not errors here;
// only failures to obtain a response are.
func (t *HTTPTransport) Send(ctx context.Context, params map[string]string) (*domain.RawResponse, error) {
	start := time.Now()

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		t.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.recordFailure()
		return nil, fmt.Errorf("oai call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		t.recordSuccess(time.Since(start))
	case resp.StatusCode == http.StatusServiceUnavailable:
		t.recordThrottle()
	default:
		t.recordFailure()
	}

	return &domain.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// GetHealth returns the transport's health status.
func (t *HTTPTransport) GetHealth() HealthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h := t.health
	h.Throttled = t.throttleCount
	return h
}

// Close cleans up resources.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) recordSuccess(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.successCount++
	t.requestCount++
	t.totalLatency += latency
	t.health.LastSuccessAt = time.Now()
	t.health.Available = true

	if t.requestCount > 0 {
		t.health.ErrorRate = float64(t.failureCount) / float64(t.requestCount)
	}
	if t.successCount > 0 {
		t.health.Latency = t.totalLatency / time.Duration(t.successCount)
	}
}

// recordThrottle counts an overload response without marking the endpoint failed.
func (t *HTTPTransport) recordThrottle() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.throttleCount++
	t.requestCount++
	if t.requestCount > 0 {
		t.health.ErrorRate = float64(t.failureCount) / float64(t.requestCount)
	}
}

func (t *HTTPTransport) recordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failureCount++
	t.requestCount++
	t.health.LastFailureAt = time.Now()

	if t.requestCount > 0 {
		t.health.ErrorRate = float64(t.failureCount) / float64(t.requestCount)
	}

	if t.health.ErrorRate > 0.5 {
		t.health.Available = false
	}
}
