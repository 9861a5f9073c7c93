package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// maxErrorBody caps how much of an error response is kept in a FetchError.
const maxErrorBody = 512

// Transport issues a GET and returns the response payload.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, url string) ([]byte, error)

// Get calls f(ctx, url).
func (f TransportFunc) Get(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPTransport is the default Transport. It gates requests through a rate
// limiter, retries transient failures with exponential backoff and reports
// every failure as a *FetchError.
type HTTPTransport struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	userAgent  string
	retry      RetryConfig
	logger     zerolog.Logger
}

// NewHTTPTransport creates the transport described by cfg.
func NewHTTPTransport(cfg Config, logger zerolog.Logger) *HTTPTransport {
	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}

	return &HTTPTransport{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    ratelimit.NewLimiter(cfg.RateLimit, cfg.RateBurst, logger),
		userAgent:  cfg.UserAgent,
		retry:      retry,
		logger:     logger,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (t *HTTPTransport) SetHTTPClient(client *http.Client) {
	t.httpClient = client
}

// Limiter returns the rate limiter shared by all requests of the transport.
func (t *HTTPTransport) Limiter() *ratelimit.Limiter {
	return t.limiter
}

// Get fetches rawURL, retrying server, rate limit and network failures.
func (t *HTTPTransport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	endpoint := endpointLabel(rawURL)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, t.retry, t.logger, func() error {
		var attemptErr error
		body, attemptErr = t.do(ctx, rawURL, endpoint)
		return attemptErr
	})
	if err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			// Context ended while waiting for the limiter or a backoff
			err = &FetchError{URL: rawURL, Class: ErrorClassNetwork, Err: err}
		}
		return nil, err
	}
	return body, nil
}

// do performs a single attempt.
func (t *HTTPTransport) do(ctx context.Context, rawURL, endpoint string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Class: ErrorClassClient, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	t.logger.Debug().
		Str("url", rawURL).
		Str("method", req.Method).
		Msg("Executing API request")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		class := classifyError(nil, err)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		t.logger.Debug().Err(err).Str("url", rawURL).Msg("HTTP request failed")
		return nil, &FetchError{URL: rawURL, Class: class, Err: err}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyError(resp, nil)
		errorsTotal.WithLabelValues(string(class)).Inc()
		requestsTotal.WithLabelValues(endpoint, status).Inc()

		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Warn().
			Str("url", rawURL).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")

		msg := resp.Status
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg += ": " + s
		}
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Class:      class,
			Err:        errors.New(msg),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassNetwork,
			Err:        fmt.Errorf("read body: %w", err),
		}
	}

	requestsTotal.WithLabelValues(endpoint, status).Inc()
	return body, nil
}

// classifyError categorizes a failed attempt for observability and retries.
func classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// endpointLabel maps a request URL to a low-cardinality metric label: the
// resource kind ("/api/v2/pokemon/25/" gives "pokemon").
func endpointLabel(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		return part
	}
	return "unknown"
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}
