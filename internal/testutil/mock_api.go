// Package testutil provides testing utilities for the PokeAPI client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves resources under.
const APIPrefix = "/api/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock PokeAPI server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	listings map[string]*listing

	// Tracking
	requests   []string // request URIs in arrival order
	lastHeader http.Header
}

type listing struct {
	names    []string
	failures map[int]MockResponse // by offset
}

// NewMockAPI creates and starts a new mock server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		listings: make(map[string]*listing),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests = append(mock.requests, r.URL.RequestURI())
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if mock.serveListing(w, r) {
			return
		}

		writeResponse(w, NewNotFoundResponse())
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the URL to configure a client with.
func (m *MockAPI) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetResource serves v as JSON at APIPrefix/kind/ident/.
func (m *MockAPI) SetResource(kind, ident string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal %s/%s: %v", kind, ident, err))
	}
	m.SetResponse(ResourcePath(kind, ident), NewJSONResponse(string(body)))
}

// SetListing serves a paginated list endpoint for kind whose items are
// named references to names, honoring the offset and limit query
// parameters. Next links point back at the mock server.
func (m *MockAPI) SetListing(kind string, names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[kind] = &listing{
		names:    append([]string(nil), names...),
		failures: make(map[int]MockResponse),
	}
}

// FailListingPage makes the page of kind starting at offset answer resp.
func (m *MockAPI) FailListingPage(kind string, offset int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.listings[kind]; ok {
		l.failures[offset] = resp
	}
}

// RequestCount returns the number of requests made to the server.
func (m *MockAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// RequestCountFor returns the number of requests whose path, or full
// request URI when target contains a query, equals target.
func (m *MockAPI) RequestCountFor(target string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, uri := range m.requests {
		candidate := uri
		if !strings.Contains(target, "?") {
			candidate, _, _ = strings.Cut(uri, "?")
		}
		if candidate == target {
			n++
		}
	}
	return n
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// Requests returns the request URIs received so far, in order.
func (m *MockAPI) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

// RequestedOffsets returns the offset of every listing request for kind,
// in order.
func (m *MockAPI) RequestedOffsets(kind string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path := APIPrefix + "/" + kind + "/"
	var offsets []int
	for _, uri := range m.requests {
		p, query, _ := strings.Cut(uri, "?")
		if p != path {
			continue
		}
		values, _ := url.ParseQuery(query)
		offset, err := strconv.Atoi(values.Get("offset"))
		if err != nil {
			offset = 0
		}
		offsets = append(offsets, offset)
	}
	return offsets
}

// ResourcePath returns the path of a resource on the mock server.
func ResourcePath(kind, ident string) string {
	return APIPrefix + "/" + kind + "/" + ident + "/"
}

type namedReference struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type listPage struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []namedReference `json:"results"`
}

func (m *MockAPI) serveListing(w http.ResponseWriter, r *http.Request) bool {
	kind := strings.Trim(strings.TrimPrefix(r.URL.Path, APIPrefix), "/")

	m.mu.RLock()
	l, ok := m.listings[kind]
	var failure MockResponse
	var failed bool
	offset := queryInt(r, "offset", 0)
	if ok {
		failure, failed = l.failures[offset]
	}
	m.mu.RUnlock()

	if !ok {
		return false
	}
	if failed {
		writeResponse(w, failure)
		return true
	}

	limit := queryInt(r, "limit", 20)
	total := len(l.names)
	start := min(offset, total)
	end := min(offset+limit, total)

	page := listPage{Count: total, Results: []namedReference{}}
	for i := start; i < end; i++ {
		page.Results = append(page.Results, namedReference{
			Name: l.names[i],
			URL:  m.server.URL + ResourcePath(kind, strconv.Itoa(i+1)),
		})
	}
	if end < total {
		next := fmt.Sprintf("%s%s/%s/?offset=%d&limit=%d", m.server.URL, APIPrefix, kind, end, limit)
		page.Next = &next
	}
	if start > 0 {
		prev := fmt.Sprintf("%s%s/%s/?offset=%d&limit=%d", m.server.URL, APIPrefix, kind, max(start-limit, 0), limit)
		page.Previous = &prev
	}

	body, _ := json.Marshal(page)
	writeResponse(w, NewJSONResponse(string(body)))
	return true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type":  "application/json; charset=utf-8",
			"Cache-Control": "public, max-age=86400, s-maxage=86400",
		},
	}
}

// NewNotFoundResponse creates the 404 the API answers for unknown resources.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       "Not Found",
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  "1",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewFlakyHandler answers failure for the first failures requests, then
// success.
func NewFlakyHandler(failures int, failure, success MockResponse) http.HandlerFunc {
	var mu sync.Mutex
	seen := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen++
		n := seen
		mu.Unlock()

		if n <= failures {
			writeResponse(w, failure)
			return
		}
		writeResponse(w, success)
	}
}
