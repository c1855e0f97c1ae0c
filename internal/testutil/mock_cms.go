// Package testutil provides testing utilities for the content cache.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock content endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCMS is a configurable mock content API server for testing.
type MockCMS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requests    map[string]int
	lastRequest map[string]*http.Request
}

// NewMockCMS creates a new mock content API server.
func NewMockCMS() *MockCMS {
	mock := &MockCMS{
		handlers:    make(map[string]http.HandlerFunc),
		requests:    make(map[string]int),
		lastRequest: make(map[string]*http.Request),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requests[r.URL.Path]++
		mock.lastRequest[r.URL.Path] = r.Clone(r.Context())
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"data":null,"error":{"status":404,"name":"NotFoundError","message":"no handler for %s"}}`, r.URL.Path)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCMS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCMS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCMS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.lastRequest = make(map[string]*http.Request)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCMS) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCMS) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetData serves data wrapped in the upstream {"data": ...} envelope.
func (m *MockCMS) SetData(path string, data any) {
	m.SetResponse(path, NewDataResponse(data))
}

// RequestCount returns how many requests hit path.
func (m *MockCMS) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// TotalRequests returns how many requests hit the server.
func (m *MockCMS) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// LastRequest returns the most recent request for path, or nil.
func (m *MockCMS) LastRequest(path string) *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequest[path]
}

// NewDataResponse creates a 200 OK response with data in the upstream envelope.
func NewDataResponse(data any) MockResponse {
	body, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal data: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewErrorResponse creates an upstream-style error response.
func NewErrorResponse(status int, name, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body: fmt.Sprintf(`{"data":null,"error":{"status":%d,"name":%q,"message":%q}}`,
			status, name, message),
		Headers: map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "InternalServerError", "Internal Server Error")
}

// NewSlowResponse creates a 200 OK response delivered after delay.
func NewSlowResponse(data any, delay time.Duration) MockResponse {
	resp := NewDataResponse(data)
	resp.Delay = delay
	return resp
}
