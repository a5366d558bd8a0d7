package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockBackend is a minimal stand-in for the assistant backend. Handlers
// can be overridden per test; unhandled paths return 404 with a JSON
// detail, like the real server.
type MockBackend struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// RecordedRequest captures one request the mock received.
type RecordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// NewMockBackend starts a mock backend; it is shut down with the test.
func NewMockBackend(t *testing.T) *MockBackend {
	t.Helper()
	m := &MockBackend{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.dispatch))
	t.Cleanup(m.Server.Close)
	return m
}

// Handle registers a handler for "METHOD /path".
func (m *MockBackend) Handle(route string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = h
}

// HandleJSON registers a handler that responds with status and a JSON body.
func (m *MockBackend) HandleJSON(route string, status int, body interface{}) {
	m.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// Requests returns a copy of everything the mock has received so far.
func (m *MockBackend) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockBackend) dispatch(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	h, ok := m.handlers[r.Method+" "+r.URL.Path]
	m.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
		return
	}
	h(w, r)
}
