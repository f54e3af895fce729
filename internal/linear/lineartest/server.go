// Package lineartest provides an in-process Linear GraphQL endpoint for tests.
package lineartest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"linearmcp/internal/linear"
)

// Handler answers one operation. Returning a non-nil errs list yields a
// GraphQL error response with status 200.
type Handler func(vars map[string]any) (data any, errs []map[string]any)

// Call is a recorded request.
type Call struct {
	Operation string
	Variables map[string]any
}

// Server routes requests by operation name.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// New starts a server closed automatically at test cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{handlers: map[string]Handler{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Client returns a linear client pointed at the server.
func (s *Server) Client() *linear.Client {
	c := linear.New(s.URL, "lin_api_test")
	c.HTTPClient = s.Server.Client()
	return c
}

// Handle registers fn for the operation name.
func (s *Server) Handle(operation string, fn Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[operation] = fn
}

// Reply registers a fixed data payload for the operation name.
func (s *Server) Reply(operation string, data any) {
	s.Handle(operation, func(map[string]any) (any, []map[string]any) { return data, nil })
}

// Calls returns how many times an operation was requested.
func (s *Server) Calls(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Operation == operation {
			n++
		}
	}
	return n
}

// Last returns the most recent call for an operation.
func (s *Server) Last(operation string) (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Operation == operation {
			return s.calls[i], true
		}
	}
	return Call{}, false
}

// Total returns the number of requests served.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]any{{"message": "bad request"}}})
		return
	}
	op := linear.OperationName(req.Query)
	s.mu.Lock()
	s.calls = append(s.calls, Call{Operation: op, Variables: req.Variables})
	fn, ok := s.handlers[op]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": "no handler for " + op}},
		})
		return
	}
	data, errs := fn(req.Variables)
	body := map[string]any{"data": data}
	if errs != nil {
		body["errors"] = errs
	}
	_ = json.NewEncoder(w).Encode(body)
}

// Nodes wraps records in the `nodes` connection shape.
func Nodes(items ...any) map[string]any {
	if items == nil {
		items = []any{}
	}
	return map[string]any{"nodes": items}
}
