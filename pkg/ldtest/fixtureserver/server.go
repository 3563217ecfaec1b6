// Package fixtureserver is a small in-process stand-in for a flag-service
// HTTP endpoint, used by requestor/datasource/events tests instead of
// hitting the network. Routed with chi, the same router library the
// teacher's go.mod carries (the teacher's own generated HTTP service wires
// an oapi-codegen-generated handler onto a chi-compatible mux; this package
// plays that same role by hand for tests, since there's no OpenAPI schema
// to generate a server from here).
package fixtureserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Server is a mutable fake /sdk/latest-all + /bulk endpoint.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	snapshotBody []byte
	etag         string
	bulkBodies   [][]byte
	status       int
}

// New starts a fixture server with an initial snapshot body for
// /sdk/latest-all and default 200 responses elsewhere.
func New(initialSnapshot []byte) *Server {
	s := &Server{snapshotBody: initialSnapshot, status: http.StatusOK}
	r := chi.NewRouter()
	r.Get("/sdk/latest-all", s.handleLatestAll)
	r.Post("/bulk", s.handleBulk)
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) handleLatestAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != http.StatusOK {
		w.WriteHeader(s.status)
		return
	}
	if s.etag != "" && r.Header.Get("If-None-Match") == s.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if s.etag != "" {
		w.Header().Set("ETag", s.etag)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.snapshotBody)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.bulkBodies = append(s.bulkBodies, body)
	status := s.status
	s.mu.Unlock()

	// net/http sets the Date response header automatically.
	w.WriteHeader(status)
}

// SetSnapshot updates the body /sdk/latest-all serves and its ETag.
func (s *Server) SetSnapshot(body []byte, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotBody = body
	s.etag = etag
}

// SetStatus forces every subsequent response to this status code.
func (s *Server) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// BulkBodies returns every body posted to /bulk so far.
func (s *Server) BulkBodies() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.bulkBodies))
	copy(out, s.bulkBodies)
	return out
}
