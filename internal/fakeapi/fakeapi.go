// Package fakeapi is an in-process users API for exercising suites end to
// end. It records every request and supports per-path fault injection.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// User is the resource served under /users.
type User struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Created string `json:"created"`
}

// Recorded captures one request as the server saw it.
type Recorded struct {
	Method  string
	Path    string
	Query   map[string][]string
	Headers http.Header
	Body    []byte
	Status  int
}

// Fault replaces the handler for one path.
type Fault struct {
	Status int
	Body   string
	Delay  time.Duration
}

// Server is the fake API. The zero value is not usable; call New.
type Server struct {
	mu       sync.RWMutex
	users    map[int]User
	nextID   int
	requests []Recorded
	faults   map[string]Fault

	router chi.Router
}

// New creates a Server seeded with two users.
func New() *Server {
	s := &Server{
		users:  make(map[int]User),
		nextID: 1,
		faults: make(map[string]Fault),
	}
	s.seed(User{Name: "alice", Email: "alice@example.com", Created: "2024-01-15"})
	s.seed(User{Name: "bob", Email: "bob@example.com", Created: "2024-02-01"})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFaults)

	r.Get("/users", s.handleListUsers)
	r.Post("/users", s.handleCreateUser)
	r.Get("/users/{id}", s.handleGetUser)
	r.Delete("/users/{id}", s.handleDeleteUser)
	r.Get("/search", s.handleSearch)
	r.Get("/echo", s.handleEcho)
	r.Post("/echo", s.handleEcho)
	r.Get("/text", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "plain text, not json")
	})
	s.router = r
	return s
}

// Start serves s on a loopback listener until the returned server is closed.
func Start() (*Server, *httptest.Server) {
	s := New()
	return s, httptest.NewServer(s)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Fail injects a fault for path. A zero Status only delays.
func (s *Server) Fail(path string, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[path] = f
}

// Requests returns a copy of the recorded requests in arrival order.
func (s *Server) Requests() []Recorded {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for one path.
func (s *Server) RequestsTo(path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// seed stores u under the next id. Callers hold s.mu or own s exclusively.
func (s *Server) seed(u User) User {
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = u
	return u
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.Query(),
			Headers: r.Header.Clone(),
			Body:    body,
			Status:  rec.status,
		})
		s.mu.Unlock()
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		f, ok := s.faults[r.URL.Path]
		s.mu.RUnlock()
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if f.Delay > 0 {
			select {
			case <-time.After(f.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if f.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.Status)
		if f.Body != "" {
			fmt.Fprint(w, f.Body)
		} else {
			fmt.Fprintf(w, `{"error":"injected fault","code":%d}`, f.Status)
		}
	})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if u.Name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "name is required"})
		return
	}
	if u.Created == "" {
		u.Created = time.Now().UTC().Format("2006-01-02")
	}

	s.mu.Lock()
	u = s.seed(u)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id must be an integer"})
		return
	}
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not found", "id": id})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id must be an integer"})
		return
	}
	s.mu.Lock()
	_, ok := s.users[id]
	delete(s.users, id)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "user not found", "id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch echoes user_id as a number along with any matching user.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "user_id must be an integer", "got": raw})
		return
	}
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()

	results := []User{}
	if ok {
		results = append(results, u)
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "results": results})
}

// handleEcho returns the method, query, headers and decoded body it received.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var decoded any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = string(body)
		}
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"query":   r.URL.Query(),
		"headers": headers,
		"body":    decoded,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
