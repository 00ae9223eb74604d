// Package sandbox serves an in-memory, reqres-compatible users API. It backs
// the `roster sandbox` command and the HTTP tests of the client packages.
package sandbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/logging"
)

const (
	DefaultPerPage  = 6
	DefaultBasePath = "/api"

	// DemoEmail and DemoPassword are the only credentials the sandbox accepts.
	DemoEmail    = "eve.holt@reqres.in"
	DemoPassword = "cityslicka"
)

// Options configure a Server.
type Options struct {
	BasePath string // route prefix, default "/api"; "/" mounts at the root
	PerPage  int
	APIKey   string // when set, requests must carry it in x-api-key
	Users    []api.User
	Logger   *slog.Logger
}

// Server holds the user records and the HTTP router.
type Server struct {
	mu      sync.RWMutex
	users   map[int64]api.User
	nextID  int64
	perPage int
	apiKey  string
	tokens  map[string]string // token -> email
	router  *mux.Router
	log     *slog.Logger
}

// New builds a Server seeded with opts.Users, or SeedUsers when empty.
func New(opts Options) *Server {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	seed := opts.Users
	if seed == nil {
		seed = SeedUsers()
	}
	s := &Server{
		users:   make(map[int64]api.User, len(seed)),
		perPage: perPage,
		apiKey:  strings.TrimSpace(opts.APIKey),
		tokens:  make(map[string]string),
		log:     logging.OrNop(opts.Logger),
	}
	for _, u := range seed {
		s.users[u.ID] = u
		if u.ID > s.nextID {
			s.nextID = u.ID
		}
	}
	s.router = s.routes(opts.BasePath)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Users returns all records ordered by id.
func (s *Server) Users() []api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

func (s *Server) routes(basePath string) *mux.Router {
	root := mux.NewRouter()
	r := root
	prefix := strings.TrimRight(strings.TrimSpace(basePath), "/")
	if basePath == "" {
		prefix = DefaultBasePath
	}
	if prefix != "" {
		r = root.PathPrefix(prefix).Subrouter()
	}
	r.Use(s.logRequests, s.requireAPIKey)

	r.HandleFunc("/users", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleUpdate).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	return root
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("sandbox request",
			"method", r.Method,
			"path", r.URL.RequestURI(),
			"status", rec.status,
			"request_id", r.Header.Get("X-Request-Id"),
			"duration", time.Since(start))
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	s.mu.RLock()
	all := s.sortedLocked()
	s.mu.RUnlock()

	total := len(all)
	totalPages := (total + s.perPage - 1) / s.perPage
	start := (page - 1) * s.perPage
	end := min(start+s.perPage, total)
	data := []api.User{}
	if start < total {
		data = all[start:end]
	}
	writeJSON(w, http.StatusOK, api.UserPage{
		Page:       page,
		PerPage:    s.perPage,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.RLock()
	u, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]api.User{"data": u})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var fields api.UserFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(fields.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email"})
		return
	}

	s.mu.Lock()
	s.nextID++
	u := fields.Merge(api.User{ID: s.nextID})
	s.users[u.ID] = u
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var fields api.UserFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[id]
	if ok {
		u = fields.Merge(u)
		s.users[id] = u
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	_, ok := s.users[id]
	delete(s.users, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	switch {
	case strings.TrimSpace(creds.Email) == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing email or username"})
		return
	case creds.Password == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing password"})
		return
	case !strings.EqualFold(creds.Email, DemoEmail) || creds.Password != DemoPassword:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found"})
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = creds.Email
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.LoginResponse{Token: token})
}

func (s *Server) sortedLocked() []api.User {
	out := make([]api.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// SeedUsers returns the twelve demo users served by default.
func SeedUsers() []api.User {
	names := [][2]string{
		{"George", "Bluth"},
		{"Janet", "Weaver"},
		{"Emma", "Wong"},
		{"Eve", "Holt"},
		{"Charles", "Morris"},
		{"Tracey", "Ramos"},
		{"Michael", "Lawson"},
		{"Lindsay", "Ferguson"},
		{"Tobias", "Funke"},
		{"Byron", "Fields"},
		{"George", "Edwards"},
		{"Rachel", "Howell"},
	}
	users := make([]api.User, 0, len(names))
	for i, n := range names {
		id := int64(i + 1)
		users = append(users, api.User{
			ID:        id,
			FirstName: n[0],
			LastName:  n[1],
			Email:     strings.ToLower(n[0]+"."+n[1]) + "@reqres.in",
			Avatar:    fmt.Sprintf("https://reqres.in/img/faces/%d-image.jpg", id),
		})
	}
	return users
}
