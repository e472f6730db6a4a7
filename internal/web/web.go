package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"hive/internal/auth"
	"hive/internal/config"
	"hive/internal/feed"
	"hive/internal/hive"
	appLog "hive/internal/log"
	"hive/internal/metrics"
	"hive/internal/model"
	"hive/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Store is the persistence surface used by the society and admin routes.
// *store.Client satisfies it.
type Store interface {
	ListEvents(ctx context.Context, q store.EventQuery) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	CreateEvent(ctx context.Context, row model.EventWrite) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, row model.EventWrite) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListSocieties(ctx context.Context) ([]model.Society, error)
	GetSociety(ctx context.Context, id string) (model.Society, error)
}

// Assistant answers Ask Hive questions and Magic Fill captions.
// *hive.Client satisfies it.
type Assistant interface {
	Ask(ctx context.Context, question string, events []model.Event) (hive.Answer, error)
	Extract(ctx context.Context, caption string, now time.Time) (model.EventInput, error)
}

// Deps are the collaborators of a Server. Only Events is required; routes
// whose dependency is missing answer 503.
type Deps struct {
	// Events is the merged feed (store, demo seed, ICS imports).
	Events store.Source
	Store  Store
	AI     Assistant
	Auth   *auth.Authenticator
	// Clock defaults to the wall clock in the configured timezone.
	Clock feed.Clock
}

// Server provides the HTTP API for the feed, societies, admin writes and
// the AI proxy.
type Server struct {
	cfg   *config.Config
	deps  Deps
	loc   *time.Location
	clock feed.Clock
	mux   *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	loc := cfg.Location()
	clock := deps.Clock
	if clock == nil {
		clock = feed.SystemClock{Location: loc}
	}
	s := &Server{
		cfg:   cfg,
		deps:  deps,
		loc:   loc,
		clock: clock,
		mux:   http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with request metrics applied.
func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /api/feed", s.handleFeed)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleEvent)
	s.mux.HandleFunc("GET /api/societies", s.handleSocieties)
	s.mux.HandleFunc("GET /api/societies/{id}/events", s.handleSocietyEvents)

	admin := s.deps.Auth.Require
	s.mux.Handle("POST /api/events", admin(http.HandlerFunc(s.handleCreateEvent)))
	s.mux.Handle("PUT /api/events/{id}", admin(http.HandlerFunc(s.handleUpdateEvent)))
	s.mux.Handle("DELETE /api/events/{id}", admin(http.HandlerFunc(s.handleDeleteEvent)))

	s.mux.Handle("POST /api/ask", s.cors(http.HandlerFunc(s.handleAsk)))
	s.mux.Handle("POST /api/extract", s.cors(http.HandlerFunc(s.handleExtract)))
	s.mux.Handle("OPTIONS /api/ask", s.cors(nil))
	s.mux.Handle("OPTIONS /api/extract", s.cors(nil))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// statusRecorder captures the status code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency by matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// ServeMux records the matched pattern on the request it was given.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.Since(metrics.HTTPDuration.WithLabelValues(route), start)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// writeFailure maps an error from a collaborator onto a status code.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		storeErr   *store.StatusError
		gatewayErr *hive.GatewayError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, hive.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hive.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded, please try again in a moment.")
	case errors.Is(err, hive.ErrCreditsExhausted):
		writeError(w, http.StatusPaymentRequired, "AI credits exhausted. Please try again later.")
	case errors.Is(err, hive.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "AI assistant is not configured")
	case errors.As(err, &storeErr):
		writeError(w, http.StatusBadGateway, "backend request failed")
	case errors.As(err, &gatewayErr):
		writeError(w, http.StatusBadGateway, "AI request failed")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream timed out")
	default:
		appLog.Error("request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON encodes v before sending any header, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		appLog.Error("failed to encode JSON response", err, "status", status)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
