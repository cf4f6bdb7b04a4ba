package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cryptointel/internal/metrics"
	"cryptointel/internal/ports"
	"cryptointel/internal/services/dashboard"
	"cryptointel/internal/workers/scraperunner"
)

// Dashboard produces the overview figures.
type Dashboard interface {
	Summary(ctx context.Context) (dashboard.Summary, error)
}

type Server struct {
	investigations ports.Investigations
	sources        ports.Sources
	alerts         ports.Alerts
	dashboard      Dashboard
	runner         *scraperunner.Runner
	metrics        *metrics.Metrics
	log            *slog.Logger
	now            func() time.Time
}

// New builds the HTTP server. runner may be nil, in which case POST /sources
// ignores the wait parameter.
func New(inv ports.Investigations, sources ports.Sources, alerts ports.Alerts, dash Dashboard, runner *scraperunner.Runner, m *metrics.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		investigations: inv,
		sources:        sources,
		alerts:         alerts,
		dashboard:      dash,
		runner:         runner,
		metrics:        m,
		log:            log,
		now:            time.Now,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.getHealthz)
	r.Route("/records", func(r chi.Router) {
		r.Get("/", s.listRecords)
		r.Post("/", s.createRecord)
		r.Get("/export", s.exportRecords)
		r.Get("/{id}", s.getRecord)
		r.Put("/{id}", s.updateRecord)
		r.Delete("/{id}", s.deleteRecord)
	})
	r.Get("/alerts", s.listAlerts)
	r.Route("/sources", func(r chi.Router) {
		r.Get("/", s.listSources)
		r.Post("/", s.addSource)
		r.Delete("/{id}", s.removeSource)
	})
	r.Get("/dashboard", s.getDashboard)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// observe records request counts and latency labelled by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var rt *runtimeError
	switch {
	case errors.As(err, &rt):
		return rt.code
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case isValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type runtimeError struct {
	code int
	msg  string
}

func (e *runtimeError) Error() string { return e.msg }

func badRequest(msg string) error { return &runtimeError{code: http.StatusBadRequest, msg: msg} }
