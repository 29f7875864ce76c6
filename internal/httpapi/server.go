// Package httpapi exposes the metrics and profile use cases over HTTP
// and maps error kinds to status codes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/github-metrics-service/pkg/github"
	"github.com/Sternrassler/github-metrics-service/pkg/logging"
	"github.com/Sternrassler/github-metrics-service/pkg/service"
)

// statusClientClosedRequest is the nginx convention for requests aborted
// by the client before a response was written.
const statusClientClosedRequest = 499

// usernamePattern matches valid GitHub logins: alphanumerics and hyphens,
// at most 39 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,39}$`)

// errorResponse is the JSON body returned for every failed request.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
	Message    string `json:"message"`
}

// Server routes HTTP requests to the use cases.
type Server struct {
	metrics  service.MetricsProvider
	profiles service.ProfileProvider
	logger   zerolog.Logger
}

// NewServer creates the HTTP API around the given use cases.
func NewServer(metrics service.MetricsProvider, profiles service.ProfileProvider) *Server {
	return &Server{
		metrics:  metrics,
		profiles: profiles,
		logger:   logging.NewLogger("http-api"),
	}
}

// Handler returns the routed HTTP handler. The Prometheus endpoint lives
// under /internal/metrics because /metrics/{username} is a public route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /users/{username}", s.handleProfile)
	mux.HandleFunc("GET /metrics/{username}", s.handleMetrics)
	mux.Handle("GET /internal/metrics", promhttp.Handler())
	return s.logRequests(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	username, ok := s.username(w, r)
	if !ok {
		return
	}

	summary, err := s.metrics.GetMetrics(r.Context(), username)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username, ok := s.username(w, r)
	if !ok {
		return
	}

	profile, err := s.profiles.GetProfile(r.Context(), username)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// username extracts and validates the path parameter, writing a 400
// response when the syntax is invalid.
func (s *Server) username(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := r.PathValue("username")
	if !usernamePattern.MatchString(username) {
		s.logger.Warn().Str("username", username).Msg("Invalid username syntax")
		s.writeError(w, r, http.StatusBadRequest,
			"Username can only contain alphanumeric characters and hyphens")
		return "", false
	}
	return username, true
}

// writeFailure maps an error kind to a status code and writes the error
// body. Errors without a kind (cache or encoding failures) map to 503.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForKind(github.KindOf(err))

	message := "Service temporarily unavailable"
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		message = apiErr.Message
	}

	s.writeError(w, r, status, message)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Method:     r.Method,
		Message:    message,
	})
}

// statusForKind maps an upstream error kind to an HTTP status code.
func statusForKind(kind github.Kind) int {
	switch kind {
	case github.KindNotFound:
		return http.StatusNotFound
	case github.KindRateLimited:
		return http.StatusTooManyRequests
	case github.KindTimeout:
		return http.StatusRequestTimeout
	case github.KindCancelled:
		return statusClientClosedRequest
	default:
		return http.StatusServiceUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests wraps next with a zerolog access log line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
