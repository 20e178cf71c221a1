package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SessionInfo describes the bridge session behind the endpoints.
type SessionInfo struct {
	UserID   string `json:"user_id"`
	Journal  string `json:"journal"`
	Workflow string `json:"workflow,omitempty"`
}

// Summary is the /health body.
type Summary struct {
	Status    SystemStatus `json:"status"`
	Session   SessionInfo  `json:"session"`
	Failing   []string     `json:"failing,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// Detail is the /health/detailed body.
type Detail struct {
	Report
	Session SessionInfo `json:"session"`
}

// Server exposes the bridge's health report and Prometheus metrics.
//
//	GET /health               summary, 503 when a component is critical
//	GET /health/detailed      every component
//	GET /health/{component}   one component, 404 when not checked
//	GET /metrics              Prometheus exposition
type Server struct {
	monitor *Monitor
	session func() SessionInfo
	server  *http.Server
	log     *slog.Logger
}

// NewServer creates the server. session is read on every request and may
// be nil.
func NewServer(monitor *Monitor, port int, session func() SessionInfo) *Server {
	if session == nil {
		session = func() SessionInfo { return SessionInfo{} }
	}
	s := &Server{
		monitor: monitor,
		session: session,
		log:     slog.Default().With("component", "health_server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleSummary)
	mux.HandleFunc("GET /health/detailed", s.handleDetail)
	mux.HandleFunc("GET /health/{component}", s.handleComponent)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	summary := Summary{
		Status:    report.SystemStatus,
		Session:   s.session(),
		CheckedAt: report.CheckedAt,
	}
	for name, c := range report.Components {
		if c.Status != StatusHealthy {
			summary.Failing = append(summary.Failing, name)
		}
	}
	slices.Sort(summary.Failing)

	code := http.StatusOK
	if report.SystemStatus == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, summary)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, Detail{
		Report:  s.monitor.CheckHealth(r.Context()),
		Session: s.session(),
	})
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("component")
	c, ok := s.monitor.CheckHealth(r.Context()).Components[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown component " + name})
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("write health response failed", "error", err)
	}
}
