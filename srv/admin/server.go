package admin

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/lsrv/lib/reqlog"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/engine"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"time"
)

var Logger = logger.GetLogger("admin")

// snapshotTimeout bounds how long /log waits for the log strand
const snapshotTimeout = 5 * time.Second

// Backend is the line server inspected by the admin endpoint
type Backend interface {
	Metrics() *common.Metrics
	Log() *reqlog.Log
	Sessions() []engine.SessionInfo
}

// Server exposes metrics, the shared log and the active sessions over HTTP
type Server struct {
	backend Backend
	debug   bool
	http    *http.Server
}

// New creates an admin server for backend. With debug set every request is
// logged.
func New(backend Backend, debug bool) *Server {
	s := &Server{backend: backend, debug: debug}
	s.http = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes of the admin endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	routes := map[string]http.HandlerFunc{
		"GET /metrics":  s.handleMetrics,
		"GET /log":      s.handleLog,
		"GET /sessions": s.handleSessions,
	}
	for pattern, h := range routes {
		if s.debug {
			h = loggerMiddleware(h)
		}
		mux.HandleFunc(pattern, h)
	}
	return mux
}

// Serve accepts HTTP requests on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	Logger.Infof("Starting admin HTTP server on %s", listener.Addr())
	if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe binds endpoint and serves until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, endpoint string) error {
	listener, err := net.Listen("tcp", endpoint)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.backend.Metrics().WritePrometheus(w)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	log := s.backend.Log()
	if log == nil {
		http.Error(w, "no shared log in this executor mode", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	entries, err := log.Snapshot(ctx)
	if err != nil {
		http.Error(w, "failed to read log: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	if entries == nil {
		entries = []reqlog.Entry{}
	}
	writeJSON(w, entries)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.backend.Sessions()
	if sessions == nil {
		sessions = []engine.SessionInfo{}
	}
	writeJSON(w, sessions)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.Warningf("failed to write response: %v", err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware logs method, path, status and duration of every request
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
