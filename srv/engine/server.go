package engine

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/lsrv/lib/exec"
	"github.com/ValentinKolb/lsrv/lib/handler"
	"github.com/ValentinKolb/lsrv/lib/reqlog"
	"github.com/ValentinKolb/lsrv/lib/request"
	"github.com/ValentinKolb/lsrv/srv/common"
	"github.com/ValentinKolb/lsrv/srv/transport"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("engine")

// ErrServerClosed is returned by Listen and Serve after Close was called
var ErrServerClosed = errors.New("server closed")

// acceptBackoff is the pause after a failed accept, so persistent errors
// (e.g. out of file descriptors) do not spin the acceptor
const acceptBackoff = 10 * time.Millisecond

// -----------------------------------------------------------
// Sessions
// -----------------------------------------------------------

// idleDeadline is the read deadline of a session. While a scheduled reply is
// pending the idle time counts from its due time, so a client waiting for
// its reminder is not cut off.
func idleDeadline(now time.Time, timeout time.Duration, dueBy time.Time) time.Time {
	if dueBy.After(now) {
		return dueBy.Add(timeout)
	}
	return now.Add(timeout)
}

// SessionInfo describes an active connection
type SessionInfo struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	Since      time.Time `json:"since"`
}

// session is one connection driven by the executor of the server's mode
type session interface {
	// start begins reading requests
	start()
	// shutdown moves the session to Closed: pending I/O is aborted and
	// pending scheduled replies are dropped
	shutdown()
	// forceClose shuts down and releases the connection immediately
	forceClose()
	info() SessionInfo
}

// -----------------------------------------------------------
// Server
// -----------------------------------------------------------

// Server accepts connections and runs one session per connection on the
// executor selected by the configured mode
type Server struct {
	config    common.ServerConfig
	connector transport.IServerConnector
	handler   *handler.Handler
	metrics   *common.Metrics
	stats     *common.Stats

	loop *exec.Loop  // nil in threaded mode
	log  *reqlog.Log // only in pool mode

	sessions *xsync.MapOf[string, session]

	mu          sync.Mutex // protects listener and stopWorkers
	listener    net.Listener
	stopWorkers context.CancelFunc
	workers     sync.WaitGroup

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewServer creates a server. The server does not listen before Listen or
// Serve is called.
func NewServer(config common.ServerConfig, connector transport.IServerConnector) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if connector.GetName() != config.Transport.Name {
		return nil, fmt.Errorf("connector %q does not match transport %q", connector.GetName(), config.Transport.Name)
	}

	s := &Server{
		config:    config,
		connector: connector,
		handler:   handler.New(config.FactorialStep),
		metrics:   common.NewMetrics(config.Mode),
		stats:     common.NewStats(),
		sessions:  xsync.NewMapOf[string, session](),
	}

	if config.Mode != common.ModeThreaded {
		s.loop = exec.NewLoop()
		s.metrics.RegisterGauge("lsrv_loop_pending_tasks", func() float64 {
			return float64(s.loop.Pending())
		})
		s.metrics.RegisterGauge("lsrv_loop_timers", func() float64 {
			return float64(s.loop.Timers())
		})
		s.metrics.RegisterGauge("lsrv_loop_workers", func() float64 {
			return float64(s.loop.Workers())
		})
	}
	if config.Mode == common.ModePool {
		s.log = reqlog.New(s.loop)
		s.metrics.RegisterGauge("lsrv_log_entries", func() float64 {
			return float64(s.log.Len())
		})
		s.metrics.RegisterGauge("lsrv_log_backlog", func() float64 {
			return float64(s.log.Backlog())
		})
	}
	s.metrics.RegisterGauge("lsrv_sessions_active", func() float64 {
		return float64(s.sessions.Size())
	})

	return s, nil
}

// Listen binds the configured endpoint and starts the run-loop workers.
// Calling Listen on a listening server is a no-op.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.listener != nil {
		return nil
	}

	listener, err := s.connector.Listen(s.config)
	if err != nil {
		return err
	}
	s.listener = listener

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorkers = cancel

	for i := 0; i < s.config.EffectiveWorkers(); i++ {
		s.workers.Add(1)
		go func(worker int) {
			defer s.workers.Done()
			if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				Logger.Errorf("worker %d stopped: %v", worker, err)
			}
		}(i)
	}

	go s.stats.Report(ctx, time.Duration(s.config.StatsIntervalSecond)*time.Second)

	Logger.Infof("Listening on %s://%s (mode=%s, workers=%d)",
		s.connector.GetName(), listener.Addr(), s.config.Mode, s.config.EffectiveWorkers())
	return nil
}

// Serve runs the accept loop until ctx is cancelled or Close is called.
// It listens first if Listen was not called yet.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-stop:
		}
	}()

	return s.acceptLoop()
}

// acceptLoop blocks on accept and hands every connection to a new session.
// It never performs request I/O itself.
func (s *Server) acceptLoop() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.metrics.AcceptErrors.Inc()
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(acceptBackoff)
			continue
		}
		s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	if err := s.connector.UpgradeConnection(conn, s.config); err != nil {
		Logger.Warningf("Failed to apply socket options to %s: %v", conn.RemoteAddr(), err)
	}

	id := uuid.NewString()
	var sess session
	if s.loop == nil {
		sess = newThreadedSession(s, id, conn)
	} else {
		sess = newAsyncSession(s, id, conn)
	}

	s.sessions.Store(id, sess)
	s.metrics.ConnsAccepted.Inc()

	// Close may have swept the registry before the session was stored
	if s.closed.Load() {
		sess.forceClose()
		return
	}

	Logger.Debugf("session %s opened from %s", id, conn.RemoteAddr())
	sess.start()
}

// unregister removes a session from the registry, once
func (s *Server) unregister(id string) {
	if _, ok := s.sessions.LoadAndDelete(id); ok {
		s.metrics.ConnsClosed.Inc()
		Logger.Debugf("session %s closed", id)
	}
}

// handle runs the handler for one request, records it and, in pool mode,
// appends it to the shared log
func (s *Server) handle(req request.Request) handler.Response {
	start := time.Now()
	resp := s.handler.Handle(req)
	elapsed := time.Since(start)

	kind := req.Kind.String()
	s.metrics.ObserveRequest(kind, elapsed, resp.Err != nil)
	s.stats.Observe(kind, elapsed)

	if s.log != nil && s.log.Append(req.Line, resp.Text) {
		s.metrics.LogAppends.Inc()
	}
	return resp
}

// -----------------------------------------------------------
// Accessors
// -----------------------------------------------------------

// Addr returns the listening address, nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Mode returns the executor mode of the server
func (s *Server) Mode() common.ExecutorMode {
	return s.config.Mode
}

// Log returns the shared request log, nil unless the server runs in pool mode
func (s *Server) Log() *reqlog.Log {
	return s.log
}

// Metrics returns the Prometheus metrics of the server
func (s *Server) Metrics() *common.Metrics {
	return s.metrics
}

// ActiveSessions returns the number of open connections
func (s *Server) ActiveSessions() int {
	return s.sessions.Size()
}

// Sessions lists the open connections, oldest first
func (s *Server) Sessions() []SessionInfo {
	var out []SessionInfo
	s.sessions.Range(func(_ string, sess session) bool {
		out = append(out, sess.info())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Since.Before(out[j].Since)
	})
	return out
}

// -----------------------------------------------------------
// Shutdown
// -----------------------------------------------------------

// Close stops the acceptor, closes every session and stops the run-loop
// workers. It waits for callbacks that are already running, so a factorial
// in progress delays Close until it finished. Close is idempotent.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		s.mu.Lock()
		listener := s.listener
		stopWorkers := s.stopWorkers
		s.mu.Unlock()

		if listener != nil {
			err = listener.Close()
		}

		s.sessions.Range(func(_ string, sess session) bool {
			sess.shutdown()
			return true
		})

		if s.loop != nil {
			s.loop.Close()
			s.workers.Wait()
		}
		if stopWorkers != nil {
			stopWorkers()
		}

		// sessions whose last callback was dropped by the closed loop
		s.sessions.Range(func(_ string, sess session) bool {
			sess.forceClose()
			return true
		})
		s.stats.Stop()

		Logger.Infof("Server stopped")
	})
	return err
}
