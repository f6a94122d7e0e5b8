package engine

import (
	"bufio"
	"errors"
	"github.com/ValentinKolb/lsrv/lib/exec"
	"github.com/ValentinKolb/lsrv/lib/handler"
	"github.com/ValentinKolb/lsrv/lib/request"
	"github.com/ValentinKolb/lsrv/lib/util"
	"github.com/ValentinKolb/lsrv/srv/common"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// writeOp is one line queued on a session's write mailbox
type writeOp struct {
	data []byte
	done func(err error) // runs on the session's executor after the write
}

// asyncSession drives one connection with callbacks on the server's run-loop.
//
// Blocking socket calls happen on short-lived goroutines (one per pending
// read, one writer per session) that post their completion back to the
// session's executor: the loop itself in loop mode, a per-session strand on
// the shared loop in pool mode. Every pending read, write, deferred dispatch
// and armed timer holds a reference on the session; the last release closes
// the connection.
type asyncSession struct {
	srv    *Server
	id     string
	conn   net.Conn
	meta   SessionInfo
	reader *bufio.Reader // used by one read goroutine at a time
	ex     exec.Executor

	refs   atomic.Int32
	open   atomic.Bool
	writes *util.LockFreeMPSC[writeOp]

	timersMu sync.Mutex
	timers   map[exec.TimerID]struct{}
	dueBy    time.Time // latest due time of an armed timer
}

func newAsyncSession(srv *Server, id string, conn net.Conn) *asyncSession {
	s := &asyncSession{
		srv:  srv,
		id:   id,
		conn: conn,
		meta: SessionInfo{
			ID:         id,
			RemoteAddr: conn.RemoteAddr().String(),
			Since:      time.Now(),
		},
		reader: bufio.NewReader(conn),
		writes: util.NewLockFreeMPSC[writeOp](),
		timers: make(map[exec.TimerID]struct{}),
	}

	if srv.config.Mode == common.ModePool {
		s.ex = exec.NewStrand(srv.loop)
	} else {
		s.ex = srv.loop
	}
	s.open.Store(true)
	return s
}

func (s *asyncSession) info() SessionInfo {
	return s.meta
}

// --------------------------------------------------------------------------
// Ownership
// --------------------------------------------------------------------------

func (s *asyncSession) acquire() {
	s.refs.Add(1)
}

func (s *asyncSession) release() {
	if s.refs.Add(-1) == 0 {
		s.open.Store(false)
		s.writes.Close()
		_ = s.conn.Close()
		s.srv.unregister(s.id)
	}
}

// post runs fn on the session's executor. The caller must hold a reference
// for fn, which is released after fn ran or when the executor refuses it.
func (s *asyncSession) post(fn func()) {
	if !s.ex.Post(func() {
		defer s.release()
		fn()
	}) {
		s.shutdown()
		s.release()
	}
}

// --------------------------------------------------------------------------
// State machine
// --------------------------------------------------------------------------

func (s *asyncSession) start() {
	s.acquire()
	go s.writeLoop()
	s.startRead()
	s.release()
}

// startRead enters Reading: one goroutine blocks until a full line arrived
// and posts it to onRead
func (s *asyncSession) startRead() {
	if !s.open.Load() {
		return
	}
	s.acquire()

	go func() {
		if timeout := s.srv.config.Timeout(); timeout > 0 {
			s.timersMu.Lock()
			dueBy := s.dueBy
			s.timersMu.Unlock()
			_ = s.conn.SetReadDeadline(idleDeadline(time.Now(), timeout, dueBy))
		}

		var line string
		var err error
		// checked after the deadline was set, see shutdown
		if s.open.Load() {
			line, err = s.reader.ReadString('\n')
		} else {
			err = net.ErrClosed
		}

		s.post(func() { s.onRead(line, err) })
	}()
}

func (s *asyncSession) onRead(line string, err error) {
	if !s.open.Load() {
		return
	}
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			Logger.Debugf("session %s read error: %v", s.id, err)
		}
		s.shutdown()
		return
	}

	req := request.Parse(line)

	// averages go through the queue once more and run after the current callback
	if req.Kind == request.KindAverage {
		s.acquire()
		s.post(func() { s.dispatch(req) })
		return
	}
	s.dispatch(req)
}

// dispatch runs the handler and enters Replying. The next read starts only
// after the reply was written.
func (s *asyncSession) dispatch(req request.Request) {
	if !s.open.Load() {
		return
	}

	resp := s.srv.handle(req)

	s.write(resp.Text, func(err error) {
		if err != nil {
			Logger.Debugf("session %s write error: %v", s.id, err)
			s.shutdown()
			return
		}
		if resp.Reminder != nil {
			s.arm(*resp.Reminder)
		}
		s.startRead()
	})
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

// write queues a line on the mailbox. done is not called if the session
// closes before the line was written.
func (s *asyncSession) write(text string, done func(err error)) {
	s.acquire()
	if !s.writes.Push(&writeOp{data: []byte(text + "\n"), done: done}) {
		s.release()
	}
}

// writeLoop writes queued lines in order until the mailbox is closed
func (s *asyncSession) writeLoop() {
	timeout := s.srv.config.Timeout()

	for op := range s.writes.Recv() {
		if timeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		if !s.open.Load() {
			s.release()
			continue
		}

		_, err := s.conn.Write(op.data)
		done := op.done
		s.post(func() { done(err) })
	}
}

// --------------------------------------------------------------------------
// Scheduled replies
// --------------------------------------------------------------------------

// arm schedules a reminder's message on the loop's timer queue. The armed
// timer holds a reference until it fires or is cancelled by shutdown.
func (s *asyncSession) arm(r handler.Reminder) {
	if !s.open.Load() {
		return
	}
	s.acquire()

	s.timersMu.Lock()
	if due := time.Now().Add(r.Delay); due.After(s.dueBy) {
		s.dueBy = due
	}
	var id exec.TimerID
	var ok bool
	id, ok = s.srv.loop.AfterFunc(r.Delay, func() {
		s.post(func() {
			s.timersMu.Lock()
			delete(s.timers, id)
			s.timersMu.Unlock()
			s.fire(r.Message)
		})
	})
	if ok {
		s.timers[id] = struct{}{}
	}
	s.timersMu.Unlock()

	if !ok {
		s.release()
		return
	}

	// shutdown may have swept the timers before this one was added
	if !s.open.Load() {
		s.cancelTimers()
	}
}

func (s *asyncSession) fire(message string) {
	if !s.open.Load() {
		s.srv.metrics.RemindersDropped.Inc()
		Logger.Debugf("session %s closed, reminder dropped", s.id)
		return
	}

	s.write(message, func(err error) {
		if err != nil {
			s.srv.metrics.RemindersDropped.Inc()
			s.shutdown()
			return
		}
		s.srv.metrics.RemindersFired.Inc()
	})
}

// cancelTimers disarms every pending timer and releases their references
func (s *asyncSession) cancelTimers() {
	s.timersMu.Lock()
	ids := s.timers
	s.timers = make(map[exec.TimerID]struct{})
	s.timersMu.Unlock()

	for id := range ids {
		// a timer that already fired is dropped by fire
		if s.srv.loop.Cancel(id) {
			s.srv.metrics.RemindersDropped.Inc()
			s.release()
		}
	}
}

// --------------------------------------------------------------------------
// Closing
// --------------------------------------------------------------------------

// shutdown moves the session to Closed. Pending reads and writes are aborted
// through an expired deadline; the connection itself is closed by the last
// reference.
func (s *asyncSession) shutdown() {
	if !s.open.CompareAndSwap(true, false) {
		return
	}
	_ = s.conn.SetDeadline(time.Now())
	s.writes.Close()
	s.cancelTimers()
}

func (s *asyncSession) forceClose() {
	s.shutdown()
	_ = s.conn.Close()
	s.srv.unregister(s.id)
}
