package engine

import (
	"bufio"
	"errors"
	"github.com/ValentinKolb/lsrv/lib/handler"
	"github.com/ValentinKolb/lsrv/lib/request"
	"io"
	"net"
	"sync"
	"time"
)

// threadedSession serves one connection on its own goroutine with blocking
// reads and writes. Nothing is shared with other sessions.
type threadedSession struct {
	srv  *Server
	id   string
	conn net.Conn
	meta SessionInfo

	mu     sync.Mutex // serializes writes, protects closed, timers and dueBy
	closed bool
	timers map[*time.Timer]struct{}
	dueBy  time.Time // latest due time of a scheduled reply
}

func newThreadedSession(srv *Server, id string, conn net.Conn) *threadedSession {
	return &threadedSession{
		srv:  srv,
		id:   id,
		conn: conn,
		meta: SessionInfo{
			ID:         id,
			RemoteAddr: conn.RemoteAddr().String(),
			Since:      time.Now(),
		},
		timers: make(map[*time.Timer]struct{}),
	}
}

func (t *threadedSession) info() SessionInfo {
	return t.meta
}

// start spawns the session goroutine. It is not tracked: it ends when the
// connection fails or is closed.
func (t *threadedSession) start() {
	go t.run()
}

// run is the Reading -> Dispatching -> Replying loop
func (t *threadedSession) run() {
	defer t.forceClose()

	reader := bufio.NewReader(t.conn)
	timeout := t.srv.config.Timeout()

	for {
		if timeout > 0 {
			t.mu.Lock()
			dueBy := t.dueBy
			t.mu.Unlock()
			_ = t.conn.SetReadDeadline(idleDeadline(time.Now(), timeout, dueBy))
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				Logger.Debugf("session %s read error: %v", t.id, err)
			}
			return
		}

		resp := t.srv.handle(request.Parse(line))

		if err := t.write(resp.Text); err != nil {
			Logger.Debugf("session %s write error: %v", t.id, err)
			return
		}
		if resp.Reminder != nil {
			t.schedule(*resp.Reminder)
		}
	}
}

// write sends one reply line. Replies and scheduled messages share the lock
// so lines never interleave.
func (t *threadedSession) write(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return net.ErrClosed
	}
	if timeout := t.srv.config.Timeout(); timeout > 0 {
		_ = t.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := io.WriteString(t.conn, text+"\n")
	return err
}

// schedule arms the reminder's scheduled reply
func (t *threadedSession) schedule(r handler.Reminder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	if due := time.Now().Add(r.Delay); due.After(t.dueBy) {
		t.dueBy = due
	}

	var timer *time.Timer
	timer = time.AfterFunc(r.Delay, func() {
		t.mu.Lock()
		delete(t.timers, timer)
		t.mu.Unlock()

		if err := t.write(r.Message); err != nil {
			t.srv.metrics.RemindersDropped.Inc()
			Logger.Debugf("session %s reminder dropped: %v", t.id, err)
			t.shutdown()
			return
		}
		t.srv.metrics.RemindersFired.Inc()
	})
	t.timers[timer] = struct{}{}
}

func (t *threadedSession) shutdown() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	for timer := range t.timers {
		if timer.Stop() {
			t.srv.metrics.RemindersDropped.Inc()
		}
	}
	t.timers = nil
	t.mu.Unlock()

	_ = t.conn.Close()
}

func (t *threadedSession) forceClose() {
	t.shutdown()
	t.srv.unregister(t.id)
}
