package reqlog

import (
	"context"
	"errors"
	"github.com/ValentinKolb/lsrv/lib/exec"
	"github.com/lni/dragonboat/v4/logger"
	"sync/atomic"
)

var Logger = logger.GetLogger("reqlog")

// ErrClosed is returned when the executor behind the log no longer runs tasks
var ErrClosed = errors.New("request log closed")

// Entry is one processed request
type Entry struct {
	Seq     uint64 `json:"seq"` // commit position, starting at 1
	Request string `json:"request"`
	Result  string `json:"result"`
}

// Log is an append-only, process-local sequence of entries.
//
// Every operation is a task on the log's strand, so appends never interleave
// with each other or with snapshots and entries are numbered in the order
// their append entered the strand (commit order, not arrival order).
type Log struct {
	strand    *exec.Strand
	committed atomic.Int64

	// only accessed by tasks running on strand
	entries []Entry
}

// New creates an empty log whose strand runs on ex
func New(ex exec.Executor) *Log {
	return &Log{strand: exec.NewStrand(ex)}
}

// Append submits an entry. It returns immediately; the entry is committed
// when the strand runs the append. Returns false if the executor is closed.
func (l *Log) Append(request, result string) bool {
	return l.strand.Post(func() {
		e := Entry{
			Seq:     uint64(len(l.entries)) + 1,
			Request: request,
			Result:  result,
		}
		l.entries = append(l.entries, e)
		l.committed.Store(int64(len(l.entries)))
		Logger.Debugf("logged #%d: %q -> %q", e.Seq, e.Request, e.Result)
	})
}

// SnapshotFunc calls fn on the strand with a copy of all entries committed
// before the snapshot entered the strand
func (l *Log) SnapshotFunc(fn func([]Entry)) bool {
	return l.strand.Post(func() {
		out := make([]Entry, len(l.entries))
		copy(out, l.entries)
		fn(out)
	})
}

// Snapshot returns a copy of the log. It must not be called from a task
// running on the log's own strand.
func (l *Log) Snapshot(ctx context.Context) ([]Entry, error) {
	result := make(chan []Entry, 1)
	if !l.SnapshotFunc(func(entries []Entry) { result <- entries }) {
		return nil, ErrClosed
	}

	select {
	case entries := <-result:
		return entries, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of committed entries
func (l *Log) Len() int {
	return int(l.committed.Load())
}

// Backlog returns the number of appends and snapshots waiting on the strand
func (l *Log) Backlog() int {
	return l.strand.Len()
}
