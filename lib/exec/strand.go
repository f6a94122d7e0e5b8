package exec

import "sync"

// strandBatch bounds how many tasks one drain runs before it re-posts itself,
// so a busy strand does not monopolize a worker
const strandBatch = 64

// Strand is a serialization domain on top of an Executor: at most one of its
// tasks runs at any instant and tasks run in the order Post was called.
// It holds no goroutine and no lock while a task runs; the queue is drained
// by whichever worker of the underlying executor picks up the drain task.
type Strand struct {
	ex Executor

	mu        sync.Mutex
	queue     []func()
	scheduled bool // a drain task is posted or running
}

// NewStrand creates a strand whose tasks execute on ex
func NewStrand(ex Executor) *Strand {
	return &Strand{ex: ex}
}

// Post enqueues fn. It returns false if the underlying executor rejected the
// drain task, in which case everything queued on the strand is dropped.
func (s *Strand) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.scheduled {
		s.mu.Unlock()
		return true
	}
	s.scheduled = true
	s.mu.Unlock()

	return s.schedule()
}

// Len returns the number of tasks waiting on the strand
func (s *Strand) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Strand) schedule() bool {
	if s.ex.Post(s.drain) {
		return true
	}

	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.scheduled = false
	s.mu.Unlock()

	Logger.Debugf("strand dropped %d tasks, executor closed", dropped)
	return false
}

func (s *Strand) drain() {
	for i := 0; i < strandBatch; i++ {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.scheduled = false
			s.mu.Unlock()
			return
		}
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		safeRun(fn)
	}

	// batch exhausted, give other tasks a turn
	s.schedule()
}
