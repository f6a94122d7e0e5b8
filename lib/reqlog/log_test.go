package reqlog

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/lsrv/lib/exec"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T, workers int) *Log {
	t.Helper()
	loop := exec.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < workers; i++ {
		go func() { _ = loop.Run(ctx) }()
	}
	t.Cleanup(func() {
		loop.Close()
		cancel()
	})
	return New(loop)
}

// waitLen polls until the log holds n entries
func waitLen(t *testing.T, l *Log, n int) []Entry {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		entries, err := l.Snapshot(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
		if len(entries) >= n || time.Now().After(deadline) {
			return entries
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAppendSnapshot(t *testing.T) {
	l := newTestLog(t, 1)

	l.Append("5", "Factorial: 120")
	l.Append("10 / 4", "2.50")

	entries, err := l.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// appends posted by this goroutine are committed before its snapshot
	want := []Entry{
		{Seq: 1, Request: "5", Result: "Factorial: 120"},
		{Seq: 2, Request: "10 / 4", Result: "2.50"},
	}
	if len(entries) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("Entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

// TestSnapshotIsCopy verifies a snapshot is not affected by later appends or by modification
func TestSnapshotIsCopy(t *testing.T) {
	l := newTestLog(t, 1)

	l.Append("a", "1")
	snap, _ := l.Snapshot(context.Background())
	snap[0].Result = "changed"

	l.Append("b", "2")
	again, _ := l.Snapshot(context.Background())

	if len(snap) != 1 {
		t.Errorf("Old snapshot grew to %d entries", len(snap))
	}
	if again[0].Result != "1" {
		t.Errorf("Modifying a snapshot changed the log: %+v", again[0])
	}
}

// TestConcurrentAppends verifies N goroutines on many workers commit exactly N distinct entries
func TestConcurrentAppends(t *testing.T) {
	for _, workers := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			l := newTestLog(t, workers)

			const producers = 50
			const perProducer = 20
			var wg sync.WaitGroup
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perProducer; i++ {
						l.Append(fmt.Sprintf("%d/%d", p, i), "ok")
					}
				}()
			}
			wg.Wait()

			entries := waitLen(t, l, producers*perProducer)
			if len(entries) != producers*perProducer {
				t.Fatalf("Expected %d entries, got %d", producers*perProducer, len(entries))
			}
			if n := l.Len(); n != producers*perProducer {
				t.Errorf("Len() = %d, want %d", n, producers*perProducer)
			}
			if n := l.Backlog(); n != 0 {
				t.Errorf("Backlog() = %d after the snapshot ran", n)
			}

			seen := make(map[string]bool)
			for i, e := range entries {
				if e.Seq != uint64(i+1) {
					t.Errorf("Entry %d has seq %d", i, e.Seq)
				}
				if seen[e.Request] {
					t.Errorf("Duplicate entry %q", e.Request)
				}
				seen[e.Request] = true
			}
		})
	}
}

// TestPerProducerOrder verifies entries of one producer keep their submission order
func TestPerProducerOrder(t *testing.T) {
	l := newTestLog(t, 4)

	for i := 0; i < 100; i++ {
		l.Append(fmt.Sprint(i), "")
	}
	entries := waitLen(t, l, 100)

	for i, e := range entries {
		if e.Request != fmt.Sprint(i) {
			t.Fatalf("Entry %d is %q", i, e.Request)
		}
	}
}

func TestClosed(t *testing.T) {
	loop := exec.NewLoop()
	loop.Close()
	l := New(loop)

	if l.Append("x", "y") {
		t.Error("Append should fail on a closed executor")
	}
	if _, err := l.Snapshot(context.Background()); err != ErrClosed {
		t.Errorf("Snapshot error = %v, want ErrClosed", err)
	}
}
