package common

import (
	"context"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"sort"
	"time"
)

var statsLogger = logger.GetLogger("stats")

// Stats keeps in-process rolling statistics (rates, latency percentiles)
// that are periodically written to the log
type Stats struct {
	registry metrics.Registry
	requests metrics.Meter
}

// NewStats creates an empty statistics registry
func NewStats() *Stats {
	registry := metrics.NewRegistry()
	return &Stats{
		registry: registry,
		requests: metrics.GetOrRegisterMeter("requests", registry),
	}
}

// Observe records a handled request of the given kind
func (s *Stats) Observe(kind string, d time.Duration) {
	s.requests.Mark(1)
	metrics.GetOrRegisterTimer("latency."+kind, s.registry).Update(d)
}

// Count returns the total number of observed requests
func (s *Stats) Count() int64 {
	return s.requests.Count()
}

// Report logs a summary of all statistics every interval until ctx is done
func (s *Stats) Report(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logOnce()
		}
	}
}

func (s *Stats) logOnce() {
	meter := s.requests.Snapshot()
	statsLogger.Infof("requests total=%d rate1=%.2f/s", meter.Count(), meter.Rate1())

	var names []string
	timers := make(map[string]metrics.Timer)
	s.registry.Each(func(name string, i interface{}) {
		if t, ok := i.(metrics.Timer); ok {
			names = append(names, name)
			timers[name] = t
		}
	})
	sort.Strings(names)

	for _, name := range names {
		t := timers[name].Snapshot()
		statsLogger.Infof("%-20s count=%d mean=%s p99=%s max=%s",
			name, t.Count(),
			time.Duration(t.Mean()), time.Duration(t.Percentile(0.99)), time.Duration(t.Max()))
	}
}

// Stop unregisters all metrics, which stops the meter's background ticker
func (s *Stats) Stop() {
	s.registry.UnregisterAll()
}
