package common

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"io"
	"time"
)

// Metrics holds the Prometheus instruments of one server
type Metrics struct {
	set  *metrics.Set
	mode ExecutorMode

	ConnsAccepted    *metrics.Counter
	AcceptErrors     *metrics.Counter
	ConnsClosed      *metrics.Counter
	RemindersFired   *metrics.Counter
	RemindersDropped *metrics.Counter
	LogAppends       *metrics.Counter
}

// NewMetrics creates a metric set for a server running in the given mode.
// Each server owns its set, so several servers in one process do not share
// counters.
func NewMetrics(mode ExecutorMode) *Metrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf(`%s{mode=%q}`, metric, mode)
	}
	return &Metrics{
		set:              set,
		mode:             mode,
		ConnsAccepted:    set.NewCounter(name("lsrv_connections_accepted_total")),
		AcceptErrors:     set.NewCounter(name("lsrv_accept_errors_total")),
		ConnsClosed:      set.NewCounter(name("lsrv_connections_closed_total")),
		RemindersFired:   set.NewCounter(name("lsrv_reminders_fired_total")),
		RemindersDropped: set.NewCounter(name("lsrv_reminders_dropped_total")),
		LogAppends:       set.NewCounter(name("lsrv_log_appends_total")),
	}
}

// ObserveRequest counts a handled request and records its duration
func (m *Metrics) ObserveRequest(kind string, d time.Duration, failed bool) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`lsrv_requests_total{mode=%q,kind=%q}`, m.mode, kind)).Inc()
	if failed {
		m.set.GetOrCreateCounter(fmt.Sprintf(`lsrv_request_errors_total{mode=%q,kind=%q}`, m.mode, kind)).Inc()
	}
	m.set.GetOrCreateHistogram(fmt.Sprintf(`lsrv_request_duration_seconds{mode=%q,kind=%q}`, m.mode, kind)).Update(d.Seconds())
}

// RequestCount returns how many requests of a kind were observed
func (m *Metrics) RequestCount(kind string) uint64 {
	return m.set.GetOrCreateCounter(fmt.Sprintf(`lsrv_requests_total{mode=%q,kind=%q}`, m.mode, kind)).Get()
}

// RegisterGauge exposes a value computed on every scrape
func (m *Metrics) RegisterGauge(metric string, fn func() float64) {
	m.set.NewGauge(fmt.Sprintf(`%s{mode=%q}`, metric, m.mode), fn)
}

// WritePrometheus writes all metrics of the set in Prometheus text format
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
