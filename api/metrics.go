package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric names.
const (
	MetricOperationsTotal = "securevault_operations_total"
	MetricActiveSessions  = "securevault_active_sessions"
	MetricAlertsTotal     = "securevault_alerts_total"
)

// opMetrics exports vault operation outcomes.
type opMetrics struct {
	operations *prometheus.CounterVec
	alerts     *prometheus.CounterVec
}

func newOpMetrics(reg prometheus.Registerer, activeSessions func() float64) (*opMetrics, error) {
	m := &opMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricOperationsTotal,
			Help: "Vault operations by operation and result.",
		}, []string{"op", "result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAlertsTotal,
			Help: "Failure spike alerts raised, by type.",
		}, []string{"type"}),
	}
	sessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: MetricActiveSessions,
		Help: "Live client sessions holding a vault.",
	}, activeSessions)

	for _, c := range []prometheus.Collector{m.operations, m.alerts, sessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *opMetrics) record(op string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, errorKind(err)).Inc()
}

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertDecryptFailureSpike AlertType = "decrypt_failure_spike"
	AlertStorageFailureSpike AlertType = "storage_failure_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

func logAlert(logger *slog.Logger) AlertFunc {
	return func(e AlertEvent) {
		logger.Warn("securevault alert",
			slog.String("type", string(e.Type)),
			slog.String("message", e.Message),
			slog.Int("count", e.Count),
			slog.Int("threshold", e.Threshold))
	}
}

// failureMonitor keeps a sliding window per alert type and fires the alert
// callback when a window fills.
type failureMonitor struct {
	mu      sync.Mutex
	windows map[AlertType]*failureWindow
	alertFn AlertFunc
	now     func() time.Time
}

type failureWindow struct {
	events    []time.Time
	window    time.Duration
	threshold int
	message   string
}

const (
	defaultDecryptFailureWindow    = 1 * time.Minute
	defaultDecryptFailureThreshold = 50
	defaultStorageFailureWindow    = 5 * time.Minute
	defaultStorageFailureThreshold = 10
)

func newFailureMonitor(alertFn AlertFunc) *failureMonitor {
	return &failureMonitor{
		windows: map[AlertType]*failureWindow{
			AlertDecryptFailureSpike: {
				window:    defaultDecryptFailureWindow,
				threshold: defaultDecryptFailureThreshold,
				message:   "decryption failure rate exceeds threshold",
			},
			AlertStorageFailureSpike: {
				window:    defaultStorageFailureWindow,
				threshold: defaultStorageFailureThreshold,
				message:   "storage failure rate exceeds threshold",
			},
		},
		alertFn: alertFn,
		now:     time.Now,
	}
}

// record counts one failure of type t.
func (m *failureMonitor) record(t AlertType) {
	if m == nil || m.alertFn == nil {
		return
	}
	m.mu.Lock()
	w, ok := m.windows[t]
	if !ok {
		m.mu.Unlock()
		return
	}
	now := m.now()
	w.events = append(w.events, now)
	w.events = trimWindow(w.events, now, w.window)

	if len(w.events) < w.threshold {
		m.mu.Unlock()
		return
	}
	event := AlertEvent{
		Type:      t,
		Message:   w.message,
		Count:     len(w.events),
		Threshold: w.threshold,
		Timestamp: now,
	}
	// Reset to avoid repeated alerts within the same spike.
	w.events = w.events[:0]
	m.mu.Unlock()

	m.alertFn(event)
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
