package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yordamchi"

type moduleMetrics struct {
	queued       prometheus.Gauge
	queueLanes   prometheus.Gauge
	enqueueTotal *prometheus.CounterVec
	dequeueTotal *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	activeSessions   prometheus.Gauge
	snapshotDuration prometheus.Histogram
	eventsTotal      *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec

	registeredUsers  prometheus.Gauge
	duplicateUpdates prometheus.Counter

	gateDecisionsTotal *prometheus.CounterVec

	documentsCommitted prometheus.Counter
	documentFragments  prometheus.Histogram

	adapterCallsTotal   *prometheus.CounterVec
	adapterCallDuration *prometheus.HistogramVec
	adapterErrorsTotal  *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
}

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queued:       gauge("queue", "tasks_queued", "Tasks waiting across all lanes."),
			queueLanes:   gauge("queue", "lanes", "Live queue lanes, one per recently active user plus the fixed lanes."),
			enqueueTotal: counter("queue", "enqueued_total", "Tasks accepted by lane class.", "lane"),
			dequeueTotal: counter("queue", "completed_total", "Tasks finished by lane class and status.", "lane", "status"),
			rejected:     counter("queue", "rejected_total", "Tasks refused because the lane was full or the queue closed.", "lane", "reason"),
			taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: "queue", Name: "task_duration_seconds",
				Help:    "Task execution time by lane class.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"lane"}),

			activeSessions: gauge("session", "active", "Sessions held in memory."),
			snapshotDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: "session", Name: "snapshot_duration_seconds",
				Help:    "Session snapshot write time.",
				Buckets: prometheus.DefBuckets,
			}),
			eventsTotal:      counter("router", "events_total", "Dispatched events by state, kind and outcome.", "state", "kind", "outcome"),
			transitionsTotal: counter("router", "transitions_total", "Session state transitions by source and target state.", "from", "to"),

			registeredUsers: gauge("registry", "users", "Users known to the registry."),
			duplicateUpdates: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace, Subsystem: "telegram", Name: "duplicate_updates_total",
				Help: "Inbound updates dropped as redeliveries.",
			}),

			gateDecisionsTotal: counter("gate", "decisions_total", "Access gate decisions by membership status.", "status"),

			documentsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace, Subsystem: "document", Name: "committed_total",
				Help: "Documents rendered and delivered.",
			}),
			documentFragments: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: "document", Name: "fragments",
				Help:    "Fragment count per committed document.",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			}),

			adapterCallsTotal: counter("adapter", "calls_total", "External adapter calls by adapter and status.", "adapter", "status"),
			adapterCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace, Subsystem: "adapter", Name: "call_duration_seconds",
				Help:    "External adapter call time by adapter.",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			}, []string{"adapter"}),
			adapterErrorsTotal: counter("adapter", "errors_total", "External adapter errors by adapter.", "adapter"),
		}

		prometheus.MustRegister(
			m.queued,
			m.queueLanes,
			m.enqueueTotal,
			m.dequeueTotal,
			m.rejected,
			m.taskDuration,
			m.activeSessions,
			m.snapshotDuration,
			m.eventsTotal,
			m.transitionsTotal,
			m.registeredUsers,
			m.duplicateUpdates,
			m.gateDecisionsTotal,
			m.documentsCommitted,
			m.documentFragments,
			m.adapterCallsTotal,
			m.adapterCallDuration,
			m.adapterErrorsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// laneClass collapses per-user lanes ("user:123") into their prefix to keep label cardinality flat.
func laneClass(lane string) string {
	if i := strings.IndexByte(lane, ':'); i >= 0 {
		return lane[:i]
	}
	return lane
}

// RecordQueueEnqueue counts an accepted task; queued is the total waiting across lanes.
func RecordQueueEnqueue(lane string, queued int) {
	m := getMetrics()
	m.enqueueTotal.WithLabelValues(laneClass(lane)).Inc()
	m.queued.Set(float64(queued))
}

// RecordQueueRejected counts a task refused with reason "full" or "closed".
func RecordQueueRejected(lane, reason string) {
	getMetrics().rejected.WithLabelValues(laneClass(lane), reason).Inc()
}

func SetQueued(queued int) {
	getMetrics().queued.Set(float64(queued))
}

func SetQueueLanes(count int) {
	getMetrics().queueLanes.Set(float64(count))
}

func RecordQueueCompletion(lane string, duration time.Duration, success bool, queued int) {
	m := getMetrics()
	class := laneClass(lane)
	m.dequeueTotal.WithLabelValues(class, statusLabel(success)).Inc()
	m.taskDuration.WithLabelValues(class).Observe(duration.Seconds())
	m.queued.Set(float64(queued))
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordSnapshot(duration time.Duration) {
	getMetrics().snapshotDuration.Observe(duration.Seconds())
}

func SetRegisteredUsers(count int) {
	getMetrics().registeredUsers.Set(float64(count))
}

func RecordDuplicateUpdate() {
	getMetrics().duplicateUpdates.Inc()
}

// RecordEvent counts one dispatched event. Outcome is "handled", "unhandled" or "error".
func RecordEvent(state, kind, outcome string) {
	getMetrics().eventsTotal.WithLabelValues(state, kind, outcome).Inc()
}

func RecordTransition(from, to string) {
	if from == to {
		return
	}
	getMetrics().transitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordGateDecision(status string) {
	getMetrics().gateDecisionsTotal.WithLabelValues(status).Inc()
}

func RecordDocumentCommitted(fragments int) {
	m := getMetrics()
	m.documentsCommitted.Inc()
	m.documentFragments.Observe(float64(fragments))
}

func RecordAdapterCall(adapter string, duration time.Duration, success bool) {
	m := getMetrics()
	m.adapterCallsTotal.WithLabelValues(adapter, statusLabel(success)).Inc()
	m.adapterCallDuration.WithLabelValues(adapter).Observe(duration.Seconds())
	if !success {
		m.adapterErrorsTotal.WithLabelValues(adapter).Inc()
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
