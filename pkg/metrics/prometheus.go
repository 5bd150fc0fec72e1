// Package metrics provides Prometheus metrics for the pitchside tick loop,
// referee and adapters.
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// tickBuckets covers sub-millisecond ticks up to several missed 60 Hz periods.
var tickBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16.7, 33.3, 50, 100} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace       string
	latencyBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        prometheus.Registerer
	gatherer        *prometheus.Registry

	// Tick loop
	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	tickOverruns   prometheus.Counter
	tickPanics     prometheus.Counter
	snapshotSeq    prometheus.Gauge
	historyLength  prometheus.Gauge
	diagnosticsOut *prometheus.CounterVec

	// Ingestion
	bufferWrites     *prometheus.CounterVec
	bufferOverwrites *prometheus.CounterVec

	// Pipeline
	refinerErrors *prometheus.CounterVec

	// Referee
	evaluationsSkipped   *prometheus.CounterVec
	violations           *prometheus.CounterVec
	violationsSuppressed *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	score                *prometheus.GaugeVec
	command              prometheus.Gauge

	// Queues, writers and stream
	queueSize       *prometheus.GaugeVec
	queueRejected   *prometheus.CounterVec
	journalWrites   *prometheus.CounterVec
	journalErrors   *prometheus.CounterVec
	journalLatency  *prometheus.HistogramVec
	streamClients   prometheus.Gauge
	streamBroadcast prometheus.Counter
	streamDrops     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// global is the manager the package-level recorders write to.
var global atomic.Pointer[Manager] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before any recorder runs; handlers
// must fetch GetRegistry after it.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	m.gatherer = registry
	global.Store(m)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "pitchside",
		latencyBuckets:  prometheus.DefBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether the recorders of m write anything.
func (m *Manager) Enabled() bool { return m.enabled }

// active returns the global manager, or nil when recording is disabled.
func active() *Manager {
	if m := global.Load(); m != nil && m.enabled {
		return m
	}
	return nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.ticks = m.counter("ticks_total", "Total number of completed ticks")
	m.tickDuration = m.histogram("tick_duration_milliseconds", "Wall time spent inside one tick", tickBuckets)
	m.tickOverruns = m.counter("tick_overruns_total", "Ticks that took longer than the tick period")
	m.tickPanics = m.counter("tick_panics_total", "Ticks aborted by a recovered panic")
	m.snapshotSeq = m.gauge("snapshot_sequence", "Sequence id of the last committed snapshot")
	m.historyLength = m.gauge("history_length", "Snapshots currently retained in history")
	m.diagnosticsOut = m.counterVec("diagnostics_total", "Diagnostics emitted by the tick loop", "kind")

	m.bufferWrites = m.counterVec("buffer_writes_total", "Datapoints written into ingestion buffers", "source")
	m.bufferOverwrites = m.counterVec("buffer_overwrites_total", "Unread datapoints replaced by a newer write", "source")

	m.refinerErrors = m.counterVec("refiner_errors_total", "Recoverable refiner failures", "refiner")

	m.evaluationsSkipped = m.counterVec("rule_evaluations_skipped_total", "Ticks whose rule evaluation was skipped", "reason")
	m.violations = m.counterVec("violations_total", "Violations reported by rule checkers", "rule")
	m.violationsSuppressed = m.counterVec("violations_suppressed_total", "Violations not applied by the state machine", "reason")
	m.transitions = m.counterVec("transitions_total", "State machine command transitions", "cause")
	m.score = m.gaugeVec("score", "Current score per team", "team")
	m.command = m.gauge("command", "Numeric id of the active referee command")

	m.queueSize = m.gaugeVec("queue_size", "Items waiting in a bounded queue", "queue")
	m.queueRejected = m.counterVec("queue_rejected_total", "Items rejected by a full or closed queue", "queue")
	m.journalWrites = m.counterVec("journal_writes_total", "Rows written by a journal writer", "writer")
	m.journalErrors = m.counterVec("journal_errors_total", "Failed writes by a journal writer", "writer")
	m.journalLatency = m.histogramVec("journal_write_latency_milliseconds", "Journal write latency",
		m.latencyBuckets, "writer")
	m.streamClients = m.gauge("stream_clients", "Connected stream subscribers")
	m.streamBroadcast = m.counter("stream_broadcasts_total", "Frames broadcast to stream subscribers")
	m.streamDrops = m.counter("stream_disconnects_total", "Subscribers dropped after a failed write")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by route, method and status",
		"route", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.latencyBuckets, "route", "method")
	m.errorRateByEndpoint = m.counterVec("http_errors_total", "HTTP error responses by route and error code",
		"route", "code")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

func millis(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// Tick loop.

// RecordTick records one completed tick and its duration.
func RecordTick(d time.Duration) {
	if m := active(); m != nil {
		m.ticks.Inc()
		m.tickDuration.Observe(millis(d))
	}
}

// RecordTickOverrun counts a tick that exceeded its period.
func RecordTickOverrun() {
	if m := active(); m != nil {
		m.tickOverruns.Inc()
	}
}

// RecordTickPanic counts a tick aborted by a recovered panic.
func RecordTickPanic() {
	if m := active(); m != nil {
		m.tickPanics.Inc()
	}
}

// UpdateSnapshotSequence sets the last committed sequence id.
func UpdateSnapshotSequence(seq uint64) {
	if m := active(); m != nil {
		m.snapshotSeq.Set(float64(seq))
	}
}

// UpdateHistoryLength sets the number of retained snapshots.
func UpdateHistoryLength(n int) {
	if m := active(); m != nil {
		m.historyLength.Set(float64(n))
	}
}

// RecordDiagnostic counts a diagnostic by kind.
func RecordDiagnostic(kind string) {
	if m := active(); m != nil {
		m.diagnosticsOut.WithLabelValues(kind).Inc()
	}
}

// Ingestion.

// RecordBufferWrite counts a write into the named buffer.
func RecordBufferWrite(source string) {
	if m := active(); m != nil {
		m.bufferWrites.WithLabelValues(source).Inc()
	}
}

// RecordBufferOverwrite counts an unread value replaced in the named buffer.
func RecordBufferOverwrite(source string) {
	if m := active(); m != nil {
		m.bufferOverwrites.WithLabelValues(source).Inc()
	}
}

// Pipeline.

// RecordRefinerError counts a recoverable refiner failure.
func RecordRefinerError(refiner string) {
	if m := active(); m != nil {
		m.refinerErrors.WithLabelValues(refiner).Inc()
	}
}

// Referee.

// RecordEvaluationSkipped counts a tick whose rule evaluation was skipped.
func RecordEvaluationSkipped(reason string) {
	if m := active(); m != nil {
		m.evaluationsSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordViolation counts a violation reported by a rule.
func RecordViolation(rule string) {
	if m := active(); m != nil {
		m.violations.WithLabelValues(rule).Inc()
	}
}

// RecordViolationSuppressed counts a violation the state machine did not apply.
func RecordViolationSuppressed(reason string) {
	if m := active(); m != nil {
		m.violationsSuppressed.WithLabelValues(reason).Inc()
	}
}

// RecordTransition counts a command transition by cause.
func RecordTransition(cause string) {
	if m := active(); m != nil {
		m.transitions.WithLabelValues(cause).Inc()
	}
}

// UpdateScore sets the score gauge for team.
func UpdateScore(team string, score int) {
	if m := active(); m != nil {
		m.score.WithLabelValues(team).Set(float64(score))
	}
}

// UpdateCommand sets the active command id.
func UpdateCommand(id int) {
	if m := active(); m != nil {
		m.command.Set(float64(id))
	}
}

// Queues, journal writers and stream.

// UpdateQueueSize sets the depth of the named queue.
func UpdateQueueSize(queue string, size int) {
	if m := active(); m != nil {
		m.queueSize.WithLabelValues(queue).Set(float64(size))
	}
}

// RecordQueueRejected counts an item rejected by the named queue.
func RecordQueueRejected(queue string) {
	if m := active(); m != nil {
		m.queueRejected.WithLabelValues(queue).Inc()
	}
}

// RecordJournalWrite records a successful write by the named writer.
func RecordJournalWrite(writer string, latency time.Duration) {
	if m := active(); m != nil {
		m.journalWrites.WithLabelValues(writer).Inc()
		m.journalLatency.WithLabelValues(writer).Observe(millis(latency))
	}
}

// RecordJournalError counts a failed write by the named writer.
func RecordJournalError(writer string) {
	if m := active(); m != nil {
		m.journalErrors.WithLabelValues(writer).Inc()
	}
}

// UpdateStreamClients sets the number of connected subscribers.
func UpdateStreamClients(n int) {
	if m := active(); m != nil {
		m.streamClients.Set(float64(n))
	}
}

// RecordStreamBroadcast counts a frame broadcast.
func RecordStreamBroadcast() {
	if m := active(); m != nil {
		m.streamBroadcast.Inc()
	}
}

// RecordStreamDisconnect counts a subscriber dropped on write failure.
func RecordStreamDisconnect() {
	if m := active(); m != nil {
		m.streamDrops.Inc()
	}
}

// HTTP.

// RecordHTTPRequest records one served request on route.
func RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m := active(); m != nil {
		m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(route, method).Observe(millis(d))
	}
}

// RecordHTTPError counts an error response on route by its error code.
func RecordHTTPError(route, code string) {
	if m := active(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(route, code).Inc()
	}
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := active(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := active(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := active(); m != nil {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the registry of the global manager.
func GetRegistry() *prometheus.Registry {
	return global.Load().gatherer
}

// RefreshInterval reports how often sampled gauges should be refreshed.
func RefreshInterval() time.Duration {
	return global.Load().refreshInterval
}
