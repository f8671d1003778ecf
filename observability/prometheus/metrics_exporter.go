package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-task-profiler/core"
)

// DefaultNamespace prefixes every collector when no namespace is given.
const DefaultNamespace = "taskprof"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// DurationBuckets are the task duration histogram buckets, in seconds.
	DurationBuckets []float64

	// SessionBuckets are the session duration histogram buckets, in seconds.
	SessionBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds    *prom.HistogramVec
	taskSkippedTotal       *prom.CounterVec
	taskPanicTotal         *prom.CounterVec
	taskRejectedTotal      *prom.CounterVec
	queueDepth             *prom.GaugeVec
	sessionTotal           *prom.CounterVec
	sessionDurationSeconds *prom.HistogramVec
	sessionWorkers         *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Exporters created twice against the same registry share collectors.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		// 0.5ms up to roughly 4s.
		buckets = prom.ExponentialBuckets(0.0005, 2, 14)
	}
	sessionBuckets := opts.SessionBuckets
	if len(sessionBuckets) == 0 {
		sessionBuckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"runner"})
	skippedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_skipped_total",
		Help:      "Total number of tasks skipped by cancellation or rejection.",
	}, []string{"runner"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"runner"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"runner", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth.",
	}, []string{"runner"})
	sessionVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "session_total",
		Help:      "Total number of finished profiling sessions.",
	}, []string{"strategy", "outcome"})
	sessionDurationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Wall time of profiling sessions in seconds.",
		Buckets:   sessionBuckets,
	}, []string{"strategy"})
	sessionWorkersVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "session_workers",
		Help:      "Distinct workers observed in the last session.",
	}, []string{"strategy"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if skippedVec, err = registerCollector(reg, skippedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if sessionVec, err = registerCollector(reg, sessionVec); err != nil {
		return nil, err
	}
	if sessionDurationVec, err = registerCollector(reg, sessionDurationVec); err != nil {
		return nil, err
	}
	if sessionWorkersVec, err = registerCollector(reg, sessionWorkersVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds:    durationVec,
		taskSkippedTotal:       skippedVec,
		taskPanicTotal:         panicVec,
		taskRejectedTotal:      rejectedVec,
		queueDepth:             queueDepthVec,
		sessionTotal:           sessionVec,
		sessionDurationSeconds: sessionDurationVec,
		sessionWorkers:         sessionWorkersVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(runnerName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(runnerName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskSkipped records a task that never ran its work.
func (m *MetricsExporter) RecordTaskSkipped(runnerName string) {
	if m == nil {
		return
	}
	m.taskSkippedTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(runnerName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(runnerName, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(runnerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(runnerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordSession records a finished session.
func (m *MetricsExporter) RecordSession(strategy, outcome string, tasks, workers int, duration time.Duration) {
	if m == nil {
		return
	}
	strategy = normalizeLabel(strategy, "unknown")
	m.sessionTotal.WithLabelValues(strategy, normalizeLabel(outcome, "unknown")).Inc()
	m.sessionDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
	m.sessionWorkers.WithLabelValues(strategy).Set(float64(workers))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
