package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/errcode"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonPublish              = "publish_failed"
	JobReasonUnknown              = "unknown"
)

const (
	LockResourceVariant = "inventory_variant"
	LockResourceDetail  = "ticket_detail"
	LockResourceTicket  = "ticket"
)

// WorkflowMetrics captures ticket workflow and background job health signals.
type WorkflowMetrics struct {
	jobRuns          *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobErrors        *prometheus.CounterVec
	runLoopLag       prometheus.Observer
	transitions      *prometheus.CounterVec
	transitionErrors *prometheus.CounterVec
	lockWait         *prometheus.HistogramVec
	outboxDispatched *prometheus.CounterVec
	outboxFailed     *prometheus.CounterVec
	batchItems       *prometheus.CounterVec
	uowRetries       *prometheus.CounterVec
}

var (
	workflowMetricsOnce sync.Once
	workflowMetrics     *WorkflowMetrics
)

// Workflow returns the singleton workflow metrics registry.
func Workflow() *WorkflowMetrics {
	return WorkflowWithConfig(Config{})
}

// WorkflowWithConfig returns the singleton workflow metrics registry using config labels.
func WorkflowWithConfig(cfg Config) *WorkflowMetrics {
	workflowMetricsOnce.Do(func() {
		workflowMetrics = newWorkflowMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return workflowMetrics
}

// ResetWorkflowMetricsForTest resets the workflow metrics singleton for tests.
func ResetWorkflowMetricsForTest() {
	workflowMetricsOnce = sync.Once{}
	workflowMetrics = nil
}

// NewWorkflowMetricsForRegistry builds an unshared instance bound to registerer.
func NewWorkflowMetricsForRegistry(registerer prometheus.Registerer, cfg Config) *WorkflowMetrics {
	return newWorkflowMetrics(registerer, cfg)
}

func newWorkflowMetrics(registerer prometheus.Registerer, cfg Config) *WorkflowMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "coretrack"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_job_runs_total",
		Help:        "Background job runs by name.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "coretrack_job_duration_seconds",
		Help:        "Background job latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_job_errors_total",
		Help:        "Background job errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "coretrack_runloop_lag_seconds",
		Help:        "Run loop lag beyond the configured interval.",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		ConstLabels: constLabels,
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_detail_transitions_total",
		Help:        "Ticket detail status transitions applied.",
		ConstLabels: constLabels,
	}, []string{"domain", "from", "to"})
	transitionErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_detail_transition_errors_total",
		Help:        "Rejected ticket detail transitions by error code.",
		ConstLabels: constLabels,
	}, []string{"domain", "code"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "coretrack_lock_wait_seconds",
		Help:        "Time spent acquiring workflow locks.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})
	outboxDispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_outbox_dispatched_total",
		Help:        "Outbox events relayed to the publisher.",
		ConstLabels: constLabels,
	}, []string{"publisher"})
	outboxFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_outbox_failed_total",
		Help:        "Outbox publish attempts that failed.",
		ConstLabels: constLabels,
	}, []string{"publisher"})
	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_batch_items_total",
		Help:        "Bulk batch items by operation and outcome.",
		ConstLabels: constLabels,
	}, []string{"operation", "outcome"})
	uowRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coretrack_uow_retries_total",
		Help:        "Unit of work replays after retryable transaction errors.",
		ConstLabels: constLabels,
	}, []string{"name"})

	registerer.MustRegister(
		jobRuns,
		jobDuration,
		jobErrors,
		runLoopLag,
		transitions,
		transitionErrors,
		lockWait,
		outboxDispatched,
		outboxFailed,
		batchItems,
		uowRetries,
	)

	return &WorkflowMetrics{
		jobRuns:          jobRuns,
		jobDuration:      jobDuration,
		jobErrors:        jobErrors,
		runLoopLag:       runLoopLag,
		transitions:      transitions,
		transitionErrors: transitionErrors,
		lockWait:         lockWait,
		outboxDispatched: outboxDispatched,
		outboxFailed:     outboxFailed,
		batchItems:       batchItems,
		uowRetries:       uowRetries,
	}
}

// IncJobRun increments the run counter for a job.
func (m *WorkflowMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// ObserveJobDuration records job latency in seconds.
func (m *WorkflowMetrics) ObserveJobDuration(job string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncJobError increments the job error counter with classification.
func (m *WorkflowMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

// ObserveRunLoopLag records lag between the scheduled tick and actual run start.
func (m *WorkflowMetrics) ObserveRunLoopLag(duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.runLoopLag.Observe(duration.Seconds())
}

func (m *WorkflowMetrics) IncTransition(domain, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(domain, from, to).Inc()
}

// IncTransitionError counts a rejected transition by its error code.
func (m *WorkflowMetrics) IncTransitionError(domain string, err error) {
	if m == nil || err == nil {
		return
	}
	m.transitionErrors.WithLabelValues(domain, errcode.Of(err)).Inc()
}

func (m *WorkflowMetrics) ObserveLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

func (m *WorkflowMetrics) IncOutboxDispatched(publisher string) {
	if m == nil {
		return
	}
	m.outboxDispatched.WithLabelValues(publisher).Inc()
}

func (m *WorkflowMetrics) IncOutboxFailed(publisher string) {
	if m == nil {
		return
	}
	m.outboxFailed.WithLabelValues(publisher).Inc()
}

func (m *WorkflowMetrics) IncBatchItem(operation, outcome string) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues(operation, outcome).Inc()
}

func (m *WorkflowMetrics) IncUOWRetry(name string) {
	if m == nil {
		return
	}
	m.uowRetries.WithLabelValues(name).Inc()
}

// ClassifyJobReason maps job errors to low-cardinality reasons.
func ClassifyJobReason(err error) string {
	if err == nil {
		return JobReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return JobReasonDeadlineExceeded
	}
	switch errcode.Of(err) {
	case errcode.LockTimeout:
		return JobReasonDBLockTimeout
	case errcode.Serialization:
		return JobReasonSerializationFailure
	case errcode.Duplicate:
		return JobReasonUniqueViolation
	case JobReasonPublish:
		return JobReasonPublish
	}
	return JobReasonUnknown
}
