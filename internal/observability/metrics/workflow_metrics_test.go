package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: JobReasonDeadlineExceeded},
		{name: "canceled", err: fmt.Errorf("tick: %w", context.Canceled), want: JobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: JobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: JobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: JobReasonUniqueViolation},
		{name: "publish", err: fmt.Errorf("relay: %w", errors.New("publish_failed")), want: JobReasonPublish},
		{name: "unknown", err: errors.New("boom"), want: JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyJobReason(tc.err))
		})
	}
}

func TestTransitionCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newWorkflowMetrics(registry, Config{ServiceName: "coretrack", Environment: "test"})

	m.IncTransition("production", "NEW", "APPROVAL")
	m.IncTransition("production", "NEW", "APPROVAL")
	m.IncTransitionError("production", errors.New("illegal_transition"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("production", "NEW", "APPROVAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionErrors.WithLabelValues("production", "illegal_transition")))
}

func TestConstLabelsAreAttached(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newWorkflowMetrics(registry, Config{ServiceName: "coretrack", Environment: "test"})
	m.IncBatchItem("bulk_adjust", "success")

	families, err := registry.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, family := range families {
		if family.GetName() == "coretrack_batch_items_total" {
			found = family
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.GetMetric(), 1)

	labels := map[string]string{}
	for _, pair := range found.GetMetric()[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, "coretrack", labels["service"])
	assert.Equal(t, "test", labels["env"])
	assert.Equal(t, "bulk_adjust", labels["operation"])
	assert.Equal(t, "success", labels["outcome"])
}

func TestNilWorkflowMetricsAreSafe(t *testing.T) {
	var m *WorkflowMetrics
	assert.NotPanics(t, func() {
		m.IncJobRun("outbox_dispatch")
		m.IncJobError("outbox_dispatch", errors.New("boom"))
		m.IncUOWRetry("inventory.adjust")
		m.ObserveRunLoopLag(-1)
	})
}
