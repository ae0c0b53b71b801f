package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("domain", "production"),
		attribute.String("variant_id", "456"),
		attribute.String("outcome", "success"),
	)
	require.Len(t, attrs, 2)
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("domain"))
	assert.Contains(t, keys, attribute.Key("outcome"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStockMutation(ctx, "add_to_future", "success")
		m.RecordLedgerEntry(ctx, "PRODUCTION_APPROVAL", "FUTURE")
		m.RecordTransition(ctx, "production", "APPROVAL", "success")
		m.RecordBatchItem(ctx, "bulk_adjust", "failure")
		m.RecordLowStockAlert(ctx, "LOW_STOCK")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "coretrack-test"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordTransition(context.Background(), "sales", "ALLOCATED", "success")
	})
}
