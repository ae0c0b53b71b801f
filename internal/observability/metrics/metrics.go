package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes domain-level OTel instruments.
type Metrics struct {
	stockMutations metric.Int64Counter
	ledgerEntries  metric.Int64Counter
	transitions    metric.Int64Counter
	batchItems     metric.Int64Counter
	lowStockAlerts metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "coretrack"
	}
	meter := provider.Meter(name)

	stockMutations, err := meter.Int64Counter("coretrack_stock_mutations_total")
	if err != nil {
		return nil, err
	}
	ledgerEntries, err := meter.Int64Counter("coretrack_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("coretrack_ticket_transitions_total")
	if err != nil {
		return nil, err
	}
	batchItems, err := meter.Int64Counter("coretrack_batch_items_total")
	if err != nil {
		return nil, err
	}
	lowStockAlerts, err := meter.Int64Counter("coretrack_low_stock_alerts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		stockMutations: stockMutations,
		ledgerEntries:  ledgerEntries,
		transitions:    transitions,
		batchItems:     batchItems,
		lowStockAlerts: lowStockAlerts,
	}, nil
}

// RecordStockMutation counts one engine operation by outcome.
func (m *Metrics) RecordStockMutation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.stockMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLedgerEntry increments ledger entry counts.
func (m *Metrics) RecordLedgerEntry(ctx context.Context, sourceType, bucket string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source_type", strings.TrimSpace(sourceType)),
		attribute.String("bucket", strings.TrimSpace(bucket)),
	)
	m.ledgerEntries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition counts a detail status change attempt.
func (m *Metrics) RecordTransition(ctx context.Context, domain, toStatus, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("domain", strings.TrimSpace(domain)),
		attribute.String("to_status", strings.TrimSpace(toStatus)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBatchItem counts one processed bulk item.
func (m *Metrics) RecordBatchItem(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.batchItems.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLowStockAlert counts records entering LOW_STOCK or OUT_OF_STOCK.
func (m *Metrics) RecordLowStockAlert(ctx context.Context, status string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("status", strings.TrimSpace(status)))
	m.lowStockAlerts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"source_type": {},
	"bucket":      {},
	"domain":      {},
	"to_status":   {},
	"status":      {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)
