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

// Metrics exposes business-level instruments. A nil *Metrics records nothing.
type Metrics struct {
	ordersConfirmed    metric.Int64Counter
	transactionsPosted metric.Int64Counter
	paymentEvents      metric.Int64Counter
	stockMovements     metric.Int64Counter
	logins             metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
	analyticsRollups   metric.Int64Counter
	schedulerJobs      metric.Int64Counter
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

// New creates the domain instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "bizcore"
	}
	meter := provider.Meter(name)

	var (
		m   Metrics
		err error
	)
	counters := []struct {
		target *metric.Int64Counter
		name   string
	}{
		{&m.ordersConfirmed, "bizcore_orders_confirmed_total"},
		{&m.transactionsPosted, "bizcore_transactions_posted_total"},
		{&m.paymentEvents, "bizcore_payment_events_total"},
		{&m.stockMovements, "bizcore_stock_movements_total"},
		{&m.logins, "bizcore_logins_total"},
		{&m.rateLimitDenied, "bizcore_rate_limit_denied_total"},
		{&m.analyticsRollups, "bizcore_analytics_rollups_total"},
		{&m.schedulerJobs, "bizcore_scheduler_job_runs_total"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name); err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

func (m *Metrics) RecordOrderConfirmed(ctx context.Context, businessID string) {
	if m == nil {
		return
	}
	m.ordersConfirmed.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("business_id", businessID),
	)...))
}

func (m *Metrics) RecordTransactionPosted(ctx context.Context, businessID, transactionType string) {
	if m == nil {
		return
	}
	m.transactionsPosted.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("business_id", businessID),
		attribute.String("transaction_type", transactionType),
	)...))
}

// RecordPaymentEvent counts captures, refunds and gateway webhooks.
func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType string) {
	if m == nil {
		return
	}
	m.paymentEvents.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("event_type", strings.TrimSpace(eventType)),
	)...))
}

func (m *Metrics) RecordStockMovement(ctx context.Context, movementType string) {
	if m == nil {
		return
	}
	m.stockMovements.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("movement_type", movementType),
	)...))
}

func (m *Metrics) RecordLogin(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("outcome", outcome),
	)...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)...))
}

func (m *Metrics) RecordAnalyticsRollup(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.analyticsRollups.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("kind", kind),
	)...))
}

// RecordSchedulerJob counts one job run; outcome is ok, error or timeout.
func (m *Metrics) RecordSchedulerJob(ctx context.Context, job, outcome string) {
	if m == nil {
		return
	}
	m.schedulerJobs.Add(ctx, 1, metric.WithAttributes(FilterAttributes(
		attribute.String("job", job),
		attribute.String("outcome", outcome),
	)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
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
	"business_id":      {},
	"endpoint":         {},
	"status_code":      {},
	"provider":         {},
	"event_type":       {},
	"transaction_type": {},
	"movement_type":    {},
	"outcome":          {},
	"kind":             {},
	"job":              {},
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
