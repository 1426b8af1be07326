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

// Metrics exposes application-level instruments.
type Metrics struct {
	ruleResolutions   metric.Int64Counter
	budgetRecomputes  metric.Int64Counter
	budgetTransitions metric.Int64Counter
	documentsPosted   metric.Int64Counter
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
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "kontera"
	}
	meter := provider.Meter(name)

	ruleResolutions, err := meter.Int64Counter("kontera_rule_resolutions_total")
	if err != nil {
		return nil, err
	}
	budgetRecomputes, err := meter.Int64Counter("kontera_budget_recomputes_total")
	if err != nil {
		return nil, err
	}
	budgetTransitions, err := meter.Int64Counter("kontera_budget_transitions_total")
	if err != nil {
		return nil, err
	}
	documentsPosted, err := meter.Int64Counter("kontera_documents_posted_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ruleResolutions:   ruleResolutions,
		budgetRecomputes:  budgetRecomputes,
		budgetTransitions: budgetTransitions,
		documentsPosted:   documentsPosted,
	}, nil
}

// RecordRuleResolution counts resolver outcomes ("matched" or "unmatched").
func (m *Metrics) RecordRuleResolution(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.ruleResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", strings.TrimSpace(outcome)),
	))
}

// RecordBudgetRecompute counts aggregation runs per trigger source.
func (m *Metrics) RecordBudgetRecompute(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.budgetRecomputes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", strings.TrimSpace(trigger)),
	))
}

// RecordBudgetTransition counts workflow stage transitions.
func (m *Metrics) RecordBudgetTransition(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.budgetTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("stage", strings.TrimSpace(stage)),
	))
}

// RecordDocumentPosted counts posted documents by type.
func (m *Metrics) RecordDocumentPosted(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	m.documentsPosted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("document_type", strings.TrimSpace(documentType)),
	))
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
