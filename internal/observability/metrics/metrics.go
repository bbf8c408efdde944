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
	flagEvaluations metric.Int64Counter
	flagUpdates     metric.Int64Counter
	appTransitions  metric.Int64Counter
	creditDenials   metric.Int64Counter
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

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "seftec-core"
	}
	meter := provider.Meter(name)

	flagEvaluations, err := meter.Int64Counter("seftec_flag_evaluations_total")
	if err != nil {
		return nil, err
	}
	flagUpdates, err := meter.Int64Counter("seftec_flag_updates_total")
	if err != nil {
		return nil, err
	}
	appTransitions, err := meter.Int64Counter("seftec_tradefinance_transitions_total")
	if err != nil {
		return nil, err
	}
	creditDenials, err := meter.Int64Counter("seftec_tradefinance_credit_denials_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		flagEvaluations: flagEvaluations,
		flagUpdates:     flagUpdates,
		appTransitions:  appTransitions,
		creditDenials:   creditDenials,
	}, nil
}

// RecordFlagEvaluation increments flag evaluation counts by decision reason.
func (m *Metrics) RecordFlagEvaluation(ctx context.Context, flag, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("flag", strings.TrimSpace(flag)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.flagEvaluations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFlagUpdate increments admin flag mutation counts.
func (m *Metrics) RecordFlagUpdate(ctx context.Context, flag string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("flag", strings.TrimSpace(flag)))
	m.flagUpdates.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransition increments application state transition counts.
func (m *Metrics) RecordTransition(ctx context.Context, toStatus string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("to_status", strings.TrimSpace(toStatus)))
	m.appTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditDenial increments counts of creations rejected by the credit gate.
func (m *Metrics) RecordCreditDenial(ctx context.Context, facilityType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("facility_type", strings.TrimSpace(facilityType)))
	m.creditDenials.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"flag":          {},
	"reason":        {},
	"to_status":     {},
	"facility_type": {},
	"endpoint":      {},
	"status_code":   {},
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
