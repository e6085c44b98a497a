package o11y

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string
	// OTLPEndpoint is the host:port of an OTLP/HTTP collector. Spans are not
	// exported when it is empty.
	OTLPEndpoint string
	SampleRatio  float64
}

type Observability struct {
	Logger   *slog.Logger
	Tracer   *trace.TracerProvider
	Registry *prometheus.Registry
	Bookings *BookingMetrics
}

func Setup(ctx context.Context, cfg Config) (*Observability, func(), error) {
	var level slog.Level
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, func() {}, err
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	opts := []trace.TracerProviderOption{
		trace.WithSampler(trace.ParentBased(
			trace.TraceIDRatioBased(cfg.SampleRatio),
		)),
	}
	if cfg.OTLPEndpoint != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithInsecure(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		)
		if err != nil {
			return nil, func() {}, err
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}
	tp := trace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}

	return &Observability{
		Logger:   logger,
		Tracer:   tp,
		Registry: registry,
		Bookings: NewBookingMetrics(registry),
	}, cleanup, nil
}
