// Package observability wires metrics and tracing for the application.
package observability

import (
	"github.com/creatorstack/paisa/internal/observability/metrics"
	"github.com/creatorstack/paisa/internal/observability/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

var Module = fx.Module("observability",
	fx.Provide(
		newRegistry,
		func(reg *prometheus.Registry) prometheus.Registerer { return reg },
		func(reg *prometheus.Registry) prometheus.Gatherer { return reg },
		metrics.New,
		tracing.NewProvider,
	),
	// The tracer provider registers globally; force construction at startup.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
