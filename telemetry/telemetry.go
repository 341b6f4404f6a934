// Package telemetry sets up the tracer provider and the profiler of a scene process. Spans are
// created through the global otel tracer; with tracing disabled they go to the no-op provider.
package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

type Manager struct {
	tracerProvider *ddotel.TracerProvider
	stopProfiler   func()
}

func New(enableTrace bool, enableProfiler bool) (*Manager, error) {
	tm := &Manager{}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if enableTrace {
		tm.tracerProvider = ddotel.NewTracerProvider(tracer.WithRuntimeMetrics())
		otel.SetTracerProvider(tm.tracerProvider)
	}

	if enableProfiler {
		err := profiler.Start(profiler.WithProfileTypes(profiler.CPUProfile, profiler.HeapProfile))
		if err != nil {
			return nil, errors.Join(err, tm.Shutdown())
		}
		tm.stopProfiler = profiler.Stop
	}

	return tm, nil
}

// Tracing reports whether spans are exported.
func (tm *Manager) Tracing() bool {
	return tm.tracerProvider != nil
}

// Shutdown flushes the tracer and stops the profiler. It is safe to call more than once.
func (tm *Manager) Shutdown() error {
	var err error
	if tm.tracerProvider != nil {
		err = tm.tracerProvider.Shutdown()
		tm.tracerProvider = nil
	}
	if tm.stopProfiler != nil {
		tm.stopProfiler()
		tm.stopProfiler = nil
	}
	return err
}
