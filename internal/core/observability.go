package core

import (
	"context"
	"time"
)

// MetricsRecorder observes handler outcomes. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around handler invocations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a started span with the handler's outcome.
type TraceSpan interface {
	End(err error)
}

// instrument opens a span and returns the closer that records the handler
// outcome. Usage: defer s.instrument(ctx, op)(func() error { return err })
// with a named error return, so the deferred call sees the final value.
func (s *Service) instrument(ctx context.Context, operation string) func(result func() error) {
	start := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		_, span = s.tracer.Start(ctx, operation)
	}
	return func(result func() error) {
		err := result()
		if s.metrics != nil {
			s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
		}
		if span != nil {
			span.End(err)
		}
	}
}
