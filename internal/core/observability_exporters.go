package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// HandlerStats aggregates the recorded outcomes of one handler operation.
type HandlerStats struct {
	Success   int64   `json:"success"`
	Error     int64   `json:"error"`
	ElapsedMS float64 `json:"elapsed_ms_total"`
}

// ExpvarMetricsRecorder keeps per-operation handler statistics and
// publishes them through expvar, for deployments that want process-local
// metrics without a scrape endpoint.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]*HandlerStats
}

// NewExpvarMetricsRecorder constructs a recorder published under name.
// An empty name gets a generated one so multiple recorders can coexist in
// one process.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("registry_handler_stats_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]*HandlerStats)}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the aggregated statistics keyed by operation.
func (r *ExpvarMetricsRecorder) Snapshot() map[string]HandlerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]HandlerStats, len(r.ops))
	for op, stats := range r.ops {
		out[op] = *stats
	}
	return out
}

// Observe records a handler outcome.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stats, ok := r.ops[operation]
	if !ok {
		stats = &HandlerStats{}
		r.ops[operation] = stats
	}
	if success {
		stats.Success++
	} else {
		stats.Error++
	}
	stats.ElapsedMS += float64(duration) / float64(time.Millisecond)
}

// TraceRecord is one completed handler span as emitted by JSONTracer.
type TraceRecord struct {
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	ElapsedMS float64   `json:"elapsed_ms"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// JSONTracer writes one JSON line per completed handler span and keeps the
// records in memory for inspection.
type JSONTracer struct {
	mu      sync.Mutex
	records []TraceRecord
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer emitting to w. A nil writer keeps the
// records in memory only.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of every recorded span so far.
func (t *JSONTracer) Entries() []TraceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceRecord(nil), t.records...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	rec := TraceRecord{
		Operation: s.operation,
		Outcome:   "success",
		ElapsedMS: float64(time.Since(s.started)) / float64(time.Millisecond),
		StartedAt: s.started,
	}
	if err != nil {
		rec.Outcome = "error"
		rec.Error = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.records = append(s.tracer.records, rec)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(rec)
	}
	s.tracer.mu.Unlock()
}
