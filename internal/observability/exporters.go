package observability

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"pluginscaffold/internal/host"
)

var expvarSeq uint64

// ExpvarRecorder publishes per-hook timing and result counters via expvar.
type ExpvarRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
}

// ExpvarSnapshot is a read-only view of the recorded counters.
type ExpvarSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarRecorder publishes a recorder under name; an empty name gets a
// generated one since expvar names are process-global.
func NewExpvarRecorder(name string) *ExpvarRecorder {
	if name == "" {
		name = fmt.Sprintf("pluginscaffold_dispatch_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarRecorder) Name() string { return r.name }

// Snapshot copies the aggregated counters.
func (r *ExpvarRecorder) Snapshot() ExpvarSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	durations := make(map[string]float64, len(r.durations))
	for k, v := range r.durations {
		durations[k] = v
	}
	results := make(map[string]map[string]int64, len(r.results))
	for k, counts := range r.results {
		cp := make(map[string]int64, len(counts))
		for status, n := range counts {
			cp[status] = n
		}
		results[k] = cp
	}
	return ExpvarSnapshot{DurationsMS: durations, Results: results, RecordedAt: time.Now().UTC()}
}

// ObserveDispatch implements host.Observer. Counters are keyed kind:hook.
func (r *ExpvarRecorder) ObserveDispatch(_ context.Context, d host.Dispatch) {
	if d.Hook == "" {
		return
	}
	key := d.Kind + ":" + d.Hook
	r.mu.Lock()
	r.durations[key] += float64(d.Duration) / float64(time.Millisecond)
	if _, ok := r.results[key]; !ok {
		r.results[key] = make(map[string]int64, 2)
	}
	r.results[key][result(d.Err)]++
	r.mu.Unlock()
}

// TraceEntry is one serialized dispatch.
type TraceEntry struct {
	Kind       string    `json:"kind"`
	Hook       string    `json:"hook"`
	Callbacks  int       `json:"callbacks"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes each dispatch as a JSON line and keeps it for inspection.
type JSONTracer struct {
	mu      sync.Mutex
	entries []TraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w; a nil w only retains entries.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of all recorded dispatches.
func (t *JSONTracer) Entries() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEntry(nil), t.entries...)
}

// ObserveDispatch implements host.Observer.
func (t *JSONTracer) ObserveDispatch(_ context.Context, d host.Dispatch) {
	entry := TraceEntry{
		Kind:       d.Kind,
		Hook:       d.Hook,
		Callbacks:  d.Callbacks,
		Status:     result(d.Err),
		DurationMS: float64(d.Duration) / float64(time.Millisecond),
		EndedAt:    time.Now().UTC(),
	}
	if d.Err != nil {
		entry.Error = d.Err.Error()
	}
	t.mu.Lock()
	t.entries = append(t.entries, entry)
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
	t.mu.Unlock()
}

// Multi fans a dispatch out to every non-nil observer.
type Multi []host.Observer

// ObserveDispatch implements host.Observer.
func (m Multi) ObserveDispatch(ctx context.Context, d host.Dispatch) {
	for _, o := range m {
		if o != nil {
			o.ObserveDispatch(ctx, d)
		}
	}
}
