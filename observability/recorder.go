package observability

import (
	"context"
	"sync"

	"github.com/hupe1980/tripmesh/core"
	"github.com/hupe1980/tripmesh/logging"
)

// LogRecorder writes every record to a logger at debug level.
type LogRecorder struct {
	logger logging.Logger
}

// NewLogRecorder creates a LogRecorder.
func NewLogRecorder(logger logging.Logger) *LogRecorder {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogRecorder{logger: logger}
}

// Record implements core.Recorder.
func (r *LogRecorder) Record(_ context.Context, rec core.Record) {
	args := []any{"event_type", rec.EventType, "handler", rec.Handler, "timestamp", rec.Timestamp}
	for k, v := range rec.Metadata {
		args = append(args, k, v)
	}
	r.logger.Debug("record", args...)
}

// MemoryRecorder keeps records in memory. Useful in tests and for the CLI trace view.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []core.Record
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record implements core.Recorder.
func (r *MemoryRecorder) Record(_ context.Context, rec core.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of all records in arrival order.
func (r *MemoryRecorder) Records() []core.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Record(nil), r.records...)
}

// Filter returns the records of one event type, optionally restricted to a handler.
func (r *MemoryRecorder) Filter(eventType, handler string) []core.Record {
	var out []core.Record
	for _, rec := range r.Records() {
		if rec.EventType != eventType {
			continue
		}
		if handler != "" && rec.Handler != handler {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Transitions returns the "from->to" transitions recorded for handler.
func (r *MemoryRecorder) Transitions(handler string) []string {
	var out []string
	for _, rec := range r.Filter(core.RecordStateTransition, handler) {
		from, _ := rec.Metadata["from"].(string)
		to, _ := rec.Metadata["to"].(string)
		out = append(out, from+"->"+to)
	}
	return out
}

// Reset drops all records.
func (r *MemoryRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

type multiRecorder []core.Recorder

// Multi fans a record out to every non-nil recorder in order.
func Multi(recorders ...core.Recorder) core.Recorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Record implements core.Recorder.
func (m multiRecorder) Record(ctx context.Context, rec core.Record) {
	for _, r := range m {
		r.Record(ctx, rec)
	}
}
