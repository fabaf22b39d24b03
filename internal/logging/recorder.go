package logging

import (
	"context"
	"sync"
)

// Entry is one captured log call.
type Entry struct {
	Level string
	Msg   string
	Args  []any
}

// Value returns the value logged under key, if any.
func (e Entry) Value(key string) (any, bool) {
	for i := 0; i+1 < len(e.Args); i += 2 {
		if k, ok := e.Args[i].(string); ok && k == key {
			return e.Args[i+1], true
		}
	}
	return nil, false
}

// Recorder keeps every log call in memory. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) record(level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Args: append([]any(nil), args...)})
}

func (r *Recorder) Debug(_ context.Context, msg string, args ...any) { r.record("debug", msg, args) }
func (r *Recorder) Info(_ context.Context, msg string, args ...any) { r.record("info", msg, args) }
func (r *Recorder) Warn(_ context.Context, msg string, args ...any) { r.record("warn", msg, args) }
func (r *Recorder) Error(_ context.Context, msg string, args ...any) { r.record("error", msg, args) }

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Level returns the captured entries at the given level.
func (r *Recorder) Level(level string) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
