package metrics

import "sync/atomic"

// Snapshot returns a copy of every in-process counter keyed by name.
// The map is owned by the caller.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.counters))
	for key, ptr := range r.counters {
		out[string(key)] = atomic.LoadInt64(ptr)
	}
	return out
}

// Value returns the current value of a single counter, 0 if never touched.
func (r *Registry) Value(key MetricKey) int64 {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if !ok {
		return 0
	}
	return atomic.LoadInt64(ptr)
}
