// Package config defines the plain-data configuration structs used to
// construct the run loop, sync_wait, when_all, split/ensure_started, and
// the worker-pool scheduler. Each struct follows the same shape: JSON-
// serializable fields, a Default*Config constructor, and a Merge method
// that overlays a partial config onto a base one. Observers are resolved
// by name through the observability registry at construction time rather
// than held as interface values, so configs stay serializable end to end.
package config

// RunLoopConfig configures a run loop instance (L3).
type RunLoopConfig struct {
	// Observer names the observer used for runloop.task.* events.
	Observer string `json:"observer"`

	// QueueCapacityHint pre-sizes the internal task queue. Zero means "no
	// hint" — the queue still grows unbounded, this only avoids early
	// reallocation for callers that know their expected depth.
	QueueCapacityHint int `json:"queue_capacity_hint"`
}

// DefaultRunLoopConfig returns sensible defaults: a silent observer and no
// capacity hint.
func DefaultRunLoopConfig() RunLoopConfig {
	return RunLoopConfig{Observer: "noop"}
}

// Merge overlays non-zero fields from source onto c.
func (c *RunLoopConfig) Merge(source RunLoopConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.QueueCapacityHint > 0 {
		c.QueueCapacityHint = source.QueueCapacityHint
	}
}

// SyncWaitConfig configures sync_wait (L10).
type SyncWaitConfig struct {
	// Observer names the observer used for syncwait.* events.
	Observer string `json:"observer"`
}

// DefaultSyncWaitConfig returns sensible defaults.
func DefaultSyncWaitConfig() SyncWaitConfig {
	return SyncWaitConfig{Observer: "noop"}
}

// Merge overlays non-zero fields from source onto c.
func (c *SyncWaitConfig) Merge(source SyncWaitConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// WhenAllConfig configures a when_all fan-in (L9).
type WhenAllConfig struct {
	// Observer names the observer resolved for the when_all aggregator,
	// which emits no events through it.
	Observer string `json:"observer"`
}

// DefaultWhenAllConfig returns sensible defaults.
func DefaultWhenAllConfig() WhenAllConfig {
	return WhenAllConfig{Observer: "noop"}
}

// Merge overlays non-zero fields from source onto c.
func (c *WhenAllConfig) Merge(source WhenAllConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// SplitConfig configures split/ensure_started shared state (L8).
type SplitConfig struct {
	// Observer names the observer resolved for the shared state, which
	// emits no events through it.
	Observer string `json:"observer"`
}

// DefaultSplitConfig returns sensible defaults.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{Observer: "noop"}
}

// Merge overlays non-zero fields from source onto c.
func (c *SplitConfig) Merge(source SplitConfig) {
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// WorkerPoolConfig configures the supplementary worker-pool Scheduler in
// schedulers/pool.
type WorkerPoolConfig struct {
	// Workers is the number of goroutines draining the task channel. Zero
	// means "use runtime.NumCPU()".
	Workers int `json:"workers"`

	// QueueCapacity bounds the scheduler's pending-task channel. Zero
	// makes the channel unbuffered: starting a Schedule sender then blocks
	// until a worker takes the task. There is no unbounded mode.
	QueueCapacity int `json:"queue_capacity"`

	// Observer names an observer for the pool. The pool only checks that
	// the name is registered; it emits no events.
	Observer string `json:"observer"`
}

// DefaultWorkerPoolConfig returns sensible defaults: auto-detected worker
// count, a modestly sized queue, and a silent observer.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		Workers:       0,
		QueueCapacity: 256,
		Observer:      "noop",
	}
}

// Merge overlays non-zero fields from source onto c.
func (c *WorkerPoolConfig) Merge(source WorkerPoolConfig) {
	if source.Workers > 0 {
		c.Workers = source.Workers
	}
	if source.QueueCapacity > 0 {
		c.QueueCapacity = source.QueueCapacity
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
