package pool

import "sync/atomic"

// MetricsSnapshot is a point-in-time read of a Scheduler's counters.
type MetricsSnapshot struct {
	Workers         int64
	TasksScheduled  int64
	TasksCompleted  int64
	TasksStopped    int64
	TasksErrored    int64
}

type metrics struct {
	workers        atomic.Int64
	tasksScheduled atomic.Int64
	tasksCompleted atomic.Int64
	tasksStopped   atomic.Int64
	tasksErrored   atomic.Int64
}

func newMetrics() *metrics {
	return &metrics{}
}

func (m *metrics) recordScheduled() { m.tasksScheduled.Add(1) }

func (m *metrics) recordCompleted(kind taskOutcome) {
	switch kind {
	case outcomeValue:
		m.tasksCompleted.Add(1)
	case outcomeStopped:
		m.tasksStopped.Add(1)
	case outcomeErrored:
		m.tasksErrored.Add(1)
	}
}

func (m *metrics) Snapshot(workers int) MetricsSnapshot {
	return MetricsSnapshot{
		Workers:        int64(workers),
		TasksScheduled: m.tasksScheduled.Load(),
		TasksCompleted: m.tasksCompleted.Load(),
		TasksStopped:   m.tasksStopped.Load(),
		TasksErrored:   m.tasksErrored.Load(),
	}
}
