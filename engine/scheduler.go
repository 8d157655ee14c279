package engine

import (
	"sort"
	"sync/atomic"
)

// SchedulerConfig holds tuning parameters for slot assignment and adaptive
// batch sizing.
type SchedulerConfig struct {
	// Slots is the concurrency ceiling: the number of executor slots
	// components are spread across.
	Slots int

	// MinBatchSize and MaxBatchSize bound the adaptive batch-size target.
	MinBatchSize int
	MaxBatchSize int

	// HighWaterMark is the upstream queue depth above which the target
	// grows; LowWaterMark the depth below which it shrinks.
	HighWaterMark int
	LowWaterMark  int
}

// DefaultSchedulerConfig returns defaults tuned for a mid-size node.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Slots:         8,
		MinBatchSize:  64,
		MaxBatchSize:  4096,
		HighWaterMark: 5000,
		LowWaterMark:  100,
	}
}

// normalize fills in unset or nonsensical values.
func (c SchedulerConfig) normalize() SchedulerConfig {
	if c.Slots <= 0 {
		c.Slots = 1
	}
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = 1
	}
	if c.MaxBatchSize < c.MinBatchSize {
		c.MaxBatchSize = c.MinBatchSize
	}
	if c.LowWaterMark < 0 {
		c.LowWaterMark = 0
	}
	if c.HighWaterMark < c.LowWaterMark {
		c.HighWaterMark = c.LowWaterMark
	}
	return c
}

// Scheduler assigns conflict components to executor slots and maintains the
// process-wide adaptive batch-size target. The target is the only mutable
// state that survives a batch: written by ObserveQueueDepth after each batch,
// read by the intake via TargetBatchSize.
type Scheduler struct {
	config SchedulerConfig

	// Adaptive batch-size target. Atomic: single writer, many readers.
	target int64
}

// NewScheduler creates a scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) *Scheduler {
	config = config.normalize()
	s := &Scheduler{config: config}
	atomic.StoreInt64(&s.target, int64(config.MinBatchSize))
	return s
}

// Slots returns the concurrency ceiling.
func (s *Scheduler) Slots() int {
	return s.config.Slots
}

// Assign spreads components across at most Slots executor slots using
// longest-processing-time-first: components sorted descending by size, each
// placed on the currently least-loaded slot. This keeps one huge component
// from serializing the batch while small ones finish early and slots idle.
//
// The input slice is not modified; component membership never changes here.
func (s *Scheduler) Assign(components []*ConflictComponent) [][]*ConflictComponent {
	if len(components) == 0 {
		return nil
	}

	slots := s.config.Slots
	if len(components) < slots {
		slots = len(components)
	}

	ordered := make([]*ConflictComponent, len(components))
	copy(ordered, components)
	sort.SliceStable(ordered, func(a, b int) bool {
		return ordered[a].Size() > ordered[b].Size()
	})

	assignment := make([][]*ConflictComponent, slots)
	load := make([]int, slots)

	for _, comp := range ordered {
		best := 0
		for i := 1; i < slots; i++ {
			if load[i] < load[best] {
				best = i
			}
		}
		assignment[best] = append(assignment[best], comp)
		load[best] += comp.Size()
	}

	return assignment
}

// TargetBatchSize returns the current adaptive batch-size target. Safe to
// call from any goroutine.
func (s *Scheduler) TargetBatchSize() int {
	return int(atomic.LoadInt64(&s.target))
}

// ObserveQueueDepth updates the batch-size target from the depth of the
// upstream intake queue. Called exactly once per batch, by the engine, after
// the batch barrier. Adjustments are proportional to the current target so it
// converges within a few batches instead of oscillating.
func (s *Scheduler) ObserveQueueDepth(depth int) {
	target := atomic.LoadInt64(&s.target)

	switch {
	case depth > s.config.HighWaterMark:
		grow := target / 2
		if grow < 1 {
			grow = 1
		}
		target += grow
		if ceil := int64(s.config.MaxBatchSize); target > ceil {
			target = ceil
		}
	case depth < s.config.LowWaterMark:
		target -= target / 4
		if floor := int64(s.config.MinBatchSize); target < floor {
			target = floor
		}
	default:
		return
	}

	atomic.StoreInt64(&s.target, target)
}
