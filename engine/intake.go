package engine

import (
	"errors"
	"sync"

	"github.com/tidwall/btree"
)

// Common errors for intake operations
var (
	ErrIntakeFull = errors.New("intake buffer is full")
	ErrTaskExists = errors.New("task already buffered")
)

// Intake buffers consensus-ordered tasks ahead of batching. It is the
// upstream collaborator of the scheduler's adaptive loop: NextBatch drains
// tasks in sequence order, sized by the scheduler's current target, and the
// buffer depth feeds back into the next target.
type Intake struct {
	pending *btree.BTreeG[*TransactionTask]
	ids     map[string]struct{}
	maxSize int
	mu      sync.RWMutex
}

// NewIntake creates an intake buffer with the specified maximum size.
func NewIntake(maxSize int) *Intake {
	return &Intake{
		pending: btree.NewBTreeG(func(a, b *TransactionTask) bool {
			return a.Sequence < b.Sequence
		}),
		ids:     make(map[string]struct{}),
		maxSize: maxSize,
	}
}

// Add buffers a task. Returns an error if the buffer is full or the task is
// already present.
func (in *Intake) Add(task *TransactionTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if _, exists := in.ids[task.ID]; exists {
		return ErrTaskExists
	}
	if in.pending.Len() >= in.maxSize {
		return ErrIntakeFull
	}
	if _, dup := in.pending.Get(task); dup {
		return ErrDuplicateSequence
	}

	in.pending.Set(task)
	in.ids[task.ID] = struct{}{}

	return nil
}

// NextBatch removes and returns up to n tasks in sequence order. A target
// from Scheduler.TargetBatchSize is the intended n.
func (in *Intake) NextBatch(n int) []*TransactionTask {
	in.mu.Lock()
	defer in.mu.Unlock()

	if n <= 0 || in.pending.Len() == 0 {
		return nil
	}
	if n > in.pending.Len() {
		n = in.pending.Len()
	}

	batch := make([]*TransactionTask, 0, n)
	for i := 0; i < n; i++ {
		task, ok := in.pending.PopMin()
		if !ok {
			break
		}
		delete(in.ids, task.ID)
		batch = append(batch, task)
	}

	return batch
}

// Peek returns up to n tasks in sequence order without removing them.
func (in *Intake) Peek(n int) []*TransactionTask {
	in.mu.RLock()
	defer in.mu.RUnlock()

	if n <= 0 {
		return nil
	}

	batch := make([]*TransactionTask, 0, n)
	in.pending.Scan(func(task *TransactionTask) bool {
		batch = append(batch, task)
		return len(batch) < n
	})

	return batch
}

// Contains checks whether a task is buffered.
func (in *Intake) Contains(taskID string) bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	_, exists := in.ids[taskID]
	return exists
}

// Size returns the current queue depth.
func (in *Intake) Size() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.pending.Len()
}

// IsFull returns true if the buffer has reached its maximum size.
func (in *Intake) IsFull() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.pending.Len() >= in.maxSize
}

// Clear drops all buffered tasks.
func (in *Intake) Clear() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.pending.Clear()
	in.ids = make(map[string]struct{})
}

// IntakeStats contains intake buffer statistics.
type IntakeStats struct {
	Size      int `json:"size"`
	MaxSize   int `json:"max_size"`
	Available int `json:"available"`
}

func (in *Intake) Stats() IntakeStats {
	in.mu.RLock()
	defer in.mu.RUnlock()

	return IntakeStats{
		Size:      in.pending.Len(),
		MaxSize:   in.maxSize,
		Available: in.maxSize - in.pending.Len(),
	}
}
