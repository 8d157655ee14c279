package engine

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for batch validation. A batch that trips any of these is
// rejected before scheduling and nothing in it executes.
var (
	ErrEmptyBatch        = errors.New("batch contains no tasks")
	ErrInvalidTask       = errors.New("invalid task")
	ErrDuplicateTaskID   = errors.New("duplicate task ID in batch")
	ErrDuplicateSequence = errors.New("duplicate sequence in batch")
	ErrSequenceOrder     = errors.New("batch is not ordered by sequence")
	ErrSequenceGap       = errors.New("non-contiguous sequence in batch")
)

// Errors reported by the execution function supplied by the ledger
// collaborator. Any other non-nil error is treated as a logical failure.
var (
	// ErrRuntimeConflict signals that the execution function touched a key
	// outside the task's declared footprint.
	ErrRuntimeConflict = errors.New("runtime conflict: undeclared key touched")

	// ErrFootprintViolation is the terminal error for a task whose solo
	// re-execution reported a runtime conflict again.
	ErrFootprintViolation = errors.New("declared footprint is invalid")
)

// TransactionTask is the unit of work: a transaction plus its declared
// read/write footprint. Sequence is assigned by the upstream ordering
// collaborator and is the only order that matters for determinism.
type TransactionTask struct {
	ID       string   `json:"id"`
	Sequence uint64   `json:"sequence"`
	ReadSet  []string `json:"read_set,omitempty"`
	WriteSet []string `json:"write_set,omitempty"`
	Payload  []byte   `json:"payload,omitempty"`
}

// Validate checks that the task has the required fields.
func (t *TransactionTask) Validate() error {
	if t == nil {
		return ErrInvalidTask
	}
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	return nil
}

// footprint merges the read and write sets into a single key -> isWrite map.
// A key present in both sets counts as a write.
func (t *TransactionTask) footprint() map[string]bool {
	fp := make(map[string]bool, len(t.ReadSet)+len(t.WriteSet))
	for _, k := range t.ReadSet {
		fp[k] = false
	}
	for _, k := range t.WriteSet {
		fp[k] = true
	}
	return fp
}

// ValidateBatch checks a batch for duplicate IDs and for contiguous,
// strictly increasing sequence values. The engine trusts the input order and
// never reorders tasks, so the batch must arrive exactly as the ordering
// collaborator emitted it.
func ValidateBatch(tasks []*TransactionTask) error {
	if len(tasks) == 0 {
		return ErrEmptyBatch
	}

	ids := make(map[string]struct{}, len(tasks))
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		if _, exists := ids[task.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateTaskID, task.ID)
		}
		ids[task.ID] = struct{}{}

		if i == 0 {
			continue
		}
		if task.Sequence == tasks[i-1].Sequence {
			return fmt.Errorf("%w: %d", ErrDuplicateSequence, task.Sequence)
		}
		if task.Sequence < tasks[i-1].Sequence {
			return fmt.Errorf("%w: %d after %d", ErrSequenceOrder, task.Sequence, tasks[i-1].Sequence)
		}
		if task.Sequence != tasks[i-1].Sequence+1 {
			return fmt.Errorf("%w: %d after %d", ErrSequenceGap, task.Sequence, tasks[i-1].Sequence)
		}
	}

	return nil
}

// Outcome is the terminal state of a task's execution.
type Outcome int

const (
	OutcomeCommitted Outcome = iota
	OutcomeLogicalFailure
	OutcomeRuntimeConflict
	OutcomeFootprintViolation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeLogicalFailure:
		return "logical_failure"
	case OutcomeRuntimeConflict:
		return "runtime_conflict"
	case OutcomeFootprintViolation:
		return "footprint_violation"
	default:
		return "unknown"
	}
}

// ExecutionResult is produced once per task. StateDelta is opaque to the
// engine; it is only set when the outcome is committed.
type ExecutionResult struct {
	TaskID     string        `json:"task_id"`
	Sequence   uint64        `json:"sequence"`
	Outcome    Outcome       `json:"outcome"`
	StateDelta []byte        `json:"state_delta,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
	WorkerID   int           `json:"worker_id"`
	Retried    bool          `json:"retried,omitempty"`

	// task keeps the originating task so a runtime-conflict retry can run
	// with the same payload and footprint.
	task *TransactionTask
}

// BatchReport is the per-batch telemetry emitted to the monitoring
// collaborator. No control flow depends on it.
type BatchReport struct {
	BatchID          string        `json:"batch_id"`
	TaskCount        int           `json:"task_count"`
	ComponentCount   int           `json:"component_count"`
	SizeHistogram    map[int]int   `json:"component_size_histogram"`
	TotalDuration    time.Duration `json:"total_duration"`
	Throughput       float64       `json:"throughput_tps"`
	ConflictCount    int           `json:"conflict_count"`
	LogicalFailures  int           `json:"logical_failures"`
	RuntimeConflicts int           `json:"runtime_conflicts"`
	RetriedTasks     int           `json:"retried_tasks"`
	PartialTimeout   bool          `json:"partial_timeout,omitempty"`
}
