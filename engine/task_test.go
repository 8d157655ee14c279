package engine

import (
	"errors"
	"testing"
)

// newTask is the shared test helper for building tasks.
func newTask(id string, seq uint64, reads, writes []string) *TransactionTask {
	return &TransactionTask{
		ID:       id,
		Sequence: seq,
		ReadSet:  reads,
		WriteSet: writes,
		Payload:  []byte(id),
	}
}

func TestTaskValidate(t *testing.T) {
	task := newTask("t1", 1, nil, []string{"a"})
	if err := task.Validate(); err != nil {
		t.Errorf("Expected valid task, got %v", err)
	}

	task.ID = ""
	if err := task.Validate(); err == nil {
		t.Error("Expected error for missing ID")
	}

	var nilTask *TransactionTask
	if err := nilTask.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("Expected ErrInvalidTask, got %v", err)
	}
}

func TestValidateBatch(t *testing.T) {
	valid := []*TransactionTask{
		newTask("t1", 1, nil, []string{"a"}),
		newTask("t2", 2, []string{"a"}, nil),
		newTask("t3", 3, nil, nil),
	}
	if err := ValidateBatch(valid); err != nil {
		t.Errorf("Expected valid batch, got %v", err)
	}
}

func TestValidateBatchEmpty(t *testing.T) {
	if err := ValidateBatch(nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("Expected ErrEmptyBatch, got %v", err)
	}
}

func TestValidateBatchDuplicateID(t *testing.T) {
	batch := []*TransactionTask{
		newTask("t1", 1, nil, nil),
		newTask("t1", 2, nil, nil),
	}
	if err := ValidateBatch(batch); !errors.Is(err, ErrDuplicateTaskID) {
		t.Errorf("Expected ErrDuplicateTaskID, got %v", err)
	}
}

func TestValidateBatchDuplicateSequence(t *testing.T) {
	batch := []*TransactionTask{
		newTask("t1", 7, nil, nil),
		newTask("t2", 7, nil, nil),
	}
	if err := ValidateBatch(batch); !errors.Is(err, ErrDuplicateSequence) {
		t.Errorf("Expected ErrDuplicateSequence, got %v", err)
	}
}

func TestValidateBatchOutOfOrder(t *testing.T) {
	batch := []*TransactionTask{
		newTask("t1", 2, nil, nil),
		newTask("t2", 1, nil, nil),
	}
	if err := ValidateBatch(batch); !errors.Is(err, ErrSequenceOrder) {
		t.Errorf("Expected ErrSequenceOrder, got %v", err)
	}
}

func TestValidateBatchSequenceGap(t *testing.T) {
	batch := []*TransactionTask{
		newTask("t1", 1, nil, nil),
		newTask("t2", 3, nil, nil),
	}
	if err := ValidateBatch(batch); !errors.Is(err, ErrSequenceGap) {
		t.Errorf("Expected ErrSequenceGap, got %v", err)
	}

	// Contiguity is relative to the batch, not to sequence 1.
	offset := []*TransactionTask{
		newTask("t1", 7, nil, nil),
		newTask("t2", 8, nil, nil),
		newTask("t3", 9, nil, nil),
	}
	if err := ValidateBatch(offset); err != nil {
		t.Errorf("Expected valid batch, got %v", err)
	}
}

func TestOutcomeString(t *testing.T) {
	cases := map[Outcome]string{
		OutcomeCommitted:          "committed",
		OutcomeLogicalFailure:     "logical_failure",
		OutcomeRuntimeConflict:    "runtime_conflict",
		OutcomeFootprintViolation: "footprint_violation",
		Outcome(99):               "unknown",
	}
	for outcome, want := range cases {
		if got := outcome.String(); got != want {
			t.Errorf("Outcome(%d).String(): expected %s, got %s", outcome, want, got)
		}
	}
}

func TestFootprintWriteWins(t *testing.T) {
	task := newTask("t1", 1, []string{"a", "b"}, []string{"b", "c"})
	fp := task.footprint()

	if len(fp) != 3 {
		t.Fatalf("Expected 3 keys, got %d", len(fp))
	}
	if fp["a"] {
		t.Error("Key a should be a read")
	}
	if !fp["b"] {
		t.Error("Key b appears in both sets and should count as a write")
	}
	if !fp["c"] {
		t.Error("Key c should be a write")
	}
}
