package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestIntakeAdd(t *testing.T) {
	in := NewIntake(10)

	if err := in.Add(newTask("t1", 1, nil, []string{"a"})); err != nil {
		t.Fatalf("Failed to add task: %v", err)
	}
	if in.Size() != 1 {
		t.Errorf("Expected size 1, got %d", in.Size())
	}
	if !in.Contains("t1") {
		t.Error("Expected intake to contain t1")
	}

	if err := in.Add(newTask("t1", 2, nil, nil)); !errors.Is(err, ErrTaskExists) {
		t.Errorf("Expected ErrTaskExists for duplicate ID, got %v", err)
	}
	if err := in.Add(newTask("t2", 1, nil, nil)); !errors.Is(err, ErrDuplicateSequence) {
		t.Errorf("Expected ErrDuplicateSequence, got %v", err)
	}
	if err := in.Add(&TransactionTask{Sequence: 3}); err == nil {
		t.Error("Expected validation error for task without ID")
	}
}

func TestIntakeFull(t *testing.T) {
	in := NewIntake(2)

	for i := 0; i < 2; i++ {
		if err := in.Add(newTask(fmt.Sprintf("t%d", i), uint64(i+1), nil, nil)); err != nil {
			t.Fatalf("Failed to add task %d: %v", i, err)
		}
	}
	if !in.IsFull() {
		t.Error("Expected intake to be full")
	}
	if err := in.Add(newTask("t2", 3, nil, nil)); !errors.Is(err, ErrIntakeFull) {
		t.Errorf("Expected ErrIntakeFull, got %v", err)
	}
}

func TestIntakeNextBatchOrder(t *testing.T) {
	in := NewIntake(100)

	// Insert out of arrival order; drain must be sequence order.
	sequences := []uint64{5, 1, 9, 3, 7}
	for _, seq := range sequences {
		if err := in.Add(newTask(fmt.Sprintf("t%d", seq), seq, nil, nil)); err != nil {
			t.Fatalf("Failed to add task: %v", err)
		}
	}

	batch := in.NextBatch(3)
	if len(batch) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(batch))
	}
	want := []uint64{1, 3, 5}
	for i, task := range batch {
		if task.Sequence != want[i] {
			t.Errorf("Position %d: expected sequence %d, got %d", i, want[i], task.Sequence)
		}
	}

	if in.Size() != 2 {
		t.Errorf("Expected 2 tasks remaining, got %d", in.Size())
	}
	if in.Contains("t1") {
		t.Error("Drained task should no longer be tracked")
	}

	rest := in.NextBatch(10)
	if len(rest) != 2 {
		t.Errorf("Expected 2 remaining tasks, got %d", len(rest))
	}
	if in.NextBatch(1) != nil {
		t.Error("Expected nil batch from empty intake")
	}
}

func TestIntakePeek(t *testing.T) {
	in := NewIntake(10)

	for i := 1; i <= 5; i++ {
		if err := in.Add(newTask(fmt.Sprintf("t%d", i), uint64(i), nil, nil)); err != nil {
			t.Fatalf("Failed to add task: %v", err)
		}
	}

	peeked := in.Peek(3)
	if len(peeked) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(peeked))
	}
	for i, task := range peeked {
		if task.Sequence != uint64(i+1) {
			t.Errorf("Position %d: expected sequence %d, got %d", i, i+1, task.Sequence)
		}
	}
	if in.Size() != 5 {
		t.Errorf("Peek must not remove tasks, size is %d", in.Size())
	}
}

func TestIntakeClear(t *testing.T) {
	in := NewIntake(10)

	for i := 1; i <= 3; i++ {
		if err := in.Add(newTask(fmt.Sprintf("t%d", i), uint64(i), nil, nil)); err != nil {
			t.Fatalf("Failed to add task: %v", err)
		}
	}

	in.Clear()
	if in.Size() != 0 {
		t.Errorf("Expected empty intake, got size %d", in.Size())
	}
	if in.Contains("t1") {
		t.Error("Cleared intake should not track any ID")
	}
	if err := in.Add(newTask("t1", 1, nil, nil)); err != nil {
		t.Errorf("Re-adding after clear failed: %v", err)
	}
}

func TestIntakeStats(t *testing.T) {
	in := NewIntake(10)

	for i := 1; i <= 4; i++ {
		if err := in.Add(newTask(fmt.Sprintf("t%d", i), uint64(i), nil, nil)); err != nil {
			t.Fatalf("Failed to add task: %v", err)
		}
	}

	stats := in.Stats()
	if stats.Size != 4 {
		t.Errorf("Expected size 4, got %d", stats.Size)
	}
	if stats.MaxSize != 10 {
		t.Errorf("Expected max size 10, got %d", stats.MaxSize)
	}
	if stats.Available != 6 {
		t.Errorf("Expected 6 available, got %d", stats.Available)
	}
}
