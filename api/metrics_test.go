package api

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

// promauto registers against the default registry, so each test that builds
// a Metrics must use its own namespace.

func TestMetricsRecordReport(t *testing.T) {
	m := NewMetrics("test_report")

	report := &engine.BatchReport{
		BatchID:        "batch-1",
		TaskCount:      10,
		ComponentCount: 4,
		SizeHistogram:  map[int]int{1: 2, 4: 2},
		TotalDuration:  50 * time.Millisecond,
		Throughput:     200,
		ConflictCount:  3,
		RetriedTasks:   1,
		PartialTimeout: true,
	}
	m.RecordReport(report)

	if got := testutil.ToFloat64(m.BatchesTotal); got != 1 {
		t.Errorf("Expected 1 batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.BatchesTimedOut); got != 1 {
		t.Errorf("Expected 1 timed-out batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.BatchThroughput); got != 200 {
		t.Errorf("Expected throughput 200, got %v", got)
	}
	if got := testutil.ToFloat64(m.ConflictsTotal); got != 3 {
		t.Errorf("Expected 3 conflicts, got %v", got)
	}
	if got := testutil.ToFloat64(m.RetriesTotal); got != 1 {
		t.Errorf("Expected 1 retry, got %v", got)
	}
}

func TestMetricsRecordResult(t *testing.T) {
	m := NewMetrics("test_result")

	m.RecordResult(&engine.ExecutionResult{
		TaskID:   "t1",
		Outcome:  engine.OutcomeCommitted,
		Duration: time.Millisecond,
	})
	m.RecordResult(&engine.ExecutionResult{
		TaskID:   "t2",
		Outcome:  engine.OutcomeLogicalFailure,
		Duration: time.Millisecond,
	})
	m.RecordResult(&engine.ExecutionResult{
		TaskID:   "t3",
		Outcome:  engine.OutcomeCommitted,
		Duration: time.Millisecond,
	})

	if got := testutil.ToFloat64(m.TasksTotal); got != 3 {
		t.Errorf("Expected 3 tasks, got %v", got)
	}
	if got := testutil.ToFloat64(m.TaskOutcomes.WithLabelValues("committed")); got != 2 {
		t.Errorf("Expected 2 committed, got %v", got)
	}
	if got := testutil.ToFloat64(m.TaskOutcomes.WithLabelValues("logical_failure")); got != 1 {
		t.Errorf("Expected 1 logical failure, got %v", got)
	}
}

func TestMetricsGauges(t *testing.T) {
	m := NewMetrics("test_gauges")

	m.RecordRejection()
	if got := testutil.ToFloat64(m.BatchesRejected); got != 1 {
		t.Errorf("Expected 1 rejection, got %v", got)
	}

	m.UpdateIntake(4200, 256)
	if got := testutil.ToFloat64(m.IntakeDepth); got != 4200 {
		t.Errorf("Expected intake depth 4200, got %v", got)
	}
	if got := testutil.ToFloat64(m.BatchSizeTarget); got != 256 {
		t.Errorf("Expected target 256, got %v", got)
	}

	m.UpdateWorkers(7)
	if got := testutil.ToFloat64(m.WorkersActive); got != 7 {
		t.Errorf("Expected 7 active workers, got %v", got)
	}
}
