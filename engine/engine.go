// Package engine implements the parallel transaction execution engine: it
// takes a consensus-ordered batch of transactions with declared read/write
// footprints, partitions it into independent conflict components, and
// executes the components concurrently while guaranteeing the resulting
// state is identical to sequential execution in sequence order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedBatch wraps any validation failure that rejects a batch before
// scheduling. Check with errors.Is.
var ErrMalformedBatch = errors.New("malformed batch")

// Config holds engine configuration.
type Config struct {
	// Workers is the concurrency ceiling C: the number of executor
	// workers and scheduler slots.
	Workers int

	// BatchDeadline bounds one batch's execution. In-flight components
	// finish; undispatched ones are dropped and the report flags a
	// partial timeout. Zero disables the deadline.
	BatchDeadline time.Duration

	Scheduler SchedulerConfig
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:   8,
		Scheduler: DefaultSchedulerConfig(),
	}
}

// BatchResult bundles everything a batch produces: one result per executed
// task, sequence-ascending, plus the telemetry report.
type BatchResult struct {
	Results []*ExecutionResult
	Report  *BatchReport
}

// Engine wires the footprint index, conflict grouper, scheduler and executor
// pool into the batch pipeline. The execution function is resolved once at
// construction.
type Engine struct {
	config    Config
	scheduler *Scheduler
	pool      *ExecutorPool
	intake    *Intake
}

// New creates an engine around the given execution function.
func New(execute ExecuteFunc, config Config) (*Engine, error) {
	if execute == nil {
		return nil, errors.New("execution function is required")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	config.Scheduler.Slots = config.Workers

	return &Engine{
		config:    config,
		scheduler: NewScheduler(config.Scheduler),
		pool:      NewExecutorPool("executor", config.Workers, execute),
	}, nil
}

// AttachIntake connects an upstream intake buffer. When attached, the engine
// feeds the intake's queue depth to the scheduler after every batch, closing
// the adaptive batch-sizing loop.
func (e *Engine) AttachIntake(in *Intake) {
	e.intake = in
}

// Scheduler returns the engine's scheduler, whose batch-size target upstream
// batching logic reads.
func (e *Engine) Scheduler() *Scheduler {
	return e.scheduler
}

// Pool returns the executor pool for stats access.
func (e *Engine) Pool() *ExecutorPool {
	return e.pool
}

// Shutdown stops the executor pool. The engine must not be used afterwards.
func (e *Engine) Shutdown() {
	e.pool.Shutdown()
}

// ProcessBatch validates, groups, schedules and executes one batch. The
// returned results cover every executed task in sequence order; the report
// carries the batch telemetry. A malformed batch is rejected synchronously
// with ErrMalformedBatch and nothing executes.
//
// Tasks that report a runtime conflict are re-executed exactly once, each as
// a solo component, after the batch's other components complete. A second
// runtime conflict is terminal: the task's declared footprint is invalid.
func (e *Engine) ProcessBatch(ctx context.Context, batchID string, tasks []*TransactionTask) (*BatchResult, error) {
	if err := ValidateBatch(tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}

	start := time.Now()

	idx := BuildFootprintIndex(tasks)
	components, conflicts := GroupConflicts(tasks, idx)
	assignment := e.scheduler.Assign(components)

	if e.config.BatchDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.BatchDeadline)
		defer cancel()
	}

	results, timedOut, err := e.pool.ExecuteBatch(ctx, assignment)
	if err != nil {
		return nil, err
	}

	retried := e.retryRuntimeConflicts(ctx, results)

	totalDuration := time.Since(start)
	report := e.buildReport(batchID, len(tasks), components, conflicts, results, totalDuration, timedOut, retried)

	if e.intake != nil {
		e.scheduler.ObserveQueueDepth(e.intake.Size())
	}

	return &BatchResult{Results: results, Report: report}, nil
}

// retryRuntimeConflicts re-executes each runtime-conflicted task in a solo
// follow-up component and replaces its result in place. Returns the number
// of retried tasks. A retry that conflicts again keeps the runtime-conflict
// outcome escalated to a footprint violation.
func (e *Engine) retryRuntimeConflicts(ctx context.Context, results []*ExecutionResult) int {
	retried := 0

	for i, res := range results {
		if res.Outcome != OutcomeRuntimeConflict {
			continue
		}
		retried++

		// The solo retry runs with the original payload and footprint.
		task := res.task

		solo := [][]*ConflictComponent{{{
			Members: []*TransactionTask{task},
			KeySet:  make(map[string]struct{}),
		}}}

		soloResults, _, err := e.pool.ExecuteBatch(ctx, solo)
		if err != nil || len(soloResults) == 0 {
			continue
		}

		retry := soloResults[0]
		retry.Retried = true
		if retry.Outcome == OutcomeRuntimeConflict {
			retry.Outcome = OutcomeFootprintViolation
			retry.Err = fmt.Errorf("%w: %s", ErrFootprintViolation, task.ID)
			retry.StateDelta = nil
		}
		results[i] = retry
	}

	return retried
}

// buildReport assembles the per-batch telemetry.
func (e *Engine) buildReport(batchID string, taskCount int, components []*ConflictComponent, conflicts int, results []*ExecutionResult, total time.Duration, timedOut bool, retried int) *BatchReport {
	histogram := make(map[int]int, len(components))
	for _, comp := range components {
		histogram[comp.Size()]++
	}

	report := &BatchReport{
		BatchID:        batchID,
		TaskCount:      taskCount,
		ComponentCount: len(components),
		SizeHistogram:  histogram,
		TotalDuration:  total,
		ConflictCount:  conflicts,
		RetriedTasks:   retried,
		PartialTimeout: timedOut,
	}

	for _, res := range results {
		switch res.Outcome {
		case OutcomeLogicalFailure:
			report.LogicalFailures++
		case OutcomeRuntimeConflict, OutcomeFootprintViolation:
			report.RuntimeConflicts++
		}
	}

	if seconds := total.Seconds(); seconds > 0 {
		report.Throughput = float64(len(results)) / seconds
	}

	return report
}
