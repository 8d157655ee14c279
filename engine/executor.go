package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ExecuteFunc is the execution capability supplied by the ledger/state-store
// collaborator, resolved once at pool construction. It is invoked once per
// task, in sequence order within a component. A nil error commits the
// returned state delta; ErrRuntimeConflict (wrapped or bare) reports an
// undeclared-key collision; any other error is a logical failure of the
// transaction itself.
type ExecuteFunc func(ctx context.Context, payload []byte, readSet, writeSet []string) ([]byte, error)

// PoolStats contains executor pool statistics.
type PoolStats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Active    int64  `json:"active"`
	Committed int64  `json:"committed"`
	Failed    int64  `json:"failed"`
}

// slotJob is one executor slot's share of a batch: an ordered list of
// conflict components, executed by a single worker.
type slotJob struct {
	components []*ConflictComponent
	results    []*ExecutionResult
	ctx        context.Context
	timedOut   *atomic.Bool
	wg         *sync.WaitGroup
}

// ExecutorPool runs the components of a batch on a fixed set of worker
// goroutines. Execution within a component is strictly sequential in
// sequence order; different components run concurrently, bounded by the
// number of workers. A batch is complete only when every dispatched
// component's every member has produced a result.
type ExecutorPool struct {
	name    string
	workers int
	execute ExecuteFunc
	jobChan chan *slotJob
	wg      sync.WaitGroup

	// Atomic counters for thread-safe statistics
	active    int64
	committed int64
	failed    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// NewExecutorPool creates a pool with the given number of workers and the
// execution function to apply to every task.
func NewExecutorPool(name string, workers int, execute ExecuteFunc) *ExecutorPool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &ExecutorPool{
		name:    name,
		workers: workers,
		execute: execute,
		jobChan: make(chan *slotJob, workers),
		ctx:     ctx,
		cancel:  cancel,
		running: true,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// worker is the goroutine that processes slot jobs.
func (p *ExecutorPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobChan:
			if !ok {
				return
			}
			p.processSlot(id, job)
		}
	}
}

// processSlot runs one slot's components in order. The batch deadline is
// checked between components only: an in-flight component always finishes,
// since aborting mid-component would leave its keys partially applied.
func (p *ExecutorPool) processSlot(workerID int, job *slotJob) {
	defer job.wg.Done()

	for _, comp := range job.components {
		if job.ctx.Err() != nil {
			job.timedOut.Store(true)
			return
		}
		job.results = append(job.results, p.executeComponent(workerID, job.ctx, comp)...)
	}
}

// executeComponent runs a component's members strictly in sequence order and
// returns one result per member. A logical failure does not stop
// same-component successors.
func (p *ExecutorPool) executeComponent(workerID int, ctx context.Context, comp *ConflictComponent) []*ExecutionResult {
	results := make([]*ExecutionResult, 0, len(comp.Members))
	for _, task := range comp.Members {
		results = append(results, p.executeTask(workerID, ctx, task))
	}
	return results
}

// executeTask invokes the execution function for a single task and
// classifies the outcome. A task counts as scheduled once its component is
// assigned a slot, as executing while the execution function runs (tracked
// by the active counter), and is terminal once its result exists.
func (p *ExecutorPool) executeTask(workerID int, ctx context.Context, task *TransactionTask) (result *ExecutionResult) {
	atomic.AddInt64(&p.active, 1)
	defer atomic.AddInt64(&p.active, -1)

	start := time.Now()

	result = &ExecutionResult{
		TaskID:   task.ID,
		Sequence: task.Sequence,
		WorkerID: workerID,
		task:     task,
	}

	// Panic recovery so one transaction cannot take down the pool.
	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeLogicalFailure
			result.Err = errors.New("panic in execution function: " + panicToString(r))
			result.Duration = time.Since(start)
			atomic.AddInt64(&p.failed, 1)
		}
	}()

	delta, err := p.execute(ctx, task.Payload, task.ReadSet, task.WriteSet)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Outcome = OutcomeCommitted
		result.StateDelta = delta
		atomic.AddInt64(&p.committed, 1)
	case errors.Is(err, ErrRuntimeConflict):
		// The declared footprint was incomplete; the delta cannot be
		// trusted and is dropped.
		result.Outcome = OutcomeRuntimeConflict
		result.Err = err
		atomic.AddInt64(&p.failed, 1)
	default:
		result.Outcome = OutcomeLogicalFailure
		result.Err = err
		atomic.AddInt64(&p.failed, 1)
	}

	return result
}

// panicToString converts a recovered panic value to a string.
func panicToString(r interface{}) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return "unknown panic"
	}
}

// ExecuteBatch runs a batch's slot assignment to completion and returns all
// results in sequence order. This is the batch barrier: nothing is returned
// until every dispatched component has finished. The second return value
// reports whether the deadline on ctx cut off undispatched components; tasks
// of such components produce no result.
func (p *ExecutorPool) ExecuteBatch(ctx context.Context, assignment [][]*ConflictComponent) ([]*ExecutionResult, bool, error) {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()
	if !running {
		return nil, false, errors.New("executor pool is shut down")
	}

	if len(assignment) == 0 {
		return nil, false, nil
	}

	var (
		wg       sync.WaitGroup
		timedOut atomic.Bool
	)

	jobs := make([]*slotJob, 0, len(assignment))
	for _, comps := range assignment {
		if len(comps) == 0 {
			continue
		}
		job := &slotJob{
			components: comps,
			ctx:        ctx,
			timedOut:   &timedOut,
			wg:         &wg,
		}
		wg.Add(1)
		jobs = append(jobs, job)
		p.jobChan <- job
	}

	// Barrier: all dispatched components must complete before any result
	// becomes visible downstream.
	wg.Wait()

	var results []*ExecutionResult
	for _, job := range jobs {
		results = append(results, job.results...)
	}
	sort.Slice(results, func(a, b int) bool {
		return results[a].Sequence < results[b].Sequence
	})

	return results, timedOut.Load(), nil
}

// GetStats returns current pool statistics.
func (p *ExecutorPool) GetStats() PoolStats {
	return PoolStats{
		Name:      p.name,
		Workers:   p.workers,
		Active:    atomic.LoadInt64(&p.active),
		Committed: atomic.LoadInt64(&p.committed),
		Failed:    atomic.LoadInt64(&p.failed),
	}
}

// IsRunning returns true if the pool is still accepting batches.
func (p *ExecutorPool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Shutdown stops the workers. In-flight slot jobs are abandoned at the next
// component boundary; callers should let ExecuteBatch return first.
func (p *ExecutorPool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	close(p.jobChan)
	p.wg.Wait()
}
