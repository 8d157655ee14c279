package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

// StressTestConfig holds configuration for the stress test.
type StressTestConfig struct {
	Workers       int
	BatchCount    int
	BatchSize     int
	KeySpace      int
	ConflictRatio float64
	WorkPerTask   time.Duration
	Seed          int64
	ReportFile    string
}

// StressTestResult holds the results of a stress test.
type StressTestResult struct {
	TotalBatches    int
	TotalTasks      int
	Committed       int
	Failed          int
	Retried         int
	TotalComponents int
	TotalConflicts  int
	TotalDuration   time.Duration
	AvgBatchLatency time.Duration
	MinBatchLatency time.Duration
	MaxBatchLatency time.Duration
	TasksPerSec     float64
}

func main() {
	config := parseFlags()

	fmt.Println("=== HieraChain Executor Stress Test ===")
	fmt.Printf("Workers: %d\n", config.Workers)
	fmt.Printf("Batches: %d x %d tasks\n", config.BatchCount, config.BatchSize)
	fmt.Printf("Key space: %d, conflict ratio: %.2f\n", config.KeySpace, config.ConflictRatio)
	fmt.Printf("Work per task: %v\n", config.WorkPerTask)
	fmt.Println()

	result := runStressTest(config)

	printResults(result)

	if config.ReportFile != "" {
		saveReport(config, result)
	}
}

func parseFlags() StressTestConfig {
	config := StressTestConfig{}

	flag.IntVar(&config.Workers, "w", 8, "Number of executor workers")
	flag.IntVar(&config.BatchCount, "n", 100, "Number of batches to process")
	flag.IntVar(&config.BatchSize, "b", 500, "Tasks per batch")
	flag.IntVar(&config.KeySpace, "k", 10000, "Number of distinct state keys")
	flag.Float64Var(&config.ConflictRatio, "conflict", 0.1, "Fraction of tasks writing a shared hot key")
	flag.DurationVar(&config.WorkPerTask, "work", 50*time.Microsecond, "Simulated execution time per task")
	flag.Int64Var(&config.Seed, "seed", 1, "Random seed for batch generation")
	flag.StringVar(&config.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()

	return config
}

func runStressTest(config StressTestConfig) StressTestResult {
	execute := func(_ context.Context, payload []byte, _, _ []string) ([]byte, error) {
		if config.WorkPerTask > 0 {
			busyWait(config.WorkPerTask)
		}
		return payload, nil
	}

	eng, err := engine.New(execute, engine.Config{
		Workers:   config.Workers,
		Scheduler: engine.DefaultSchedulerConfig(),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Shutdown()

	intake := engine.NewIntake(config.BatchCount * config.BatchSize)
	eng.AttachIntake(intake)

	rng := rand.New(rand.NewSource(config.Seed))
	var nextSeq uint64 = 1

	result := StressTestResult{MinBatchLatency: time.Duration(1<<63 - 1)}
	startTime := time.Now()

	for i := 0; i < config.BatchCount; i++ {
		for j := 0; j < config.BatchSize; j++ {
			if err := intake.Add(generateTask(rng, nextSeq, config)); err != nil {
				log.Fatalf("Failed to buffer task: %v", err)
			}
			nextSeq++
		}

		batch := intake.NextBatch(config.BatchSize)
		batchResult, err := eng.ProcessBatch(context.Background(), fmt.Sprintf("stress-%d", i), batch)
		if err != nil {
			log.Fatalf("Batch %d failed: %v", i, err)
		}

		report := batchResult.Report
		result.TotalBatches++
		result.TotalTasks += report.TaskCount
		result.TotalComponents += report.ComponentCount
		result.TotalConflicts += report.ConflictCount
		result.Failed += report.LogicalFailures + report.RuntimeConflicts
		result.Retried += report.RetriedTasks

		for _, res := range batchResult.Results {
			if res.Outcome == engine.OutcomeCommitted {
				result.Committed++
			}
		}

		if report.TotalDuration < result.MinBatchLatency {
			result.MinBatchLatency = report.TotalDuration
		}
		if report.TotalDuration > result.MaxBatchLatency {
			result.MaxBatchLatency = report.TotalDuration
		}
	}

	result.TotalDuration = time.Since(startTime)
	if result.TotalBatches > 0 {
		result.AvgBatchLatency = result.TotalDuration / time.Duration(result.TotalBatches)
	}
	result.TasksPerSec = float64(result.TotalTasks) / result.TotalDuration.Seconds()

	return result
}

// generateTask builds one synthetic task. A conflict-ratio fraction of tasks
// write one of a handful of hot keys so they collapse into large components;
// the rest write a random key from the full key space.
func generateTask(rng *rand.Rand, seq uint64, config StressTestConfig) *engine.TransactionTask {
	var writeKey string
	if rng.Float64() < config.ConflictRatio {
		writeKey = fmt.Sprintf("hot-%d", rng.Intn(8))
	} else {
		writeKey = fmt.Sprintf("key-%d", rng.Intn(config.KeySpace))
	}

	return &engine.TransactionTask{
		ID:       fmt.Sprintf("tx-%d", seq),
		Sequence: seq,
		ReadSet:  []string{fmt.Sprintf("key-%d", rng.Intn(config.KeySpace))},
		WriteSet: []string{writeKey},
		Payload:  []byte(fmt.Sprintf("payload-%d", seq)),
	}
}

// busyWait simulates CPU-bound execution. Sleeping would let the scheduler
// overlap far more tasks than a real ledger update does.
func busyWait(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

func printResults(result StressTestResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:         %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Batches:          %d\n", result.TotalBatches)
	fmt.Printf("Tasks:            %d\n", result.TotalTasks)
	fmt.Printf("Committed:        %d (%.2f%%)\n", result.Committed, float64(result.Committed)/float64(result.TotalTasks)*100)
	fmt.Printf("Failed:           %d\n", result.Failed)
	fmt.Printf("Retried:          %d\n", result.Retried)
	fmt.Printf("Components:       %d (avg %.1f per batch)\n", result.TotalComponents, float64(result.TotalComponents)/float64(result.TotalBatches))
	fmt.Printf("Key conflicts:    %d\n", result.TotalConflicts)
	fmt.Printf("Tasks/sec:        %.2f\n", result.TasksPerSec)
	fmt.Printf("Avg Batch:        %v\n", result.AvgBatchLatency.Round(time.Microsecond))
	fmt.Printf("Min Batch:        %v\n", result.MinBatchLatency.Round(time.Microsecond))
	fmt.Printf("Max Batch:        %v\n", result.MaxBatchLatency.Round(time.Microsecond))
}

func saveReport(config StressTestConfig, result StressTestResult) {
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"workers":        config.Workers,
			"batch_count":    config.BatchCount,
			"batch_size":     config.BatchSize,
			"key_space":      config.KeySpace,
			"conflict_ratio": config.ConflictRatio,
			"seed":           config.Seed,
		},
		"results": map[string]interface{}{
			"batches":          result.TotalBatches,
			"tasks":            result.TotalTasks,
			"committed":        result.Committed,
			"failed":           result.Failed,
			"retried":          result.Retried,
			"components":       result.TotalComponents,
			"key_conflicts":    result.TotalConflicts,
			"tasks_per_sec":    result.TasksPerSec,
			"avg_batch_ms":     float64(result.AvgBatchLatency.Microseconds()) / 1000,
			"min_batch_ms":     float64(result.MinBatchLatency.Microseconds()) / 1000,
			"max_batch_ms":     float64(result.MaxBatchLatency.Microseconds()) / 1000,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	if err := os.WriteFile(config.ReportFile, data, 0644); err != nil {
		log.Printf("Failed to write report: %v", err)
	} else {
		fmt.Printf("Report saved to: %s\n", config.ReportFile)
	}
}
