// Command executord runs Arrow IPC task batches through the parallel
// execution engine. Batches are read from files (one IPC stream per file),
// executed with a built-in echo executor, and the per-batch reports printed
// as JSON. With -metrics it also exposes Prometheus telemetry.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/VanDung-dev/HieraChain-Executor/api"
	"github.com/VanDung-dev/HieraChain-Executor/data"
	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

func main() {
	workers := flag.Int("w", 8, "Number of executor workers")
	deadline := flag.Duration("deadline", 0, "Per-batch deadline (0 = none)")
	metricsAddr := flag.String("metrics", "", "Metrics listen address (empty = disabled)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: executord [flags] batch.arrow [batch.arrow ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Echo executor: commits every task with its payload as the state delta.
	// A real deployment supplies the ledger's execution function here.
	execute := func(_ context.Context, payload []byte, _, _ []string) ([]byte, error) {
		return payload, nil
	}

	eng, err := engine.New(execute, engine.Config{
		Workers:       *workers,
		BatchDeadline: *deadline,
		Scheduler:     engine.DefaultSchedulerConfig(),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Shutdown()

	var metrics *api.Metrics
	if *metricsAddr != "" {
		metrics = api.NewMetrics("hierachain_executor")
		server := api.NewMetricsServer(*metricsAddr)
		server.StartAsync()
		defer server.Stop()
		log.Printf("Serving metrics on %s", *metricsAddr)
	}

	conv := data.NewConverter()
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	for _, path := range flag.Args() {
		if err := runBatch(eng, conv, metrics, encoder, path); err != nil {
			log.Fatalf("Batch %s: %v", path, err)
		}
	}
}

func runBatch(eng *engine.Engine, conv *data.Converter, metrics *api.Metrics, encoder *json.Encoder, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	tasks, err := conv.UnmarshalBatch(raw)
	if err != nil {
		return fmt.Errorf("failed to decode batch: %w", err)
	}

	start := time.Now()
	result, err := eng.ProcessBatch(context.Background(), "", tasks)
	if err != nil {
		if metrics != nil {
			metrics.RecordRejection()
		}
		return err
	}

	if metrics != nil {
		metrics.RecordReport(result.Report)
		for _, res := range result.Results {
			metrics.RecordResult(res)
		}
		metrics.UpdateWorkers(eng.Pool().GetStats().Active)
	}

	log.Printf("Batch %s: %d tasks, %d components in %v",
		result.Report.BatchID, result.Report.TaskCount,
		result.Report.ComponentCount, time.Since(start).Round(time.Millisecond))

	return encoder.Encode(result.Report)
}
