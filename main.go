package main

import (
	"fmt"
	"os"

	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "HieraChain-Executor"
)

func main() {
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Parallel transaction execution engine for HieraChain blockchain")
	fmt.Println()

	config := engine.DefaultConfig()
	fmt.Println("Default configuration:")
	fmt.Printf("  workers:          %d\n", config.Workers)
	fmt.Printf("  batch size:       %d-%d (target starts at minimum)\n",
		config.Scheduler.MinBatchSize, config.Scheduler.MaxBatchSize)
	fmt.Printf("  queue watermarks: low %d, high %d\n",
		config.Scheduler.LowWaterMark, config.Scheduler.HighWaterMark)
	fmt.Println()
	fmt.Println("Run cmd/executord to execute Arrow IPC batches.")
	os.Exit(0)
}
