// Package data provides the Apache Arrow interchange layer for transaction
// batches crossing the ordering/consensus boundary.
// This package implements:
// - Arrow schema for task batches (id, sequence, footprint, payload)
// - Converter between Arrow records and engine tasks
// - Arrow IPC encoding for zero-copy batch transfer
package data
