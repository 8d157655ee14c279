package data

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/VanDung-dev/HieraChain-Executor/engine"
)

// Converter translates between Arrow task-batch records and engine tasks.
type Converter struct {
	allocator memory.Allocator
	schema    *arrow.Schema
}

// NewConverter creates a Converter with the default memory allocator and the
// task-batch schema.
func NewConverter() *Converter {
	return &Converter{
		allocator: memory.DefaultAllocator,
		schema:    TaskBatchSchema(),
	}
}

// TasksToRecord converts a batch of tasks to an Arrow record. The caller
// owns the record and must Release it.
func (c *Converter) TasksToRecord(tasks []*engine.TransactionTask) (arrow.Record, error) {
	if len(tasks) == 0 {
		return nil, errors.New("empty task batch")
	}

	builder := array.NewRecordBuilder(c.allocator, c.schema)
	defer builder.Release()

	idBuilder := builder.Field(0).(*array.StringBuilder)
	seqBuilder := builder.Field(1).(*array.Uint64Builder)
	readBuilder := builder.Field(2).(*array.ListBuilder)
	writeBuilder := builder.Field(3).(*array.ListBuilder)
	payloadBuilder := builder.Field(4).(*array.BinaryBuilder)

	readValues := readBuilder.ValueBuilder().(*array.StringBuilder)
	writeValues := writeBuilder.ValueBuilder().(*array.StringBuilder)

	for _, task := range tasks {
		idBuilder.Append(task.ID)
		seqBuilder.Append(task.Sequence)

		appendKeys(readBuilder, readValues, task.ReadSet)
		appendKeys(writeBuilder, writeValues, task.WriteSet)

		if task.Payload != nil {
			payloadBuilder.Append(task.Payload)
		} else {
			payloadBuilder.AppendNull()
		}
	}

	return builder.NewRecord(), nil
}

// appendKeys appends one footprint list row. An empty footprint becomes a
// null list, matching how an absent field comes off the wire.
func appendKeys(list *array.ListBuilder, values *array.StringBuilder, keys []string) {
	if len(keys) == 0 {
		list.AppendNull()
		return
	}
	list.Append(true)
	for _, k := range keys {
		values.Append(k)
	}
}

// RecordToTasks converts an Arrow record back into engine tasks, in row
// order. The record must match the task-batch schema.
func (c *Converter) RecordToTasks(record arrow.Record) ([]*engine.TransactionTask, error) {
	if record == nil || record.NumRows() == 0 {
		return nil, nil
	}
	if err := ValidateSchema(record, c.schema); err != nil {
		return nil, err
	}

	idCol, ok := record.Column(0).(*array.String)
	if !ok {
		return nil, errors.New("column 0 (id) is not a String array")
	}
	seqCol, ok := record.Column(1).(*array.Uint64)
	if !ok {
		return nil, errors.New("column 1 (sequence) is not a Uint64 array")
	}
	readCol, ok := record.Column(2).(*array.List)
	if !ok {
		return nil, errors.New("column 2 (read_keys) is not a List array")
	}
	writeCol, ok := record.Column(3).(*array.List)
	if !ok {
		return nil, errors.New("column 3 (write_keys) is not a List array")
	}
	payloadCol, ok := record.Column(4).(*array.Binary)
	if !ok {
		return nil, errors.New("column 4 (payload) is not a Binary array")
	}

	tasks := make([]*engine.TransactionTask, record.NumRows())

	for i := 0; i < int(record.NumRows()); i++ {
		task := &engine.TransactionTask{
			ID:       idCol.Value(i),
			Sequence: seqCol.Value(i),
			ReadSet:  extractKeys(readCol, i),
			WriteSet: extractKeys(writeCol, i),
		}
		// Copy out of the Arrow buffer; the record may be released before
		// the task is executed.
		if !payloadCol.IsNull(i) {
			task.Payload = append([]byte(nil), payloadCol.Value(i)...)
		}
		tasks[i] = task
	}

	return tasks, nil
}

// extractKeys extracts one footprint list row from a list column.
func extractKeys(col *array.List, row int) []string {
	if col.IsNull(row) {
		return nil
	}

	offsets := col.Offsets()
	start := offsets[row]
	end := offsets[row+1]
	if start == end {
		return nil
	}

	values := col.ListValues().(*array.String)
	keys := make([]string, 0, end-start)
	for j := start; j < end; j++ {
		keys = append(keys, values.Value(int(j)))
	}
	return keys
}

// MarshalBatch encodes a task batch as Arrow IPC bytes, the format the
// ordering collaborator ships batches in.
func (c *Converter) MarshalBatch(tasks []*engine.TransactionTask) ([]byte, error) {
	record, err := c.TasksToRecord(tasks)
	if err != nil {
		return nil, err
	}
	defer record.Release()

	var buf bytes.Buffer
	writer := ipc.NewWriter(&buf, ipc.WithSchema(record.Schema()), ipc.WithAllocator(c.allocator))

	if err := writer.Write(record); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBatch decodes Arrow IPC bytes into engine tasks. Multiple records
// in one IPC stream are concatenated in stream order.
func (c *Converter) UnmarshalBatch(data []byte) ([]*engine.TransactionTask, error) {
	reader, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(c.allocator))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer reader.Release()

	var tasks []*engine.TransactionTask
	for reader.Next() {
		batch, err := c.RecordToTasks(reader.Record())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, batch...)
	}
	if reader.Err() != nil {
		return nil, reader.Err()
	}
	if tasks == nil {
		return nil, errors.New("no records in IPC data")
	}

	return tasks, nil
}
