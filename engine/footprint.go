package engine

// keyAccess records that a task (by batch index) touches a key, and whether
// any of its accesses to that key is a write.
type keyAccess struct {
	task  int
	write bool
}

// FootprintIndex maps every state key touched by a batch to the tasks that
// touch it. Built in a single linear pass over the batch; cost is
// proportional to the total number of declared keys.
type FootprintIndex struct {
	keys map[string][]keyAccess
}

// BuildFootprintIndex builds the index for a batch. Tasks are identified by
// their position in the batch, which is also their sequence order.
func BuildFootprintIndex(tasks []*TransactionTask) *FootprintIndex {
	idx := &FootprintIndex{
		keys: make(map[string][]keyAccess),
	}

	for i, task := range tasks {
		for key, write := range task.footprint() {
			idx.keys[key] = append(idx.keys[key], keyAccess{task: i, write: write})
		}
	}

	return idx
}

// KeyCount returns the number of distinct keys touched by the batch.
func (idx *FootprintIndex) KeyCount() int {
	return len(idx.keys)
}

// Touchers returns the batch indices of tasks touching the given key.
func (idx *FootprintIndex) Touchers(key string) []int {
	accesses := idx.keys[key]
	if accesses == nil {
		return nil
	}
	tasks := make([]int, len(accesses))
	for i, a := range accesses {
		tasks[i] = a.task
	}
	return tasks
}
