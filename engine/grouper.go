package engine

import "sort"

// ConflictComponent is a maximal set of tasks transitively linked by shared
// write-involving keys. Members are ordered by sequence and must execute
// sequentially; distinct components never share a key and may run in
// parallel.
type ConflictComponent struct {
	Members []*TransactionTask
	KeySet  map[string]struct{}
}

// Size returns the number of member tasks.
func (c *ConflictComponent) Size() int {
	return len(c.Members)
}

// unionFind is a disjoint-set forest with union by size and path compression.
// Amortized near-constant per operation, which is what keeps grouping at
// O(n) instead of a pairwise O(n^2) comparison.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}

// GroupConflicts partitions a batch into conflict components using the
// footprint index. Two tasks land in the same component when they share a
// key and at least one of the accesses is a write; pure read-read sharing
// never conflicts. Returns the components and the number of conflicting
// keys found.
//
// Tasks with an empty footprint share no keys with anyone and come out as
// singleton components.
func GroupConflicts(tasks []*TransactionTask, idx *FootprintIndex) ([]*ConflictComponent, int) {
	uf := newUnionFind(len(tasks))
	conflicts := 0

	for _, accesses := range idx.keys {
		if len(accesses) < 2 {
			continue
		}
		hasWrite := false
		for _, a := range accesses {
			if a.write {
				hasWrite = true
				break
			}
		}
		if !hasWrite {
			continue
		}
		conflicts++
		first := accesses[0].task
		for _, a := range accesses[1:] {
			uf.union(first, a.task)
		}
	}

	// Flatten the forest. Iterating tasks in batch order keeps component
	// emission deterministic and members already sequence-ascending.
	byRoot := make(map[int]*ConflictComponent)
	components := make([]*ConflictComponent, 0, len(tasks))

	for i, task := range tasks {
		root := uf.find(i)
		comp, ok := byRoot[root]
		if !ok {
			comp = &ConflictComponent{
				KeySet: make(map[string]struct{}),
			}
			byRoot[root] = comp
			components = append(components, comp)
		}
		comp.Members = append(comp.Members, task)
		for key := range task.footprint() {
			comp.KeySet[key] = struct{}{}
		}
	}

	// Intra-component order is always sequence-ascending and is never
	// changed afterwards.
	for _, comp := range components {
		sort.Slice(comp.Members, func(a, b int) bool {
			return comp.Members[a].Sequence < comp.Members[b].Sequence
		})
	}

	return components, conflicts
}
