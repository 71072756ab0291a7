// Package share implements the shared-particle accumulation kernel and its
// per-worker scratch arena: a dense share[workerId][targetOrdinal] vector,
// lazily zeroed between source halos.
package share

// Arena is the per-worker scratch for the scatter phase: a single
// contiguous share[numWorkers*numTargets] allocation, sliced per worker,
// with each worker tracking which indices it dirtied so resetting between
// source halos only touches what was actually written.
type Arena struct {
	numTargets int
	numWorkers int
	flat       []int
	dirty      [][]int // per-worker list of touched target ordinals
}

// NewArena allocates an Arena sized for numWorkers concurrent workers each
// scanning a target universe of numTargets halos.
func NewArena(numWorkers, numTargets int) *Arena {
	return &Arena{
		numTargets: numTargets,
		numWorkers: numWorkers,
		flat:       make([]int, numWorkers*numTargets),
		dirty:      make([][]int, numWorkers),
	}
}

// Worker returns the scratch slice owned by workerId. The caller must not
// retain it across a call to Reset for the same worker.
func (a *Arena) Worker(workerID int) []int {
	return a.flat[workerID*a.numTargets : (workerID+1)*a.numTargets]
}

// mark records that workerID's slice has a nonzero value at target t, so
// Reset can zero exactly the touched indices.
func (a *Arena) mark(workerID, t int) {
	a.dirty[workerID] = append(a.dirty[workerID], t)
}

// Reset zeroes only the indices workerID dirtied since the last Reset,
// leaving the rest of the slice (already zero) untouched.
func (a *Arena) Reset(workerID int) {
	w := a.Worker(workerID)
	for _, t := range a.dirty[workerID] {
		w[t] = 0
	}
	a.dirty[workerID] = a.dirty[workerID][:0]
}

// Accumulate implements ShareAccumulator: for source halo particle indices
// particleIdx, scatters +1 into workerID's slice of share at every target
// halo ordinal the target labeling pfofTarget assigns that particle to
// (pfofTarget[p] > 0), and returns the dense share vector for this source.
// The returned slice aliases the arena and is only valid until the next
// call to Reset(workerID) or Accumulate(workerID, ...).
func (a *Arena) Accumulate(workerID int, particleIdx []int, pfofTarget []int) []int {
	w := a.Worker(workerID)
	for _, p := range particleIdx {
		g := pfofTarget[p]
		if g <= 0 {
			continue
		}
		t := g - 1
		if w[t] == 0 {
			a.mark(workerID, t)
		}
		w[t]++
	}
	return w
}
