// Package remap applies the caller-supplied particle-id -> dense-index
// mapping hook and the range-validation pass that aborts the whole
// (possibly sharded) run consistently on any out-of-range id.
package remap

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rhyspoulton/treefrog/internal/shard"
)

// ExitCodeInputRange is the distinguished process exit code for a
// particle-id range violation.
const ExitCodeInputRange = 9

// MappingFunc is the caller-supplied particle-id -> dense-index function
// Remap applies. The core has no policy of its own for what this mapping
// means.
type MappingFunc func(particleID int64) int64

// Remap applies fn to every particle id in place.
func Remap(ids []int64, fn MappingFunc) {
	for i, id := range ids {
		ids[i] = fn(id)
	}
}

// RangeError is the fatal, user-visible diagnostic naming the offending
// snapshot and particle id.
type RangeError struct {
	Snapshot int
	ID       int64
	NumPart  int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("particle id %d at snapshot %d is out of range [0, %d)", e.ID, e.Snapshot, e.NumPart)
}

// Validate asserts every id in ids lies in [0, numPart), for diagnostics
// purposes tagged with snapshot. It returns the first offending id's error.
// Scanning is local only; see ValidateSharded for the globally-consistent
// sharded version.
func Validate(ids []int64, snapshot int, numPart int64) error {
	for _, id := range ids {
		if id < 0 || id >= numPart {
			return &RangeError{Snapshot: snapshot, ID: id, NumPart: numPart}
		}
	}
	return nil
}

// ValidateSharded implements the globally-consistent abort: every shard
// validates its own snapshots' particle ids concurrently, bounded by a
// worker pool, sets a local error flag, and the flags are summed across
// shards via reduce (an MPI Allreduce in a real distributed run,
// shard.LocalReducer for a single process). Every shard returns the same
// decision, abort iff the reduced total is nonzero, even though only the
// caller-designated rank-0 shard is expected to print the diagnostic.
//
// catalogs maps a local snapshot index to that snapshot's particle ids.
func ValidateSharded(ctx context.Context, catalogs map[int][]int64, numPart int64, reduce shard.Reducer) (bool, error) {
	if reduce == nil {
		reduce = shard.LocalReducer
	}

	var localFailure int32
	var mu sync.Mutex
	var firstErr error

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, runtime.GOMAXPROCS(0))

loop:
	for snap, ids := range catalogs {
		snap, ids := snap, ids
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break loop
		}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := Validate(ids, snap, numPart); err != nil {
				atomic.StoreInt32(&localFailure, 1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	total := reduce(int64(atomic.LoadInt32(&localFailure)))
	return total != 0, firstErr
}
