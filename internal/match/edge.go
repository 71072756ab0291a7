// Package match implements the top-level bipartite cross-matcher: for every
// source halo, rank candidate targets by merit and materialise a per-source
// EdgeList, using a bounded worker pool over source halos.
package match

import (
	"context"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rhyspoulton/treefrog/internal/catalog"
	"github.com/rhyspoulton/treefrog/internal/logging"
	"github.com/rhyspoulton/treefrog/internal/merit"
	"github.com/rhyspoulton/treefrog/internal/share"
)

// Edge is a single (target, merit, fraction) record. Keeping the three
// values in one struct rules out the length-mismatch bugs that parallel
// target/merit/fraction arrays invite.
type Edge struct {
	Target      int // target halo ordinal until exclusivity finalisation, haloID after
	Merit       float64
	NsharedFrac float64
	Shared      int // raw shared-particle count this edge was built from
}

// EdgeList is one source halo's ranked candidate list, in non-increasing
// Merit order (equal merits may appear), plus the look-back distance that
// produced it.
type EdgeList struct {
	Edges []Edge
	IStep int
}

// Options bundles the cross-match knobs.
type Options struct {
	Kind    merit.Kind
	Sigma   float64
	NumProc int // worker pool size; 0 means runtime.GOMAXPROCS(0)
}

// CrossMatch builds one ranked candidate list per source halo. h1 is the
// source catalog, h2 the target catalog, pfof2 the target labeling. If
// refList is non-nil, only sources with a currently-empty refList entry are
// (re)computed. The progenitor and descendant variants differ only in which
// snapshot is h1 and which is h2, so callers pick the direction by argument
// order. istepval is stamped onto every produced edge list when > 1.
// The second return value reports whether any source's list changed; it is
// true when refList is nil, except against an empty target universe, where
// every source gets an empty list and it is false.
func CrossMatch(ctx context.Context, h1, h2 *catalog.PerSnapshotCatalog, pfof2 []int, opts Options, refList []EdgeList, istepval int, level logging.Level) ([]EdgeList, bool, error) {
	if level >= logging.Standard {
		log.Printf("crossmatch: %d source halos against %d target halos (istep=%d)", h1.NumHalos(), h2.NumHalos(), istepval)
	}
	var start time.Time
	if level == logging.Performance {
		start = time.Now()
	}

	out := make([]EdgeList, h1.NumHalos())

	if h2.NumHalos() == 0 {
		// an empty target universe is not an error, every source just gets
		// an empty edge list
		return out, false, nil
	}

	numWorkers := opts.NumProc
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > h1.NumHalos() && h1.NumHalos() > 0 {
		numWorkers = h1.NumHalos()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	arena := share.NewArena(numWorkers, h2.NumHalos())
	targetSizes := make([]int, h2.NumHalos())
	for i, h := range h2.Halos {
		targetSizes[i] = h.NumParticles
	}

	var listUpdated int32

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(numWorkers))

	// slots is a pool of free worker ids: each goroutine checks one out for
	// the duration of its unit of work and returns it, so two goroutines
	// never touch the same Arena slice concurrently.
	slots := make(chan int, numWorkers)
	for w := 0; w < numWorkers; w++ {
		slots <- w
	}

	for i := 0; i < h1.NumHalos(); i++ {
		i := i
		if refList != nil && len(refList[i].Edges) > 0 {
			// already has a candidate: carry it forward unchanged rather
			// than recomputing
			out[i] = refList[i]
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			workerID := <-slots
			defer func() { slots <- workerID }()

			shareVec := arena.Accumulate(workerID, h1.Halos[i].ParticleIndex, pfof2)
			cands := merit.Rank(opts.Kind, shareVec, h1.Halos[i].NumParticles, targetSizes, opts.Sigma, nil)
			arena.Reset(workerID)

			if len(cands) > 0 {
				atomic.StoreInt32(&listUpdated, 1)
			}

			edges := make([]Edge, len(cands))
			for j, c := range cands {
				edges[j] = Edge{Target: c.Target, Merit: c.Merit, Shared: c.Shared}
			}
			el := EdgeList{Edges: edges}
			if istepval > 1 {
				el.IStep = istepval
			}
			out[i] = el
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	updated := refList == nil || atomic.LoadInt32(&listUpdated) != 0

	if level == logging.Performance {
		log.Printf("crossmatch: done in %s", time.Since(start))
	}

	return out, updated, nil
}
