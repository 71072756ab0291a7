// Package exclusivity converts the many-to-many candidate lists the
// cross-matcher produces into a consistent relation where each target is
// claimed by at most one source.
package exclusivity

import (
	"math"
	"sort"

	"github.com/rhyspoulton/treefrog/internal/catalog"
	"github.com/rhyspoulton/treefrog/internal/match"
)

// Filter enforces exclusivity in three passes over edgeLists (one per
// source halo, target ordinals, as produced by CrossMatch) against the
// target catalog target, and the source catalog source (needed for the
// source sizes in the nsharedFrac finalisation). It mutates edgeLists in
// place and also returns it for convenience.
//
// Pass 1 finds, for every target ordinal, the highest-merit claimant and how
// many sources claimed it at all. Pass 2 drops every edge whose target was
// claimed by more than one source and whose source isn't the winner,
// compacting each list stably. Pass 3 rewrites the surviving target ordinals
// to their external haloID and computes nsharedFrac from each edge's raw
// Shared count, which stays correct under every merit kind.
func Filter(edgeLists []match.EdgeList, source, target *catalog.PerSnapshotCatalog) []match.EdgeList {
	numTargets := target.NumHalos()
	bestSource := make([]int, numTargets)
	bestMerit := make([]float64, numTargets)
	claimCount := make([]int, numTargets)
	for b := range bestSource {
		bestSource[b] = -1
		bestMerit[b] = math.Inf(-1)
	}

	// Pass 1. Sources are visited in increasing ordinal order, so on a merit
	// tie the smallest source ordinal keeps the claim.
	for i, el := range edgeLists {
		for _, e := range el.Edges {
			claimCount[e.Target]++
			if e.Merit > bestMerit[e.Target] {
				bestMerit[e.Target] = e.Merit
				bestSource[e.Target] = i
			}
		}
	}

	// Pass 2: stable compaction, dropping edges lost to a higher (or
	// tie-broken) claim elsewhere.
	for i := range edgeLists {
		edges := edgeLists[i].Edges
		kept := edges[:0]
		for _, e := range edges {
			if claimCount[e.Target] >= 2 && bestSource[e.Target] != i {
				continue
			}
			kept = append(kept, e)
		}
		edgeLists[i].Edges = kept
	}

	// Pass 3: finalisation. Remap ordinal to haloID, derive nsharedFrac
	// from the raw shared count.
	for i := range edgeLists {
		sizeA := source.Halos[i].NumParticles
		for j := range edgeLists[i].Edges {
			e := &edgeLists[i].Edges[j]
			e.NsharedFrac = nsharedFrac(e.Shared, sizeA)
			e.Target = int(target.Halos[e.Target].HaloID)
		}
	}

	return edgeLists
}

// nsharedFrac computes the shared-particle fraction directly from the raw
// count rather than by inverting the merit formula, so the derived quantity
// is exact regardless of which matchtype produced the edge's Merit value.
func nsharedFrac(shared, sizeA int) float64 {
	if sizeA == 0 {
		return 0
	}
	return float64(shared) / float64(sizeA)
}

// SortByMerit re-establishes descending-merit order within an edge list.
// Lists built by CrossMatch are already ordered, and reconciliation only
// ever removes entries, so this is for callers that rebuild lists by other
// means.
func SortByMerit(edges []match.Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Merit != edges[j].Merit {
			return edges[i].Merit > edges[j].Merit
		}
		return edges[i].Target < edges[j].Target
	})
}
