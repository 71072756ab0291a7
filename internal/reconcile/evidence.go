// Progenitor-derived descendant disambiguation: build the inverse "who
// nominated this progenitor" index, pick the temporally-optimal nominator
// per progenitor, and remove the losing entries from the corresponding
// per-snapshot progenitor lists.
//
// The evidence bag is modeled as a weighted undirected graph over
// (snapshot, halo) nodes, one node per source halo or target involved in a
// nomination and one edge per nomination. Connected components of that
// graph are independent resolution units: no two components touch the same
// (source snapshot, source halo) edge list, so each can be resolved without
// cross-component locking.
package reconcile

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/rhyspoulton/treefrog/internal/match"
	"github.com/rhyspoulton/treefrog/internal/shard"
)

// NominatorID identifies the (source snapshot, source halo ordinal) that
// nominated a target halo as its progenitor.
type NominatorID struct {
	Snap int
	Halo int
}

// TargetID identifies a progenitor halo by snapshot and by the halo
// identifier its nominating edges carry (the external haloID once
// exclusivity finalisation has run, the catalog ordinal before).
type TargetID struct {
	Snap int
	Halo int
}

// Entry is one nomination received by a target halo.
type Entry struct {
	Nominator NominatorID
	Merit     float64
	Delta     int
	Shard     shard.Tag
}

// temporalMerit ranks nominations so that larger merit wins and, for fixed
// merit, a smaller look-back distance wins: merit/Delta, which is monotone
// decreasing in Delta and recovers plain merit ordering at Delta=1.
func temporalMerit(e Entry) float64 {
	if e.Delta <= 0 {
		return e.Merit
	}
	return e.Merit / float64(e.Delta)
}

// Index is the inverse nomination index: for every target named as a
// progenitor by at least one source, the bag of nominations it received.
type Index struct {
	bags map[TargetID][]Entry
}

// NewIndex builds the inverse index over progEdges, a map from source
// (descendant) snapshot index to that snapshot's progenitor EdgeLists (one
// per halo). Each edge list may have been produced at a different look-back
// distance (its IStep, defaulting to 1 when unset), so the progenitor
// snapshot it points into is computed per-list rather than per-snapshot:
// targetSnap(sourceSnap, list) returns that snapshot index. shardOf, if
// non-nil, tags each nomination with its owning shard so a sharded run can
// filter removals to its own edge lists.
func NewIndex(progEdges map[int][]match.EdgeList, targetSnap func(sourceSnap int, list match.EdgeList) int, shardOf func(sourceSnap, haloOrdinal int) shard.Tag) *Index {
	idx := &Index{bags: make(map[TargetID][]Entry)}
	for snap, lists := range progEdges {
		for haloOrdinal, el := range lists {
			tSnap := targetSnap(snap, el)
			d := el.IStep
			if d <= 0 {
				d = 1
			}
			var tag shard.Tag
			if shardOf != nil {
				tag = shardOf(snap, haloOrdinal)
			}
			for _, e := range el.Edges {
				t := TargetID{Snap: tSnap, Halo: e.Target}
				idx.bags[t] = append(idx.bags[t], Entry{
					Nominator: NominatorID{Snap: snap, Halo: haloOrdinal},
					Merit:     e.Merit,
					Delta:     d,
					Shard:     tag,
				})
			}
		}
	}
	return idx
}

// Contested returns every target with more than one nominator, the ones
// Resolve must disambiguate.
func (idx *Index) Contested() []TargetID {
	out := make([]TargetID, 0)
	for t, bag := range idx.bags {
		if len(bag) > 1 {
			out = append(out, t)
		}
	}
	return out
}

// Bag returns the evidence entries nominating t, or nil if t was never
// nominated.
func (idx *Index) Bag(t TargetID) []Entry {
	return idx.bags[t]
}

// groups partitions the contested targets into independent connected
// components of the bipartite nominator/target evidence graph, so that
// Resolve can process each component without any cross-component locking.
func (idx *Index) groups(targets []TargetID) [][]TargetID {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	targetNode := make(map[TargetID]int64, len(targets))
	nominatorNode := make(map[NominatorID]int64)
	next := int64(0)
	alloc := func() int64 {
		id := next
		next++
		g.AddNode(simple.Node(id))
		return id
	}

	for _, t := range targets {
		tid, ok := targetNode[t]
		if !ok {
			tid = alloc()
			targetNode[t] = tid
		}
		for _, e := range idx.bags[t] {
			sid, ok := nominatorNode[e.Nominator]
			if !ok {
				sid = alloc()
				nominatorNode[e.Nominator] = sid
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(tid), T: simple.Node(sid), W: temporalMerit(e)})
		}
	}

	comps := topo.ConnectedComponents(g)
	byNode := make(map[int64]int, len(targets)*2)
	for ci, comp := range comps {
		for _, n := range comp {
			byNode[n.ID()] = ci
		}
	}

	out := make([][]TargetID, len(comps))
	for _, t := range targets {
		ci := byNode[targetNode[t]]
		out[ci] = append(out[ci], t)
	}
	return out
}

// Resolved is the outcome of resolving one contested target: the winning
// entry and the losers that must be removed from their source snapshot's
// progenitor edges.
type Resolved struct {
	Target TargetID
	Winner Entry
	Losers []Entry
}

// Resolve collapses every contested target to its single optimal nominator
// and reports the losers to remove. It does not mutate progEdges itself;
// removal is left to RemoveLosers so callers can apply shard-local filtering
// first. The connected components from groups are resolved concurrently:
// no two components share a target or a nominator, so each worker sorts and
// collapses its own component's evidence bags without touching any other's.
func (idx *Index) Resolve() []Resolved {
	contested := idx.Contested()
	if len(contested) == 0 {
		return nil
	}

	comps := idx.groups(contested)
	results := make([][]Resolved, len(comps))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ci, group := range comps {
		ci, group := ci, group
		g.Go(func() error {
			res := make([]Resolved, 0, len(group))
			for _, t := range group {
				bag := idx.bags[t]
				sort.SliceStable(bag, func(i, j int) bool {
					return temporalMerit(bag[i]) > temporalMerit(bag[j])
				})
				res = append(res, Resolved{
					Target: t,
					Winner: bag[0],
					Losers: bag[1:],
				})
			}
			results[ci] = res
			return nil
		})
	}
	g.Wait()

	var out []Resolved
	for _, res := range results {
		out = append(out, res...)
	}
	return out
}

// RemoveLosers removes, for every Resolved target, each losing nomination
// owned by the local shard: the edge whose Target equals the resolved
// target's Halo identifier is stable-left-shifted out of
// progEdges[loser.Nominator.Snap][loser.Nominator.Halo], shrinking that
// edge list. Entries belonging to a different shard are left untouched; a
// shard mutates only its own edge lists.
func RemoveLosers(resolved []Resolved, progEdges map[int][]match.EdgeList, self shard.Tag) {
	for _, r := range resolved {
		for _, loser := range r.Losers {
			if !loser.Shard.Local(self) {
				continue
			}
			list := progEdges[loser.Nominator.Snap]
			if loser.Nominator.Halo >= len(list) {
				continue
			}
			edges := list[loser.Nominator.Halo].Edges
			edges = removeTarget(edges, r.Target.Halo)
			list[loser.Nominator.Halo].Edges = edges
		}
	}
}

// removeTarget stable-left-shifts target out of edges, preserving the
// relative order of the remaining entries.
func removeTarget(edges []match.Edge, target int) []match.Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.Target == target {
			continue
		}
		out = append(out, e)
	}
	return out
}
