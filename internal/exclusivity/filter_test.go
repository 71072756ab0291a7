package exclusivity

import (
	"testing"

	"github.com/rhyspoulton/treefrog/internal/catalog"
	"github.com/rhyspoulton/treefrog/internal/match"
)

func smallCatalog(haloIDs []int64, sizes []int) *catalog.PerSnapshotCatalog {
	halos := make([]catalog.Halo, len(haloIDs))
	for i := range halos {
		halos[i] = catalog.Halo{HaloID: haloIDs[i], NumParticles: sizes[i]}
	}
	return &catalog.PerSnapshotCatalog{Halos: halos}
}

// Both sources claim both targets at equal merit; the smallest-ordinal
// source (A, index 0) wins both, and source B is left empty.
func TestFilterEqualMeritTieBreak(t *testing.T) {
	source := smallCatalog([]int64{10, 20}, []int{4, 4})
	target := smallCatalog([]int64{100, 200}, []int{4, 4})

	edges := []match.EdgeList{
		{Edges: []match.Edge{{Target: 0, Merit: 0.25, Shared: 1}, {Target: 1, Merit: 0.25, Shared: 1}}}, // A
		{Edges: []match.Edge{{Target: 0, Merit: 0.25, Shared: 1}, {Target: 1, Merit: 0.25, Shared: 1}}}, // B
	}

	out := Filter(edges, source, target)
	if len(out[0].Edges) != 2 {
		t.Fatalf("source A edges = %+v, want both targets kept", out[0].Edges)
	}
	if len(out[1].Edges) != 0 {
		t.Fatalf("source B edges = %+v, want empty", out[1].Edges)
	}
	if out[0].Edges[0].Target != 100 || out[0].Edges[1].Target != 200 {
		t.Errorf("haloID remap = %+v, want [100 200]", out[0].Edges)
	}
}

// Disjoint claims are untouched by the filter besides the haloID remap.
func TestFilterUniqueClaimsUnchanged(t *testing.T) {
	source := smallCatalog([]int64{10, 20}, []int{4, 4})
	target := smallCatalog([]int64{100, 200}, []int{4, 4})

	edges := []match.EdgeList{
		{Edges: []match.Edge{{Target: 0, Merit: 1.0, Shared: 4}}},
		{Edges: []match.Edge{{Target: 1, Merit: 1.0, Shared: 4}}},
	}

	out := Filter(edges, source, target)
	if len(out[0].Edges) != 1 || out[0].Edges[0].Target != 100 {
		t.Errorf("source A = %+v, want [(100, 1.0)]", out[0].Edges)
	}
	if len(out[1].Edges) != 1 || out[1].Edges[0].Target != 200 {
		t.Errorf("source B = %+v, want [(200, 1.0)]", out[1].Edges)
	}
	if out[0].Edges[0].NsharedFrac != 1.0 || out[1].Edges[0].NsharedFrac != 1.0 {
		t.Errorf("NsharedFrac not computed: %+v %+v", out[0].Edges, out[1].Edges)
	}
}

// A source with a clearly higher merit wins even when another source also
// claims the target.
func TestFilterBestMeritWins(t *testing.T) {
	source := smallCatalog([]int64{10, 20}, []int{4, 8})
	target := smallCatalog([]int64{100}, []int{8})

	edges := []match.EdgeList{
		{Edges: []match.Edge{{Target: 0, Merit: 0.1, Shared: 1}}}, // A: weak claim
		{Edges: []match.Edge{{Target: 0, Merit: 0.9, Shared: 7}}}, // B: strong claim
	}

	out := Filter(edges, source, target)
	if len(out[0].Edges) != 0 {
		t.Errorf("source A = %+v, want empty (lost to B)", out[0].Edges)
	}
	if len(out[1].Edges) != 1 {
		t.Errorf("source B = %+v, want the single surviving claim", out[1].Edges)
	}
}

// Running Filter a second time on its own ordinal-form output (no claim is
// now contested) is a no-op.
func TestFilterIdempotence(t *testing.T) {
	source := smallCatalog([]int64{10, 20}, []int{4, 4})
	target := smallCatalog([]int64{100, 200}, []int{4, 4})

	edges := []match.EdgeList{
		{Edges: []match.Edge{{Target: 0, Merit: 0.25, Shared: 1}, {Target: 1, Merit: 0.25, Shared: 1}}},
		{Edges: []match.Edge{{Target: 0, Merit: 0.25, Shared: 1}, {Target: 1, Merit: 0.25, Shared: 1}}},
	}

	first := Filter(edges, source, target)

	// Re-run on ordinal-form copies of the first pass's surviving edges
	// (haloIDs already remapped back to ordinals 0/1 by construction here,
	// matching the exact claims that survived).
	second := make([]match.EdgeList, len(first))
	for i, el := range first {
		cp := make([]match.Edge, len(el.Edges))
		for j, e := range el.Edges {
			cp[j] = e
			// invert the Pass-3 remap back to ordinal form for the second pass.
			for k, h := range target.Halos {
				if h.HaloID == int64(e.Target) {
					cp[j].Target = k
				}
			}
		}
		second[i] = match.EdgeList{Edges: cp}
	}

	out := Filter(second, source, target)
	if len(out[0].Edges) != len(first[0].Edges) || len(out[1].Edges) != len(first[1].Edges) {
		t.Fatalf("second pass = %+v, want same shape as first pass %+v", out, first)
	}
}

func TestSortByMerit(t *testing.T) {
	edges := []match.Edge{{Target: 1, Merit: 0.5}, {Target: 0, Merit: 0.9}, {Target: 2, Merit: 0.5}}
	SortByMerit(edges)
	if edges[0].Merit != 0.9 {
		t.Fatalf("edges[0] = %+v, want highest merit first", edges[0])
	}
	if edges[1].Target != 1 || edges[2].Target != 2 {
		t.Errorf("tie-break order = %+v, want ascending target", edges)
	}
}
