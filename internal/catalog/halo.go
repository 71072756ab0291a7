// Package catalog holds the per-snapshot halo catalog and the dense
// auxiliary index arrays (pglist/noffset, and the optional threaded
// head/next/len/tail lists) built from a friends-of-friends particle
// labeling.
package catalog

import "fmt"

// Halo is an unordered set of particle indices belonging to one self-bound
// structure at one snapshot, plus its externally assigned, later-rewritten
// 64-bit id. It is immutable once built by IndexBuilder.
type Halo struct {
	HaloID        int64
	NumParticles  int
	ParticleIDs   []int64 // raw particle ids, ascending particle-index order
	ParticleIndex []int   // dense particle indices, ascending order
}

// Labeling is the dense particleIndex -> halo-ordinal+1 mapping (pfof) used
// as the target side of a cross-match; 0 means "not in any halo". Domain is
// [0, N) for a labeling built over N particles.
type Labeling []int

// PerSnapshotCatalog is a halo catalog together with the flat pglist/noffset
// arrays the matching kernel scans: pglist is the concatenation, in halo order, of
// every halo's particle indices, and noffset[h] is the offset of halo h's
// slice within pglist, so that noffset[h+1]-noffset[h] == Halo[h].NumParticles.
type PerSnapshotCatalog struct {
	Halos   []Halo
	PGList  []int
	NOffset []int
}

// NumHalos returns the number of halos in the catalog.
func (c *PerSnapshotCatalog) NumHalos() int { return len(c.Halos) }

// ParticleIndices returns halo h's slice of dense particle indices into
// PGList, honoring the noffset[h+1]-noffset[h] == NumParticles invariant.
func (c *PerSnapshotCatalog) ParticleIndices(h int) []int {
	return c.PGList[c.NOffset[h]:c.NOffset[h+1]]
}

// BuildIndex builds the dense group index: given a per-particle
// friends-of-friends label array pfof (values in [0, numGroups]) and the
// external halo ids assigned to each of the numGroups groups, it builds the
// dense numInGroup/pglist/noffset arrays and the Halo slice in two linear
// passes over pfof. A particle with pfof[i] == 0 belongs to no group.
func BuildIndex(pfof []int, numGroups int, haloIDs []int64) (*PerSnapshotCatalog, error) {
	if len(haloIDs) != numGroups {
		return nil, fmt.Errorf("catalog: got %d halo ids for %d groups", len(haloIDs), numGroups)
	}

	// Pass 1: count particles per group.
	numInGroup := make([]int, numGroups+1) // 1-indexed, numInGroup[0] unused
	for _, g := range pfof {
		if g < 0 || g > numGroups {
			return nil, fmt.Errorf("catalog: label %d out of range [0, %d]", g, numGroups)
		}
		if g > 0 {
			numInGroup[g]++
		}
	}

	noffset := make([]int, numGroups+1)
	for g := 1; g <= numGroups; g++ {
		noffset[g] = noffset[g-1] + numInGroup[g]
	}

	pglist := make([]int, noffset[numGroups])
	// cursor[g] starts at group g's first slot, noffset[g-1].
	cursor := make([]int, numGroups+1)
	for g := 1; g <= numGroups; g++ {
		cursor[g] = noffset[g-1]
	}

	// Pass 2: scatter particle indices into their group's slice, in
	// ascending particle-index order (cursor only ever advances).
	for p, g := range pfof {
		if g == 0 {
			continue
		}
		pglist[cursor[g]] = p
		cursor[g]++
	}

	halos := make([]Halo, numGroups)
	for g := 1; g <= numGroups; g++ {
		idx := pglist[noffset[g-1]:noffset[g]]
		halos[g-1] = Halo{
			HaloID:        haloIDs[g-1],
			NumParticles:  numInGroup[g],
			ParticleIndex: idx,
		}
	}

	return &PerSnapshotCatalog{Halos: halos, PGList: pglist, NOffset: noffset}, nil
}

// ThreadedLists holds the optional per-particle threaded-list representation
// of the same grouping (head/next/len/tail), an alternative to pglist/noffset
// that some collaborators prefer for incremental updates.
type ThreadedLists struct {
	Head      []int // Head[g], g in [1, numGroups]: first particle index in group g, or -1
	Next      []int // Next[p]: next particle index in p's group, or -1 if p is the tail
	Len       []int // Len[g]: number of particles in group g
	GroupTail []int // GroupTail[g]: last particle index in group g, or -1
}

// BuildThreadedLists derives the head/next/len/tail threaded representation
// from the same pfof label array, in two linear passes, independent of
// BuildIndex's pglist/noffset output.
func BuildThreadedLists(pfof []int, numGroups int) *ThreadedLists {
	t := &ThreadedLists{
		Head:      make([]int, numGroups+1),
		Next:      make([]int, len(pfof)),
		Len:       make([]int, numGroups+1),
		GroupTail: make([]int, numGroups+1),
	}
	for g := range t.Head {
		t.Head[g] = -1
		t.GroupTail[g] = -1
	}
	for p, g := range pfof {
		t.Next[p] = -1
		if g == 0 {
			continue
		}
		t.Len[g]++
		if t.Head[g] == -1 {
			t.Head[g] = p
		} else {
			t.Next[t.GroupTail[g]] = p
		}
		t.GroupTail[g] = p
	}
	return t
}

// RewriteHaloIDs applies the once-per-run halo-id rewrite:
// haloID += haloidval*(snapIdx+snapshotvaloffset) + haloidoffset, restricted
// to the snapshots this shard owns. snapOf maps a catalog's position in
// catalogs to its global snapshot index.
func RewriteHaloIDs(catalogs []*PerSnapshotCatalog, snapOf func(pos int) int, haloidval, snapshotvaloffset, haloidoffset int64, owns func(snap int) bool) {
	for pos, c := range catalogs {
		snap := snapOf(pos)
		if owns != nil && !owns(snap) {
			continue
		}
		delta := haloidval*(int64(snap)+snapshotvaloffset) + haloidoffset
		for i := range c.Halos {
			c.Halos[i].HaloID += delta
		}
	}
}
