package treefrog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/rhyspoulton/treefrog/internal/catalog"
	"github.com/rhyspoulton/treefrog/internal/exclusivity"
	"github.com/rhyspoulton/treefrog/internal/logging"
	"github.com/rhyspoulton/treefrog/internal/match"
	"github.com/rhyspoulton/treefrog/internal/reconcile"
	"github.com/rhyspoulton/treefrog/internal/remap"
	"github.com/rhyspoulton/treefrog/internal/shard"
)

// TreeConfig is the "tree" mode of the treefrog tool: it runs the full
// cross-matching and reconciliation pipeline across every snapshot in
// [SnapMin, SnapMax]: read/validate a GlobalConfig, then Run against the
// supplied snapshot data.
type TreeConfig struct {
	GlobalConfig

	// MapParticleID, if non-nil, is applied in place to every snapshot's
	// particle ids before validation. It cannot come from the config file
	// (it is a function); the embedding caller sets it directly when the
	// raw ids need translating to dense indices.
	MapParticleID remap.MappingFunc
}

// ExampleConfig delegates to GlobalConfig; a TreeConfig IS the run-wide
// configuration for this single-mode tool.
func (t *TreeConfig) ExampleConfig() string { return t.GlobalConfig.ExampleConfig() }

// ReadConfig delegates to GlobalConfig.
func (t *TreeConfig) ReadConfig(fname string) error { return t.GlobalConfig.ReadConfig(fname) }

// direction selects which way a cross-match looks in time.
type direction int

const (
	progenitorDir direction = iota
	descendantDir
)

// Run drives the full pipeline: halo-id rewrite, per-snapshot multi-step
// cross-matching in both directions, exclusivity filtering, and progenitor
// disambiguation, returning one formatted line per surviving edge.
func (t *TreeConfig) Run(snaps Snapshots) ([]string, error) {
	if t.logMode != logging.Nil {
		log.Println(`
####################
## treefrog ##
####################`)
	}
	var start time.Time
	if t.logMode == logging.Performance {
		start = time.Now()
	}

	ctx := context.Background()
	numSnaps := snaps.NumSnapshots()
	if int64(numSnaps) <= t.SnapMax {
		return nil, fmt.Errorf("'SnapMax' = %d, but only %d snapshots are available", t.SnapMax, numSnaps)
	}

	catalogs := make(map[int]*catalog.PerSnapshotCatalog)
	labelings := make(map[int]catalog.Labeling)
	particleIDs := make(map[int][]int64)
	for s := int(t.SnapMin); s <= int(t.SnapMax); s++ {
		c, err := snaps.Catalog(s)
		if err != nil {
			return nil, fmt.Errorf("reading catalog for snapshot %d: %w", s, err)
		}
		l, err := snaps.Labeling(s)
		if err != nil {
			return nil, fmt.Errorf("reading labeling for snapshot %d: %w", s, err)
		}
		ids, err := snaps.ParticleIDs(s)
		if err != nil {
			return nil, fmt.Errorf("reading particle ids for snapshot %d: %w", s, err)
		}
		catalogs[s] = c
		labelings[s] = l
		particleIDs[s] = ids
	}

	if t.MapParticleID != nil {
		for _, ids := range particleIDs {
			remap.Remap(ids, t.MapParticleID)
		}
	}

	// Abort the whole run, consistently across shards, on any particle id
	// outside [0, NumPart). This run isn't sharded, so shard.LocalReducer
	// makes the "global" reduction a no-op.
	if failed, err := remap.ValidateSharded(ctx, particleIDs, t.NumPart, shard.LocalReducer); failed {
		if t.logMode != logging.Nil {
			log.Printf("fatal: %v", err)
		}
		return nil, err
	}

	ordered := make([]*catalog.PerSnapshotCatalog, 0, len(catalogs))
	positions := make([]int, 0, len(catalogs))
	for s := int(t.SnapMin); s <= int(t.SnapMax); s++ {
		ordered = append(ordered, catalogs[s])
		positions = append(positions, s)
	}
	catalog.RewriteHaloIDs(ordered, func(pos int) int { return positions[pos] },
		t.HaloIDVal, t.SnapshotValOffset, t.HaloIDOffset, nil)

	progEdges := make(map[int][]match.EdgeList) // descendant-snap -> progenitor edges
	descEdges := make(map[int][]match.EdgeList) // progenitor-snap -> descendant edges

	opts := match.Options{Kind: t.matchType, Sigma: t.Mlsig, NumProc: int(t.NumProc)}

	for s := int(t.SnapMin); s <= int(t.SnapMax); s++ {
		prog, err := t.multiStep(ctx, s, catalogs, labelings, opts, progenitorDir)
		if err != nil {
			return nil, err
		}
		if prog != nil {
			progEdges[s] = prog
		}

		desc, err := t.multiStep(ctx, s, catalogs, labelings, opts, descendantDir)
		if err != nil {
			return nil, err
		}
		if desc != nil {
			descEdges[s] = desc
		}
	}

	t.disambiguate(progEdges)

	if t.logMode == logging.Performance {
		log.Printf("treefrog: total time %s", time.Since(start))
	}

	return formatEdges(catalogs, progEdges, descEdges), nil
}

// multiStep runs CrossMatch for look-back distances 1..NumSteps in dir,
// running the exclusivity filter against each step's own target catalog as
// soon as that step's candidates are computed, then folding the now
// haloID-finalised result into a running reference list under t.ilink.
// Target ordinals only mean something relative to the step that produced
// them, so filtering must happen before a candidate list from one step is
// ever compared against or merged with one from another step: by the time
// MergeSteps runs, every Target field is already an absolute haloID and
// safe to mix across steps. Returns nil if the look-back/look-ahead
// snapshot for distance 1 doesn't exist.
func (t *TreeConfig) multiStep(ctx context.Context, s int, catalogs map[int]*catalog.PerSnapshotCatalog, labelings map[int]catalog.Labeling, opts match.Options, dir direction) ([]match.EdgeList, error) {
	other := func(delta int) int {
		if dir == progenitorDir {
			return s - delta
		}
		return s + delta
	}

	if _, ok := catalogs[other(1)]; !ok {
		return nil, nil
	}

	h1 := catalogs[s]
	var reference []match.EdgeList

	for delta := 1; delta <= int(t.NumSteps); delta++ {
		os := other(delta)
		h2, ok := catalogs[os]
		if !ok {
			break
		}
		pfof2, ok := labelings[os]
		if !ok {
			break
		}

		// Under MISSING, a source that already carries a surviving
		// candidate from a shorter step never needs recomputing. Under
		// MERIT every step must be recomputed in full so its best merit
		// can be compared against the reference.
		var refForCall []match.EdgeList
		if t.ilink == reconcile.Missing && delta > 1 {
			refForCall = reference
		}

		edges, _, err := match.CrossMatch(ctx, h1, h2, pfof2, opts, refForCall, delta, t.logMode)
		if err != nil {
			return nil, fmt.Errorf("cross-matching snapshot %d against %d: %w", s, os, err)
		}

		filterFreshAgainst(edges, refForCall, h1, h2)

		if delta == 1 {
			reference = edges
			continue
		}
		reference = reconcile.MergeSteps(t.ilink, reference, [][]match.EdgeList{edges}, t.logMode)
	}

	return reference, nil
}

// filterFreshAgainst runs the exclusivity filter over only the entries of
// edges that CrossMatch actually (re)computed this step, leaving untouched
// any entry it instead copied forward from refForCall because that source
// already had a surviving candidate. Those are already filtered and
// haloID-finalised against an earlier step's target catalog; re-filtering
// them against this step's target would misinterpret their haloID as a
// target ordinal.
func filterFreshAgainst(edges []match.EdgeList, refForCall []match.EdgeList, source, target *catalog.PerSnapshotCatalog) {
	fresh := make([]match.EdgeList, len(edges))
	isFresh := make([]bool, len(edges))
	for i := range edges {
		if refForCall != nil && len(refForCall[i].Edges) > 0 {
			continue
		}
		fresh[i] = edges[i]
		isFresh[i] = true
	}

	exclusivity.Filter(fresh, source, target)

	for i, f := range isFresh {
		if f {
			edges[i] = fresh[i]
		}
	}
}

// disambiguate resolves progenitors claimed by more than one descendant,
// mutating progEdges in place so each progenitor keeps only its optimal
// claimant.
func (t *TreeConfig) disambiguate(progEdges map[int][]match.EdgeList) {
	targetSnap := func(sourceSnap int, list match.EdgeList) int {
		d := list.IStep
		if d <= 0 {
			d = 1
		}
		return sourceSnap - d
	}

	idx := reconcile.NewIndex(progEdges, targetSnap, nil)
	resolved := idx.Resolve()
	reconcile.RemoveLosers(resolved, progEdges, shard.Tag(0))
}

// formatEdges renders the final progenitor/descendant edge lists as
// "snapshot haloID direction targetHaloID merit nsharedfrac istep" lines,
// the core's hand-off to the serialisation collaborator. Snapshots are
// emitted in ascending order so identical runs produce identical output.
func formatEdges(catalogs map[int]*catalog.PerSnapshotCatalog, progEdges, descEdges map[int][]match.EdgeList) []string {
	lines := []string{"# Snapshot HaloID Direction TargetHaloID Merit NSharedFrac IStep"}

	emit := func(snap int, lists []match.EdgeList, dirName string) {
		c := catalogs[snap]
		for i, el := range lists {
			for _, e := range el.Edges {
				lines = append(lines, fmt.Sprintf("%d %d %s %d %g %g %d",
					snap, c.Halos[i].HaloID, dirName, e.Target, e.Merit, e.NsharedFrac, el.IStep))
			}
		}
	}

	for _, snap := range sortedKeys(progEdges) {
		emit(snap, progEdges[snap], "progenitor")
	}
	for _, snap := range sortedKeys(descEdges) {
		emit(snap, descEdges[snap], "descendant")
	}
	return lines
}

func sortedKeys(m map[int][]match.EdgeList) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
