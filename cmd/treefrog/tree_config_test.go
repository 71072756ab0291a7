package treefrog

import (
	"testing"

	"github.com/rhyspoulton/treefrog/internal/catalog"
	"github.com/rhyspoulton/treefrog/internal/logging"
)

// fakeSnapshots is a minimal in-memory Snapshots implementation for testing
// TreeConfig.Run without any real file I/O collaborator.
type fakeSnapshots struct {
	catalogs    map[int]*catalog.PerSnapshotCatalog
	labelings   map[int]catalog.Labeling
	particleIDs map[int][]int64
	numSnaps    int
}

func (f *fakeSnapshots) NumSnapshots() int { return f.numSnaps }

func (f *fakeSnapshots) Catalog(snap int) (*catalog.PerSnapshotCatalog, error) {
	return f.catalogs[snap], nil
}

func (f *fakeSnapshots) Labeling(snap int) (catalog.Labeling, error) {
	return f.labelings[snap], nil
}

func (f *fakeSnapshots) ParticleIDs(snap int) ([]int64, error) {
	return f.particleIDs[snap], nil
}

// buildSnap makes a trivial one-halo-per-group catalog from a pfof array,
// using ascending particle ids 0..len(pfof)-1 as both the raw ids and the
// dense index (the remap/validate layer is only exercised by id range, not
// by any translation).
func buildSnap(t *testing.T, pfof []int, numGroups int, haloIDBase int64) (*catalog.PerSnapshotCatalog, catalog.Labeling, []int64) {
	t.Helper()
	ids := make([]int64, numGroups)
	for i := range ids {
		ids[i] = haloIDBase + int64(i)
	}
	c, err := catalog.BuildIndex(pfof, numGroups, ids)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	particleIDs := make([]int64, len(pfof))
	for i := range particleIDs {
		particleIDs[i] = int64(i)
	}
	return c, catalog.Labeling(pfof), particleIDs
}

// newTestTreeConfig builds a validated TreeConfig directly, bypassing
// ReadConfig's file-or-error required-field gate (ReadConfig("") always
// fails since SnapMin/SnapMax/NumPart have no usable default; see
// global_config_test.go).
func newTestTreeConfig(t *testing.T, snapMin, snapMax, numPart int64) *TreeConfig {
	t.Helper()
	cfg := &TreeConfig{GlobalConfig: GlobalConfig{
		SnapMin:       snapMin,
		SnapMax:       snapMax,
		NumPart:       numPart,
		NumSteps:      4,
		Mlsig:         0,
		MatchTypeName: "NsharedN1N2",
		IlinkName:     "MERIT",
	}}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.logMode = logging.Nil
	return cfg
}

// TestTreeConfigRunTwoSnapshots exercises the full pipeline across a single
// adjacent snapshot pair: two matching halos at snapshot 0 and 1 should
// produce one progenitor and one descendant edge each.
func TestTreeConfigRunTwoSnapshots(t *testing.T) {
	pfof0 := []int{1, 1, 1, 1, 2, 2, 2, 2}
	pfof1 := []int{1, 1, 1, 1, 2, 2, 2, 2}

	c0, l0, ids0 := buildSnap(t, pfof0, 2, 100)
	c1, l1, ids1 := buildSnap(t, pfof1, 2, 200)

	snaps := &fakeSnapshots{
		numSnaps:    2,
		catalogs:    map[int]*catalog.PerSnapshotCatalog{0: c0, 1: c1},
		labelings:   map[int]catalog.Labeling{0: l0, 1: l1},
		particleIDs: map[int][]int64{0: ids0, 1: ids1},
	}

	cfg := newTestTreeConfig(t, 0, 1, 8)

	lines, err := cfg.Run(snaps)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("lines = %v, want header + at least one edge", lines)
	}
}

func TestTreeConfigRunRejectsParticleIDOutOfRange(t *testing.T) {
	pfof0 := []int{1, 1}
	c0, l0, _ := buildSnap(t, pfof0, 1, 100)

	snaps := &fakeSnapshots{
		numSnaps:    1,
		catalogs:    map[int]*catalog.PerSnapshotCatalog{0: c0},
		labelings:   map[int]catalog.Labeling{0: l0},
		particleIDs: map[int][]int64{0: {0, 999}}, // 999 is out of range for NumPart=2
	}

	cfg := newTestTreeConfig(t, 0, 0, 2)

	if _, err := cfg.Run(snaps); err == nil {
		t.Fatal("expected a range-violation error")
	}
}

// MapParticleID must be applied before the range validation: raw ids that
// are out of range become valid once the mapping translates them down.
func TestTreeConfigRunAppliesParticleIDMapping(t *testing.T) {
	pfof0 := []int{1, 1}
	c0, l0, _ := buildSnap(t, pfof0, 1, 100)

	snaps := &fakeSnapshots{
		numSnaps:    1,
		catalogs:    map[int]*catalog.PerSnapshotCatalog{0: c0},
		labelings:   map[int]catalog.Labeling{0: l0},
		particleIDs: map[int][]int64{0: {1000, 1001}}, // raw ids, out of range for NumPart=2
	}

	cfg := newTestTreeConfig(t, 0, 0, 2)
	cfg.MapParticleID = func(id int64) int64 { return id - 1000 }

	if _, err := cfg.Run(snaps); err != nil {
		t.Fatalf("Run: %v (mapping should have brought ids into range)", err)
	}

	cfg.MapParticleID = nil
	snaps.particleIDs[0] = []int64{1000, 1001}
	if _, err := cfg.Run(snaps); err == nil {
		t.Fatal("expected a range violation without the mapping")
	}
}

func TestTreeConfigRunRejectsSnapMaxOutOfBounds(t *testing.T) {
	snaps := &fakeSnapshots{numSnaps: 1}

	cfg := newTestTreeConfig(t, 0, 5, 10)

	if _, err := cfg.Run(snaps); err == nil {
		t.Fatal("expected an error for SnapMax beyond available snapshots")
	}
}
