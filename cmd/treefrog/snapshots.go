package treefrog

import "github.com/rhyspoulton/treefrog/internal/catalog"

// Snapshots is the ingestion boundary: the treefrog core never parses a
// halo catalog or a particle snapshot file itself, it only asks its caller
// for the already-ingested PerSnapshotCatalog and particle Labeling at a
// given global snapshot index.
type Snapshots interface {
	// NumSnapshots returns the total number of snapshots in the run.
	NumSnapshots() int
	// Catalog returns the halo catalog at snapshot snap.
	Catalog(snap int) (*catalog.PerSnapshotCatalog, error)
	// Labeling returns the particle-index -> halo-ordinal+1 labeling (pfof)
	// for snapshot snap.
	Labeling(snap int) (catalog.Labeling, error)
	// ParticleIDs returns the raw particle ids present at snapshot snap,
	// for IDValidator's range check.
	ParticleIDs(snap int) ([]int64, error)
}
