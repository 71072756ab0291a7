// Package treefrog is the CLI driver for the merger-tree core: it wires
// catalog indexing, cross-matching, exclusivity filtering and multi-step
// reconciliation into one per-snapshot, per-look-back-step pipeline behind
// a Mode-driven, .config-file CLI.
package treefrog

// Mode is the shape every treefrog subcommand implements: build an example
// config file, read a real one, validate it, and run.
type Mode interface {
	// ExampleConfig returns the text of an example .config file for this
	// mode.
	ExampleConfig() string
	// ReadConfig reads fname into the mode's configuration and validates
	// it. An empty fname leaves the mode at its documented defaults.
	ReadConfig(fname string) error
	// Run executes the mode against the snapshots provided by snaps and
	// returns one formatted output line per edge, ready to be written to
	// stdout or piped into the next mode.
	Run(snaps Snapshots) ([]string, error)
}

var _ Mode = (*TreeConfig)(nil)
