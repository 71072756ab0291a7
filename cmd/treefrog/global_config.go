package treefrog

import (
	"fmt"

	"github.com/rhyspoulton/treefrog/internal/logging"
	"github.com/rhyspoulton/treefrog/internal/merit"
	"github.com/rhyspoulton/treefrog/internal/parse"
	"github.com/rhyspoulton/treefrog/internal/reconcile"
)

// GlobalConfig holds the run-wide options every treefrog mode shares, read
// from a flat .config file of "Key = value" lines parsed through
// internal/parse.ConfigVars.
type GlobalConfig struct {
	SnapMin, SnapMax int64
	NumSteps         int64
	NumPart          int64

	Mlsig             float64
	MatchTypeName     string
	IlinkName         string
	HaloIDVal         int64
	SnapshotValOffset int64
	HaloIDOffset      int64
	NumProc           int64
	LoggingModeName   string

	matchType merit.Kind
	ilink     reconcile.Policy
	logMode   logging.Level
}

// ExampleConfig returns example text for a treefrog.config file.
func (g *GlobalConfig) ExampleConfig() string {
	return `[treefrog.config]
#####################
## Required Fields ##
#####################

# Index of the first and last snapshots to build trees across (inclusive).
SnapMin = 0
SnapMax = 100

# Total number of particles in the simulation, used to validate particle ids.
NumPart = 1000000000

#####################
## Optional Fields ##
#####################

# Number of look-back steps to attempt per snapshot before giving up on
# a missing link. Defaults to 4 if not set.
# NumSteps = 4

# Minimum number of shared particles, expressed as Mlsig*sqrt(targetSize),
# for a candidate progenitor/descendant to be considered significant.
# Defaults to 0.1 if not set.
# Mlsig = 0.1

# MatchType selects the merit formula used to rank candidates. One of:
# Nshared, NsharedN1, NsharedN1N2, Nsharedcombo. Defaults to NsharedN1N2.
# MatchType = NsharedN1N2

# Ilink selects how multi-step candidate lists are merged. One of:
# MISSING, MERIT. Defaults to MERIT.
# Ilink = MERIT

# HaloIDVal, SnapshotValOffset and HaloIDOffset compose the halo-id rewrite
# haloID += HaloIDVal*(snap+SnapshotValOffset) + HaloIDOffset, applied once
# after ingestion. Default to 1000000000000, 0 and 0.
# HaloIDVal = 1000000000000
# SnapshotValOffset = 0
# HaloIDOffset = 0

# NumProc caps the worker-pool size used by the cross-matching kernel.
# Defaults to the number of available CPUs if unset or <= 0.
# NumProc = 0

# LoggingMode selects diagnostic verbosity: Nil, Standard or Performance.
# Defaults to Standard.
# LoggingMode = Standard`
}

// ReadConfig reads fname into g and validates it. An empty fname leaves
// every optional field at its documented default; SnapMin, SnapMax and
// NumPart are then left at -1, so validation fails.
func (g *GlobalConfig) ReadConfig(fname string) error {
	vars := parse.NewConfigVars("treefrog.config")
	vars.Int(&g.SnapMin, "SnapMin", -1)
	vars.Int(&g.SnapMax, "SnapMax", -1)
	vars.Int(&g.NumPart, "NumPart", -1)
	vars.Int(&g.NumSteps, "NumSteps", 4)
	vars.Float(&g.Mlsig, "Mlsig", 0.1)
	vars.String(&g.MatchTypeName, "MatchType", "NsharedN1N2")
	vars.String(&g.IlinkName, "Ilink", "MERIT")
	vars.Int(&g.HaloIDVal, "HaloIDVal", 1000000000000)
	vars.Int(&g.SnapshotValOffset, "SnapshotValOffset", 0)
	vars.Int(&g.HaloIDOffset, "HaloIDOffset", 0)
	vars.Int(&g.NumProc, "NumProc", 0)
	vars.String(&g.LoggingModeName, "LoggingMode", "Standard")

	if fname != "" {
		if err := parse.ReadConfig(fname, vars); err != nil {
			return err
		}
	}
	return g.validate()
}

// validate checks whether every field of g is valid.
func (g *GlobalConfig) validate() error {
	switch {
	case g.SnapMin < 0:
		return fmt.Errorf("The 'SnapMin' variable must be set to a non-negative value.")
	case g.SnapMax < g.SnapMin:
		return fmt.Errorf("The 'SnapMax' variable is set to %d, but 'SnapMin' is set to %d.", g.SnapMax, g.SnapMin)
	case g.NumPart <= 0:
		return fmt.Errorf("The 'NumPart' variable must be set to a positive value.")
	case g.NumSteps <= 0:
		return fmt.Errorf("The 'NumSteps' variable is set to %d, but must be positive.", g.NumSteps)
	case g.Mlsig < 0:
		return fmt.Errorf("The 'Mlsig' variable is set to %g, but must be non-negative.", g.Mlsig)
	}

	kind, ok := merit.Parse(g.MatchTypeName)
	if !ok {
		return fmt.Errorf("The 'MatchType' variable is set to '%s', which I don't recognize.", g.MatchTypeName)
	}
	g.matchType = kind

	policy, ok := reconcile.Parse(g.IlinkName)
	if !ok {
		return fmt.Errorf("The 'Ilink' variable is set to '%s', which I don't recognize.", g.IlinkName)
	}
	g.ilink = policy

	switch g.LoggingModeName {
	case "Nil":
		g.logMode = logging.Nil
	case "Standard", "":
		g.logMode = logging.Standard
	case "Performance":
		g.logMode = logging.Performance
	default:
		return fmt.Errorf("The 'LoggingMode' variable is set to '%s', which I don't recognize.", g.LoggingModeName)
	}

	return nil
}
