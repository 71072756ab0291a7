// Package reconcile merges candidate lists produced at different look-back
// distances and resolves the case of one progenitor being claimed as the
// best match by several descendants.
package reconcile

import (
	"log"
	"time"

	"github.com/rhyspoulton/treefrog/internal/logging"
	"github.com/rhyspoulton/treefrog/internal/match"
)

// Policy selects how a reference candidate list is updated by a temporary
// one produced at a larger look-back distance.
type Policy int

const (
	// Missing only fills gaps: replace only if reference is empty and
	// temporary is not.
	Missing Policy = iota
	// Merit fills gaps AND upgrades weaker links: replace whenever
	// temporary's best edge outranks reference's.
	Merit
)

// Parse converts a config string into a Policy, returning false for
// anything else. Unknown policies are rejected at config-parse time.
func Parse(s string) (Policy, bool) {
	switch s {
	case "MISSING":
		return Missing, true
	case "MERIT":
		return Merit, true
	default:
		return 0, false
	}
}

// mergeOne merges one source's temporary list into its reference list.
// Replacement is wholesale, including IStep.
func mergeOne(policy Policy, reference, temporary match.EdgeList) match.EdgeList {
	switch {
	case len(reference.Edges) == 0 && len(temporary.Edges) > 0:
		return temporary
	case policy == Merit && len(reference.Edges) > 0 && len(temporary.Edges) > 0:
		if temporary.Edges[0].Merit > reference.Edges[0].Merit {
			return temporary
		}
	}
	return reference
}

// MergeSteps folds a sequence of per-step candidate lists for the same
// source universe (temporaries, ordered by increasing look-back distance)
// into reference under policy, left to right. It mutates and returns
// reference.
func MergeSteps(policy Policy, reference []match.EdgeList, temporaries [][]match.EdgeList, level logging.Level) []match.EdgeList {
	var start time.Time
	if level == logging.Performance {
		start = time.Now()
	}

	for _, temp := range temporaries {
		for i := range reference {
			reference[i] = mergeOne(policy, reference[i], temp[i])
		}
	}

	if level == logging.Performance {
		log.Printf("reconcile: merged %d step(s) in %s", len(temporaries), time.Since(start))
	}
	return reference
}
