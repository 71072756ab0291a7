// Package merit scores and ranks cross-match candidates: it turns a dense
// share vector into a significance-filtered, descending-merit-ordered
// candidate list.
package merit

import (
	"math"
	"sort"
)

// Kind selects one of the four supported merit formulae.
type Kind int

const (
	Nshared Kind = iota
	NsharedN1
	NsharedN1N2
	Nsharedcombo
)

// Parse converts a config string into a Kind, returning false for anything
// else. Unknown match types are rejected at config-parse time and never
// reach the kernel.
func Parse(s string) (Kind, bool) {
	switch s {
	case "Nshared":
		return Nshared, true
	case "NsharedN1":
		return NsharedN1, true
	case "NsharedN1N2":
		return NsharedN1N2, true
	case "Nsharedcombo":
		return Nsharedcombo, true
	default:
		return 0, false
	}
}

// Value computes the merit of a candidate with n shared particles, source
// size sizeA and target size sizeB under kind.
func Value(kind Kind, n, sizeA, sizeB int) float64 {
	fn, fa, fb := float64(n), float64(sizeA), float64(sizeB)
	switch kind {
	case Nshared:
		return fn
	case NsharedN1:
		return fn / fa
	case NsharedN1N2:
		return fn * fn / (fa * fb)
	case Nsharedcombo:
		return fn/fa + fn*fn/(fa*fb)
	default:
		return 0
	}
}

// Candidate is one significant (target, merit) pair surviving the
// significance cut, plus the raw shared-particle count it was computed from,
// kept so callers can later derive the shared fraction from the true count
// rather than from a merit-kind-dependent formula.
type Candidate struct {
	Target int
	Merit  float64
	Shared int
}

// Rank applies the significance filter and ranks what survives: a target b
// is kept only if share[b] > sigma*sqrt(targetSize[b]); surviving candidates
// are scored under kind and returned in decreasing-merit order, ties broken
// by ascending target ordinal for determinism. buf, if non-nil, is reused as
// scratch to avoid allocating a new slice per source halo. An in-place sort
// of the significant-candidate list stands in for a bounded priority queue;
// the ranked output is identical.
func Rank(kind Kind, share []int, sizeA int, targetSizes []int, sigma float64, buf []Candidate) []Candidate {
	out := buf[:0]

	for b, n := range share {
		if n <= 0 {
			continue
		}
		threshold := sigma * math.Sqrt(float64(targetSizes[b]))
		if float64(n) <= threshold {
			continue
		}
		out = append(out, Candidate{
			Target: b,
			Merit:  Value(kind, n, sizeA, targetSizes[b]),
			Shared: n,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Merit != out[j].Merit {
			return out[i].Merit > out[j].Merit
		}
		return out[i].Target < out[j].Target
	})
	return out
}
