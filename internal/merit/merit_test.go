package merit

import (
	"math"
	"testing"
)

func TestValue(t *testing.T) {
	cases := []struct {
		kind            Kind
		n, sizeA, sizeB int
		want            float64
	}{
		{Nshared, 4, 4, 4, 4},
		{NsharedN1, 4, 4, 4, 1},
		{NsharedN1N2, 4, 4, 4, 1},
		{Nsharedcombo, 4, 4, 4, 2},
		{NsharedN1N2, 1, 4, 4, 1.0 / 16.0},
	}
	for _, c := range cases {
		got := Value(c.kind, c.n, c.sizeA, c.sizeB)
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Value(%v, %d, %d, %d) = %g, want %g", c.kind, c.n, c.sizeA, c.sizeB, got, c.want)
		}
	}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"Nshared", "NsharedN1", "NsharedN1N2", "Nsharedcombo"} {
		if _, ok := Parse(name); !ok {
			t.Errorf("Parse(%q) failed, want ok", name)
		}
	}
	if _, ok := Parse("bogus"); ok {
		t.Errorf("Parse(bogus) succeeded, want failure")
	}
}

// A single shared particle against a target of size 1 must not survive a
// sigma=2 cut (1 > 2*sqrt(1) is false).
func TestRankSignificanceCut(t *testing.T) {
	share := []int{1}
	targetSizes := []int{1}
	cands := Rank(NsharedN1N2, share, 1, targetSizes, 2.0, nil)
	if len(cands) != 0 {
		t.Fatalf("Rank returned %d candidates, want 0", len(cands))
	}
}

// TestRankOrdering verifies descending merit order and the deterministic
// ascending-ordinal tie-break for equal merit values.
func TestRankOrdering(t *testing.T) {
	share := []int{2, 2, 5}
	targetSizes := []int{4, 4, 10}
	cands := Rank(NsharedN1N2, share, 4, targetSizes, 0, nil)
	if len(cands) != 3 {
		t.Fatalf("Rank returned %d candidates, want 3", len(cands))
	}
	for i := 1; i < len(cands); i++ {
		if cands[i-1].Merit < cands[i].Merit {
			t.Fatalf("Rank not in descending merit order: %+v", cands)
		}
	}
	// targets 0 and 1 have identical merit (2^2/(4*4)); ascending-ordinal
	// tie-break means target 0 must precede target 1.
	idx0, idx1 := -1, -1
	for i, c := range cands {
		if c.Target == 0 {
			idx0 = i
		}
		if c.Target == 1 {
			idx1 = i
		}
	}
	if idx0 == -1 || idx1 == -1 {
		t.Fatalf("expected targets 0 and 1 present, got %+v", cands)
	}
	if idx0 > idx1 {
		t.Errorf("tie-break violated: target 0 at %d, target 1 at %d, want 0 before 1", idx0, idx1)
	}
}

func TestRankZeroShareExcluded(t *testing.T) {
	share := []int{0, 3}
	targetSizes := []int{4, 4}
	cands := Rank(Nshared, share, 4, targetSizes, 0, nil)
	if len(cands) != 1 || cands[0].Target != 1 {
		t.Fatalf("Rank = %+v, want single candidate at target 1", cands)
	}
}
