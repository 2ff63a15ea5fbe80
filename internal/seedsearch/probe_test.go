package seedsearch

import (
	"testing"

	"sirna-offtarget/internal/rna"
)

func guideFor(seed string) rna.Seq {
	// guide positions 2..8 (1-indexed) == guide[1:8] must equal seed;
	// pad the rest with arbitrary valid bases.
	return rna.Seq("A" + seed + "AAAAAAAAAAA")
}

func TestBuildProbesExactMatchIncluded(t *testing.T) {
	guide := guideFor("ACGUACG")
	probes := BuildProbes(guide, 0, true)
	target := rna.RevComp(guide[1:8])

	found := false
	for _, p := range probes {
		if p.Seq == target {
			found = true
			if p.Mismatches != 0 || p.Wobbles != 0 {
				t.Fatalf("perfect match probe should have 0 mismatches/wobbles, got %+v", p)
			}
		}
	}
	if !found {
		t.Fatal("expected perfect target seed among probes")
	}
}

func TestBuildProbesZeroMismatchesOnlyExact(t *testing.T) {
	guide := guideFor("ACGUACG")
	probes := BuildProbes(guide, 0, true)
	if len(probes) != 1 {
		t.Fatalf("m=0 should yield exactly one probe, got %d", len(probes))
	}
}

func TestBuildProbesOneMismatchCount(t *testing.T) {
	guide := guideFor("ACGUACG")
	probes := BuildProbes(guide, 1, false)
	// m=1, no wobble: exact (1) + single-substitution variants (7 positions * 3 alt bases = 21) = 22
	if len(probes) != 22 {
		t.Fatalf("expected 22 probes at m=1 (no wobble), got %d", len(probes))
	}
}

func TestBuildProbesRespectsMaxMismatchCap(t *testing.T) {
	guide := guideFor("ACGUACG")
	for _, mm := range []int{0, 1, 2} {
		probes := BuildProbes(guide, mm, true)
		for _, p := range probes {
			weighted := float64(p.Mismatches) + float64(p.Wobbles)*0.5
			if weighted > float64(mm)+1e-9 {
				t.Fatalf("probe exceeds weighted cap %d: %+v", mm, p)
			}
		}
	}
}

func TestBuildProbesWobbleFoldedIntoMismatchWhenDisallowed(t *testing.T) {
	// Construct a guide/seed such that a single-position wobble variant
	// of the perfect target exists (always true since G/U substitutions
	// are among the 3 alternates tried at every position).
	guide := guideFor("AAAAAAA")
	probes := BuildProbes(guide, 1, false)
	for _, p := range probes {
		if p.Wobbles != 0 {
			t.Fatalf("wobble disallowed: Wobbles must be folded into Mismatches, got %+v", p)
		}
	}
}

func TestBuildProbesAllKeysValid(t *testing.T) {
	guide := guideFor("ACGUACG")
	probes := BuildProbes(guide, 2, true)
	seen := map[uint16]bool{}
	for _, p := range probes {
		if !rna.ValidSeedKey(p.Key) {
			t.Fatalf("invalid seed key for probe %+v", p)
		}
		if seen[p.Key] {
			t.Fatalf("duplicate probe key %d", p.Key)
		}
		seen[p.Key] = true
	}
}
