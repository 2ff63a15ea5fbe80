package sitecontext

import (
	"math"
	"testing"

	"sirna-offtarget/internal/store"
)

const eps = 1e-9

func TestComputeAUContentUnclamped(t *testing.T) {
	// 61 A's: every base in the AU window is A, so AU content is 100%.
	seq := make([]byte, 200)
	for i := range seq {
		seq[i] = 'A'
	}
	f := Compute(string(seq), len(seq), 100)
	if math.Abs(f.AUContent-100.0) > eps {
		t.Fatalf("got AU content %v want 100", f.AUContent)
	}
}

func TestComputeAUContentClampedAtStart(t *testing.T) {
	seq := make([]byte, 200)
	for i := range seq {
		seq[i] = 'A'
	}
	// position 0: window clamps to [0, 31), still pure A.
	f := Compute(string(seq), len(seq), 0)
	if math.Abs(f.AUContent-100.0) > eps {
		t.Fatalf("got AU content %v want 100", f.AUContent)
	}
}

func TestAccessibilityAllGC(t *testing.T) {
	seq := make([]byte, 200)
	for i := range seq {
		seq[i] = 'G'
	}
	f := Compute(string(seq), len(seq), 100)
	if math.Abs(f.StructureAccessibility-0.0) > eps {
		t.Fatalf("got accessibility %v want 0 (all-GC window)", f.StructureAccessibility)
	}
}

func TestAccessibilityAllAU(t *testing.T) {
	seq := make([]byte, 200)
	for i := range seq {
		seq[i] = 'U'
	}
	f := Compute(string(seq), len(seq), 100)
	if math.Abs(f.StructureAccessibility-1.0) > eps {
		t.Fatalf("got accessibility %v want 1 (all-AU window)", f.StructureAccessibility)
	}
}

func TestAccessibilityInBounds(t *testing.T) {
	seq := "ACGUACGUACGUACGUACGUACGUACGUACGUACGUACGUACGUACGUACGUACGUACGU"
	for pos := 0; pos < len(seq); pos++ {
		f := Compute(seq, len(seq), pos)
		if f.StructureAccessibility < 0 || f.StructureAccessibility > 1 {
			t.Fatalf("pos %d: accessibility %v out of [0,1]", pos, f.StructureAccessibility)
		}
		if f.AUContent < 0 || f.AUContent > 100 {
			t.Fatalf("pos %d: au content %v out of [0,100]", pos, f.AUContent)
		}
	}
}

func TestComputeFromHit(t *testing.T) {
	tr := store.Transcript{Sequence: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", Length: 61}
	f := ComputeFromHit(tr, 30)
	if math.Abs(f.AUContent-100.0) > eps {
		t.Fatalf("got %v want 100", f.AUContent)
	}
}
