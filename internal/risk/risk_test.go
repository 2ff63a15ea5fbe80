package risk

import (
	"math"
	"testing"

	"sirna-offtarget/internal/sitecontext"
)

const eps = 1e-9

func TestNormalizeDeltaGClamping(t *testing.T) {
	if got := normalizeDeltaG(-40); got != 0 {
		t.Fatalf("very negative deltaG should clamp to 0, got %v", got)
	}
	if got := normalizeDeltaG(10); got != 1 {
		t.Fatalf("very positive deltaG should clamp to 1, got %v", got)
	}
	// dg_norm = (deltaG + 25) / 15
	if got := normalizeDeltaG(-10); math.Abs(got-1.0) > eps {
		t.Fatalf("got %v want 1.0", got)
	}
	if got := normalizeDeltaG(-25); math.Abs(got-0.0) > eps {
		t.Fatalf("got %v want 0.0", got)
	}
}

func TestScoreFormula(t *testing.T) {
	c := Candidate{
		DeltaG:       -25, // dg_norm = 0, so (1-dg_norm)=1
		Features:     sitecontext.Features{AUContent: 70, StructureAccessibility: 0.5},
		Conservation: 0.2,
	}
	// risk = 1*0.5 + 1*0.2 + 0.5*0.2 + 0.2*0.1 = 0.5+0.2+0.1+0.02 = 0.82
	got := Score(c)
	want := 0.82
	if math.Abs(got-want) > eps {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestScoreAUThresholdIsStrictlyGreater(t *testing.T) {
	c60 := Candidate{DeltaG: -25, Features: sitecontext.Features{AUContent: 60}}
	c60p := Candidate{DeltaG: -25, Features: sitecontext.Features{AUContent: 60.01}}
	if Score(c60) >= Score(c60p) {
		t.Fatalf("AU=60.01 must score higher than AU=60 (strict > threshold): %v vs %v", Score(c60), Score(c60p))
	}
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.71, High},
		{0.7, Moderate},
		{0.5, Moderate},
		{0.49, Low},
	}
	for _, tc := range tests {
		if got := Classify(tc.score); got != tc.want {
			t.Fatalf("Classify(%v) = %v want %v", tc.score, got, tc.want)
		}
	}
}

func TestAggregateFiltersByEnergyThreshold(t *testing.T) {
	candidates := []Candidate{
		{TranscriptID: "T1", DeltaG: -20},
		{TranscriptID: "T2", DeltaG: -5}, // above threshold, dropped
	}
	batch := Aggregate(candidates, -10.0)
	if batch.TotalOffTargets != 1 {
		t.Fatalf("expected 1 off-target after filter, got %d", batch.TotalOffTargets)
	}
	if batch.OffTargets[0].TranscriptID != "T1" {
		t.Fatalf("expected T1 to survive, got %s", batch.OffTargets[0].TranscriptID)
	}
}

func TestAggregateSortOrder(t *testing.T) {
	candidates := []Candidate{
		{TranscriptID: "B", DeltaG: -25, Features: sitecontext.Features{AUContent: 0}},                 // low risk
		{TranscriptID: "A", DeltaG: -25, Features: sitecontext.Features{AUContent: 100, StructureAccessibility: 1}}, // high risk
		{TranscriptID: "C", DeltaG: -25, Features: sitecontext.Features{AUContent: 100, StructureAccessibility: 1}}, // tie with A on risk/deltaG, broken by transcript_id
	}
	batch := Aggregate(candidates, 0)
	if len(batch.OffTargets) != 3 {
		t.Fatalf("expected 3 off-targets, got %d", len(batch.OffTargets))
	}
	// Descending risk_score first.
	for i := 1; i < len(batch.OffTargets); i++ {
		if batch.OffTargets[i-1].RiskScore < batch.OffTargets[i].RiskScore {
			t.Fatalf("expected non-increasing risk_score, got %v then %v", batch.OffTargets[i-1].RiskScore, batch.OffTargets[i].RiskScore)
		}
	}
	// A and C tie on risk_score and delta_g; transcript_id ascending breaks the tie.
	if batch.OffTargets[0].TranscriptID != "A" || batch.OffTargets[1].TranscriptID != "C" {
		t.Fatalf("expected A before C on tie-break, got %s then %s", batch.OffTargets[0].TranscriptID, batch.OffTargets[1].TranscriptID)
	}
	if batch.OffTargets[2].TranscriptID != "B" {
		t.Fatalf("expected B last (lowest risk), got %s", batch.OffTargets[2].TranscriptID)
	}
}

func TestAggregateCountsByClass(t *testing.T) {
	candidates := []Candidate{
		{TranscriptID: "T1", DeltaG: -25, Features: sitecontext.Features{AUContent: 100, StructureAccessibility: 1}}, // risk 0.5+0.2+0.2=0.9 high
		{TranscriptID: "T2", DeltaG: -17.5},                                                                          // dg_norm=0.5, (1-.5)*0.5=0.25, risk=0.25 low
	}
	batch := Aggregate(candidates, 0)
	if batch.HighRiskCount != 1 || batch.LowRiskCount != 1 || batch.ModerateRiskCount != 0 {
		t.Fatalf("unexpected counts: high=%d moderate=%d low=%d", batch.HighRiskCount, batch.ModerateRiskCount, batch.LowRiskCount)
	}
}
