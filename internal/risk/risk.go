// Package risk implements the composite risk score, classification, and
// batch summary statistics (component G), generalizing the teacher's
// annotation/scoring-combination step (core/engine's hit-to-record
// assembly) to the weighted multi-feature formula below.
package risk

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"sirna-offtarget/internal/api"
	"sirna-offtarget/internal/sitecontext"
)

// Classification buckets (§4.G).
const (
	High     = "high"
	Moderate = "moderate"
	Low      = "low"
)

const (
	dgNormFloor = -25.0
	dgNormSpan  = 15.0
	auThreshold = 60.0

	wDeltaG       = 0.5
	wAU           = 0.2
	wAccess       = 0.2
	wConservation = 0.1

	highCut     = 0.7
	moderateCut = 0.5
)

// Candidate is the input to scoring: a raw hit plus its ΔG and context
// features, before composite risk and classification are applied.
type Candidate struct {
	TranscriptID string
	GeneSymbol   string
	Position     int
	DeltaG       float64
	SeedMatches  int
	Mismatches   int
	Wobbles      int
	Features     sitecontext.Features
	Conservation float64 // [0,1], default 0 if unavailable (§4.G)
	Alignment    string
	Coverage     float64
}

// normalizeDeltaG clamps ΔG into [0,1] per §4.G: dg_norm = clamp((ΔG+25)/15, 0, 1).
func normalizeDeltaG(deltaG float64) float64 {
	n := (deltaG - dgNormFloor) / dgNormSpan
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

// Score computes the composite risk score for one candidate (§4.G).
func Score(c Candidate) float64 {
	dgNorm := normalizeDeltaG(c.DeltaG)
	auScore := 0.0
	if c.Features.AUContent > auThreshold {
		auScore = 1.0
	}
	return (1-dgNorm)*wDeltaG + auScore*wAU + c.Features.StructureAccessibility*wAccess + c.Conservation*wConservation
}

// Classify buckets a risk score per §4.G's thresholds.
func Classify(riskScore float64) string {
	switch {
	case riskScore > highCut:
		return High
	case riskScore >= moderateCut:
		return Moderate
	default:
		return Low
	}
}

// Batch is the full per-guide aggregation result: a sorted, classified
// off-target list plus counts and a ΔG summary.
type Batch struct {
	OffTargets        []api.OffTarget
	TotalOffTargets   int
	HighRiskCount     int
	ModerateRiskCount int
	LowRiskCount      int
	MedianDeltaG      float64
}

// Aggregate scores, filters, classifies, and sorts candidates into the
// final off-target list (§4.G, §3 sort invariants). Candidates with
// ΔG > energyThreshold are dropped before ranking.
func Aggregate(candidates []Candidate, energyThreshold float64) Batch {
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.DeltaG > energyThreshold {
			continue
		}
		filtered = append(filtered, c)
	}

	out := make([]api.OffTarget, 0, len(filtered))
	deltaGs := make([]float64, 0, len(filtered))
	var high, moderate, low int

	for _, c := range filtered {
		riskScore := Score(c)
		class := Classify(riskScore)
		switch class {
		case High:
			high++
		case Moderate:
			moderate++
		default:
			low++
		}
		deltaGs = append(deltaGs, c.DeltaG)
		out = append(out, api.OffTarget{
			TranscriptID:           c.TranscriptID,
			GeneSymbol:             c.GeneSymbol,
			Position:               c.Position,
			DeltaG:                 c.DeltaG,
			RiskScore:              riskScore,
			Classification:         class,
			SeedMatches:            c.SeedMatches,
			Mismatches:             c.Mismatches,
			Wobbles:                c.Wobbles,
			AUContent:              c.Features.AUContent,
			StructureAccessibility: c.Features.StructureAccessibility,
			AlignmentCoverage:      c.Coverage,
			Alignment:              c.Alignment,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		if out[i].DeltaG != out[j].DeltaG {
			return out[i].DeltaG < out[j].DeltaG
		}
		return out[i].TranscriptID < out[j].TranscriptID
	})

	var median float64
	if len(deltaGs) > 0 {
		sorted := append([]float64(nil), deltaGs...)
		sort.Float64s(sorted)
		median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}

	return Batch{
		OffTargets:        out,
		TotalOffTargets:   len(out),
		HighRiskCount:     high,
		ModerateRiskCount: moderate,
		LowRiskCount:      low,
		MedianDeltaG:      median,
	}
}
