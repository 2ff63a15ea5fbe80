// Package thermo computes duplex free energy (ΔG) for a guide/target
// alignment using Turner nearest-neighbor parameters with positional
// weighting and terminal AU penalties (§4.E), generalizing the teacher's
// SantaLucia DNA/DNA NN calculator (core/thermo/nn.go,
// core/thermoaddons/nnparams.go) to RNA/RNA duplexes. Dinucleotide
// values are the canonical Turner 2004 RNA set used by
// original_source/backend/core/analyzer.py.
package thermo

import (
	"math"

	"sirna-offtarget/internal/apperr"
	"sirna-offtarget/internal/rna"
)

// PairType classifies one aligned guide/target position.
type PairType int

const (
	WC PairType = iota
	Wobble
	MM
)

const (
	seedWeight          = 1.5 // guide positions 2..8, 0-indexed [1,7]
	centralWeight       = 1.0 // 0-indexed [8,11]
	supplementaryWeight = 0.8 // 0-indexed [12, L-2]
	terminalAUPenalty   = 0.45
)

// dinucleotide NN free energies (kcal/mol, 37°C), keyed "XY/ZW" where
// X:Z and Y:W are the two base pairs of the stacked doublet, guide
// doublet first. Unknown contexts contribute 0 per §4.E.
var nnDeltaG = map[string]float64{
	"AA/UU": -0.9, "AU/UA": -1.1, "UA/AU": -1.3, "UU/AA": -0.9,
	"GA/CU": -2.1, "UC/AG": -2.1, "CA/GU": -2.1, "UG/AC": -2.1,
	"CU/GA": -2.1, "AG/UC": -2.1, "GU/CA": -2.1, "AC/UG": -2.1,
	"CG/GC": -2.4, "GC/CG": -2.1,
	"GG/CC": -3.3, "CC/GG": -3.3,

	// G:U wobble stacks
	"GU/UG": -1.4, "UG/GU": -1.4,
	"GU/UA": -1.3, "UG/AU": -1.0,
}

// mismatchPenalty is applied, position-independent, for any stack whose
// pairing is not a recognized WC or wobble doublet (§4.E).
const mismatchPenalty = 0.0

func positionWeight(i int) float64 {
	switch {
	case i >= 1 && i <= 7:
		return seedWeight
	case i >= 8 && i <= 11:
		return centralWeight
	default:
		return supplementaryWeight
	}
}

// pairAt classifies guide[i] against targetWindow[i], where targetWindow
// is given 3'->5' (i.e. already reversed relative to transcript storage
// order) so that index i lines up antiparallel with guide[i].
func pairAt(guideBase, targetBase byte) PairType {
	switch {
	case isWC(guideBase, targetBase):
		return WC
	case isWobblePair(guideBase, targetBase):
		return Wobble
	default:
		return MM
	}
}

func isWC(a, b byte) bool {
	switch a {
	case 'A':
		return b == 'U'
	case 'U':
		return b == 'A'
	case 'C':
		return b == 'G'
	case 'G':
		return b == 'C'
	}
	return false
}

func isWobblePair(a, b byte) bool {
	return (a == 'G' && b == 'U') || (a == 'U' && b == 'G')
}

// Result is the scorer's output (§4.E).
type Result struct {
	DeltaG    float64       // unrounded
	Rounded   float64       // rounded to 2 decimal places; the orchestrator filters, scores, ranks and reports this value, not DeltaG
	Paired    []PairType    // per-position classification, len == len(guide)
}

// Score computes ΔG for guide (5'->3') against targetForward, the
// transcript-order slice of equal length starting at the alignment's
// 5' edge (i.e. targetForward[i] is the transcript base antiparallel to
// guide[len-1-i]). Internally the target is read 3'->5' (reversed, not
// complemented) to align position-by-position with the guide, matching
// the antiparallel duplex geometry described in §4.E.
func Score(guide rna.Seq, targetForward rna.Seq) (Result, error) {
	if len(guide) != len(targetForward) {
		return Result{}, apperr.New(apperr.LengthMismatch, "guide len %d != target len %d", len(guide), len(targetForward))
	}
	n := len(guide)
	targetReversed := reverse(targetForward)

	paired := make([]PairType, n)
	for i := 0; i < n; i++ {
		paired[i] = pairAt(guide[i], targetReversed[i])
	}

	var dg float64
	for i := 0; i < n-1; i++ {
		guideDi := string(guide[i : i+2])
		targetDi := string(targetReversed[i : i+2])
		key := guideDi + "/" + targetDi

		var contribution float64
		if e, ok := nnDeltaG[key]; ok {
			contribution = e
		} else {
			contribution = mismatchPenalty
		}
		contribution *= positionWeight(i)

		if paired[i] == Wobble || paired[i+1] == Wobble {
			contribution /= 2
		}
		dg += contribution
	}

	if isAU(guide[0]) {
		dg += terminalAUPenalty
	}
	if isAU(guide[n-1]) {
		dg += terminalAUPenalty
	}

	rounded := math.Round(dg*100) / 100
	return Result{DeltaG: dg, Rounded: rounded, Paired: paired}, nil
}

func isAU(b byte) bool { return b == 'A' || b == 'U' }

// FormatAlignment renders the guide/target duplex as a three-line visual
// alignment, grounded on the original analyzer's _format_alignment: WC
// pairs marked ':', wobble pairs marked '.', mismatches left blank.
func FormatAlignment(guide rna.Seq, targetForward rna.Seq, paired []PairType) string {
	targetReversed := reverse(targetForward)
	marks := make([]byte, len(paired))
	for i, p := range paired {
		switch p {
		case WC:
			marks[i] = ':'
		case Wobble:
			marks[i] = '.'
		default:
			marks[i] = ' '
		}
	}
	return "siRNA:  5'-" + string(guide) + "-3'\n" +
		"           " + string(marks) + "\n" +
		"Target: 3'-" + string(targetReversed) + "-5'"
}

func reverse(s rna.Seq) rna.Seq {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = s[n-1-i]
	}
	return rna.Seq(out)
}
