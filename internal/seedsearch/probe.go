// Package seedsearch implements candidate seed search (component D):
// probe-set enumeration with mismatch/wobble tolerance, seed-index
// lookups, and edge-case rejection/deduplication, generalizing the
// teacher's Aho-Corasick seed-and-verify approach (core/engine/seed.go)
// from DNA primer seeds to the RNA guide seed defined in §3.
package seedsearch

import "sirna-offtarget/internal/rna"

var bases = [4]byte{'A', 'C', 'G', 'U'}

// Probe is one candidate target-side 7-mer considered during search,
// along with its classification against the perfect target seed.
type Probe struct {
	Seq        rna.Seq
	Key        uint16
	Mismatches int // non-wobble differing positions (or all, if wobble disallowed)
	Wobbles    int // G:U/U:G differing positions, zero when wobble disallowed
}

// isWobble reports whether guideBase (from the guide strand) and
// targetBase (the candidate target-strand base at the same aligned
// position) form a G:U or U:G wobble pair.
func isWobble(guideBase, targetBase byte) bool {
	return (guideBase == 'G' && targetBase == 'U') || (guideBase == 'U' && targetBase == 'G')
}

// BuildProbes enumerates the probe set for a guide seed per §4.D: start
// with the perfect target seed S* = revcomp(guide[1..8]), then all
// single-base substitutions (Hamming distance 1), and — for
// maxSeedMismatches=2 — all two-position substitutions (Hamming distance
// 2). Each probe is classified by comparing it against S* position by
// position and checking guide/target wobble pairing at each differing
// position; probes whose weighted distance exceeds maxSeedMismatches are
// dropped before any index lookup.
func BuildProbes(guide rna.Seq, maxSeedMismatches int, allowWobble bool) []Probe {
	guideSeed := guide[1:8] // positions 2..8, 1-indexed == guide[1:8] 0-indexed
	target := rna.RevComp(guideSeed)

	seen := map[rna.Seq]bool{target: true}
	variants := []rna.Seq{target}

	if maxSeedMismatches >= 1 {
		for _, v := range substitutions(target, seen) {
			variants = append(variants, v)
		}
	}
	if maxSeedMismatches >= 2 {
		// Expand once more over every position, from the base S* (not
		// from the m=1 variants), which yields exactly the two-position
		// substitution set: distinct resulting sequences at Hamming
		// distance exactly 2 from S*.
		for i := 0; i < 7; i++ {
			for j := i + 1; j < 7; j++ {
				for _, bi := range otherBases(target[i]) {
					for _, bj := range otherBases(target[j]) {
						v := withBases(target, i, bi, j, bj)
						if !seen[v] {
							seen[v] = true
							variants = append(variants, v)
						}
					}
				}
			}
		}
	}

	probes := make([]Probe, 0, len(variants))
	for _, v := range variants {
		mm, wob := classify(guideSeed, target, v)
		weighted := float64(mm)
		if allowWobble {
			weighted += float64(wob) * 0.5
		} else {
			weighted += float64(wob)
		}
		if weighted > float64(maxSeedMismatches) {
			continue
		}
		key, ok := rna.SeedKey(v)
		if !ok {
			continue
		}
		p := Probe{Seq: v, Key: key}
		if allowWobble {
			p.Mismatches, p.Wobbles = mm, wob
		} else {
			p.Mismatches, p.Wobbles = mm+wob, 0
		}
		probes = append(probes, p)
	}
	return probes
}

// classify compares candidate against the perfect target seed S*
// (target), returning the count of hard mismatches and the count of
// G:U/U:G wobble mismatches, using guideSeed to determine wobble
// pairing at each differing position.
func classify(guideSeed, target, candidate rna.Seq) (mismatches, wobbles int) {
	for p := 0; p < len(target); p++ {
		if candidate[p] == target[p] {
			continue
		}
		// target = revcomp(guideSeed), so target position p is paired
		// antiparallel with guideSeed[len-1-p].
		if isWobble(guideSeed[len(guideSeed)-1-p], candidate[p]) {
			wobbles++
		} else {
			mismatches++
		}
	}
	return mismatches, wobbles
}

func substitutions(seed rna.Seq, seen map[rna.Seq]bool) []rna.Seq {
	var out []rna.Seq
	for i := 0; i < len(seed); i++ {
		for _, b := range otherBases(seed[i]) {
			v := withBase(seed, i, b)
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func otherBases(b byte) []byte {
	out := make([]byte, 0, 3)
	for _, c := range bases {
		if c != b {
			out = append(out, c)
		}
	}
	return out
}

func withBase(seed rna.Seq, i int, b byte) rna.Seq {
	buf := []byte(seed)
	buf[i] = b
	return rna.Seq(buf)
}

func withBases(seed rna.Seq, i int, bi byte, j int, bj byte) rna.Seq {
	buf := []byte(seed)
	buf[i] = bi
	buf[j] = bj
	return rna.Seq(buf)
}
