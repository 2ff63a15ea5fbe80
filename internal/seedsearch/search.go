package seedsearch

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"sirna-offtarget/internal/apperr"
	"sirna-offtarget/internal/logging"
	"sirna-offtarget/internal/rna"
	"sirna-offtarget/internal/store"

	"go.uber.org/zap"
)

// minCoverage is the §SPEC_FULL 3/SUPPLEMENT threshold: a hit whose
// extended alignment is truncated by a transcript end is still reported
// as long as at least this fraction of the guide length remains
// alignable (mirrors the original analyzer's 80% rule), while the seed
// region itself (the posting) is always fully within bounds by
// construction of the seed index.
const minCoverage = 0.8

// CandidateHit is one seed-search result (§3).
type CandidateHit struct {
	TranscriptID string
	Position     int // 0-indexed seed position on the target strand (guide positions 2..8)
	AlignStart   int // clamped window start for the full guide-length alignment
	AlignEnd     int // clamped window end
	Coverage     float64
	Mismatches   int
	Wobbles      int
}

// Params bounds one search invocation (§4.D).
type Params struct {
	MaxSeedMismatches int // 0, 1, or 2
	AllowWobble       bool
	CandidateCap      int // ResourceExhausted cap, 0 = no cap
	RestrictToUTR3    bool
}

// Search enumerates the probe set for guide, looks up postings in the
// seed index generation, verifies each hit's extended alignment fits the
// transcript (or falls within the coverage floor), and deduplicates
// (transcript_id, position) pairs keeping the minimum (mismatches,
// wobbles) under mismatches-first ordering.
func Search(ctx context.Context, s *store.Store, generation string, guide rna.Seq, p Params) ([]CandidateHit, error) {
	probes := BuildProbes(guide, p.MaxSeedMismatches, p.AllowWobble)
	guideLen := len(guide)

	best := make(map[string]CandidateHit) // key: transcriptID + "\x00" + position
	transcriptLen := make(map[string]int)
	transcriptUTR := make(map[string][2]int)

	total := 0
	for _, probe := range probes {
		postings, err := s.LookupSeed(ctx, generation, probe.Key)
		if err != nil {
			return nil, fmt.Errorf("seed lookup: %w", err)
		}
		for _, posting := range postings {
			total++
			if p.CandidateCap > 0 && total > p.CandidateCap {
				return nil, apperr.New(apperr.ResourceExhausted, "candidate set exceeded cap %d", p.CandidateCap)
			}

			tlen, ok := transcriptLen[posting.TranscriptID]
			if !ok {
				t, err := s.Get(ctx, posting.TranscriptID)
				if err != nil {
					if apperr.Is(err, apperr.TranscriptMissing) {
						logging.Warn("seed posting references missing transcript", zap.String("transcript_id", posting.TranscriptID))
						continue // data integrity warning, analysis continues (§7)
					}
					return nil, err
				}
				tlen = t.Length
				transcriptLen[posting.TranscriptID] = tlen
				start, end := 0, tlen
				if t.UTR3Start != nil && t.UTR3End != nil {
					start, end = *t.UTR3Start, *t.UTR3End
				}
				transcriptUTR[posting.TranscriptID] = [2]int{start, end}
			}

			if p.RestrictToUTR3 {
				bounds := transcriptUTR[posting.TranscriptID]
				if posting.Position < bounds[0] || posting.Position+7 > bounds[1] {
					continue
				}
			}

			// The seed occupies guide positions 2..8 (1-indexed, i.e.
			// guide[1:8]); posting.Position is where its target-side
			// revcomp was found. Extending to the full guide length while
			// keeping that alignment means walking back by (guideLen-8)
			// bases from the seed, not by a fixed 1 (§4.D/§4.E).
			alignStart := posting.Position + 8 - guideLen
			alignEnd := alignStart + guideLen
			clampedStart, clampedEnd := alignStart, alignEnd
			if clampedStart < 0 {
				clampedStart = 0
			}
			if clampedEnd > tlen {
				clampedEnd = tlen
			}
			if clampedEnd <= clampedStart {
				continue
			}
			coverage := float64(clampedEnd-clampedStart) / float64(guideLen)
			if coverage < minCoverage {
				continue
			}

			hit := CandidateHit{
				TranscriptID: posting.TranscriptID,
				Position:     posting.Position,
				AlignStart:   clampedStart,
				AlignEnd:     clampedEnd,
				Coverage:     coverage,
				Mismatches:   probe.Mismatches,
				Wobbles:      probe.Wobbles,
			}

			key := posting.TranscriptID + "\x00" + strconv.Itoa(posting.Position)
			if cur, ok := best[key]; ok {
				if lessCandidate(hit, cur) {
					best[key] = hit
				}
			} else {
				best[key] = hit
			}
		}
	}

	out := make([]CandidateHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TranscriptID != out[j].TranscriptID {
			return out[i].TranscriptID < out[j].TranscriptID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// lessCandidate orders by mismatches first, then wobbles, matching §4.D's
// "minimum (mismatches, wobbles) under the ordering mismatches-first".
func lessCandidate(a, b CandidateHit) bool {
	if a.Mismatches != b.Mismatches {
		return a.Mismatches < b.Mismatches
	}
	return a.Wobbles < b.Wobbles
}
