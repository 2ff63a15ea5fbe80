package seedsearch

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"sirna-offtarget/internal/rna"
	"sirna-offtarget/internal/seedindex"
	"sirna-offtarget/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// guide = "AACGUACGAAAAAAAAAAA" has seed (positions 2..8) "ACGUACG",
// whose target-side revcomp "CGUACGU" is embedded at 0-indexed position
// 30 in the 67-nt transcript built below.
const testGuide = rna.Seq("AACGUACGAAAAAAAAAAA")
const testTarget = "CGUACGU"

func buildTestIndex(t *testing.T, s *store.Store, transcript string) string {
	t.Helper()
	ctx := context.Background()
	if err := s.Put(ctx, store.Transcript{
		TranscriptID: "T1",
		GeneSymbol:   "GENE1",
		Sequence:     transcript,
		Length:       len(transcript),
	}); err != nil {
		t.Fatalf("put transcript: %v", err)
	}
	gen, err := seedindex.Build(ctx, s, nil)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return gen
}

func TestSearchFindsExactSeedHit(t *testing.T) {
	s := openTestStore(t)
	padded := repeatA(30) + testTarget + repeatA(30)
	gen := buildTestIndex(t, s, padded)

	hits, err := Search(context.Background(), s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 hit, got %d: %+v", len(hits), hits)
	}
	h := hits[0]
	if h.TranscriptID != "T1" {
		t.Fatalf("got transcript %q want T1", h.TranscriptID)
	}
	if h.Position != 30 {
		t.Fatalf("got position %d want 30", h.Position)
	}
	if h.Mismatches != 0 || h.Wobbles != 0 {
		t.Fatalf("expected exact match, got mm=%d wob=%d", h.Mismatches, h.Wobbles)
	}
	if h.Coverage != 1.0 {
		t.Fatalf("expected full coverage, got %v", h.Coverage)
	}
	// The seed ("ACGUACG", guide[1:8]) was found at position 30; the
	// full-length window must walk back by (guideLen-8)=11 bases to keep
	// every guide position aligned, i.e. start at 19, not 29.
	if h.AlignStart != 19 || h.AlignEnd != 38 {
		t.Fatalf("got align window [%d,%d) want [19,38)", h.AlignStart, h.AlignEnd)
	}
}

// TestSearchAlignWindowCoversFullGuideLength plants a true full-length
// perfect off-target site (every guide base has a target-side revcomp
// partner, not just the 7nt seed) and checks the reported window extends
// across the whole guide rather than a seed-sized, mis-anchored slice.
func TestSearchAlignWindowCoversFullGuideLength(t *testing.T) {
	s := openTestStore(t)
	target := string(rna.RevComp(testGuide))
	padded := repeatA(40) + target + repeatA(10)
	gen := buildTestIndex(t, s, padded)

	hits, err := Search(context.Background(), s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 hit, got %d: %+v", len(hits), hits)
	}
	h := hits[0]
	wantStart, wantEnd := 40, 40+len(testGuide)
	if h.AlignStart != wantStart || h.AlignEnd != wantEnd {
		t.Fatalf("got align window [%d,%d) want [%d,%d)", h.AlignStart, h.AlignEnd, wantStart, wantEnd)
	}
	if h.Coverage != 1.0 {
		t.Fatalf("expected full coverage, got %v", h.Coverage)
	}
}

func TestSearchNoHitsWhenSeedAbsent(t *testing.T) {
	s := openTestStore(t)
	padded := repeatA(80) // no target seed anywhere
	gen := buildTestIndex(t, s, padded)

	hits, err := Search(context.Background(), s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestSearchCandidateCapReturnsResourceExhausted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	padded := repeatA(30) + testTarget + repeatA(30)

	// Three transcripts each carrying an exact copy of the target seed,
	// so an m=0 search yields 3 postings total.
	for _, id := range []string{"T1", "T2", "T3"} {
		if err := s.Put(ctx, store.Transcript{
			TranscriptID: id,
			GeneSymbol:   "GENE1",
			Sequence:     padded,
			Length:       len(padded),
		}); err != nil {
			t.Fatalf("put transcript %s: %v", id, err)
		}
	}
	gen, err := seedindex.Build(ctx, s, nil)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}

	if _, err := Search(ctx, s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true, CandidateCap: 0}); err != nil {
		t.Fatalf("unexpected error with no cap: %v", err)
	}
	if _, err := Search(ctx, s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true, CandidateCap: -1}); err != nil {
		t.Fatalf("negative cap should be treated as no cap: %v", err)
	}

	_, err = Search(ctx, s, gen, testGuide, Params{MaxSeedMismatches: 0, AllowWobble: true, CandidateCap: 2})
	if err == nil {
		t.Fatal("expected ResourceExhausted error when postings exceed cap")
	}
}

func TestSearchDeduplicatesOverlappingProbes(t *testing.T) {
	s := openTestStore(t)
	padded := repeatA(30) + testTarget + repeatA(30)
	gen := buildTestIndex(t, s, padded)

	hits, err := Search(context.Background(), s, gen, testGuide, Params{MaxSeedMismatches: 2, AllowWobble: true})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	seen := map[string]bool{}
	for _, h := range hits {
		key := h.TranscriptID + ":" + strconv.Itoa(h.Position)
		if seen[key] {
			t.Fatalf("duplicate (transcript,position) pair in results: %+v", h)
		}
		seen[key] = true
	}
}

func repeatA(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A'
	}
	return string(b)
}
