// Package orchestrator drives one or many guide analyses end to end
// (component H): seed search, thermodynamic scoring, context analysis,
// and risk aggregation, fanning batches of guides out across a bounded
// worker pool. Generalizes the teacher's internal/app + internal/appcore
// drive-the-pipeline shape (core/oligo-driven per-pair worker fan-out)
// from a CLI's process-exit-code contract into a plain library call, and
// its internal/runutil effective-parallelism sizing into worker-pool
// bounds.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"sirna-offtarget/internal/api"
	"sirna-offtarget/internal/apperr"
	"sirna-offtarget/internal/cache"
	"sirna-offtarget/internal/logging"
	"sirna-offtarget/internal/risk"
	"sirna-offtarget/internal/rna"
	"sirna-offtarget/internal/seedsearch"
	"sirna-offtarget/internal/sitecontext"
	"sirna-offtarget/internal/store"
	"sirna-offtarget/internal/thermo"

	"go.uber.org/zap"
)

// Engine wires the persistent store, a seed index generation, a
// memoization cache, and worker-pool sizing into one reusable analysis
// driver.
type Engine struct {
	Store        *store.Store
	Generation   string
	Workers      int // effective parallelism; <=0 resolves to runtime.NumCPU()
	CandidateCap int // 0 = no cap
	Cache        *cache.Cache
}

// effectiveWorkers mirrors the teacher's "thr := o.Threads; if thr<=0
// thr=runtime.NumCPU()" sizing (internal/appcore/core.go).
func (e *Engine) effectiveWorkers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	return runtime.NumCPU()
}

// AnalyzeOne runs the full B->G pipeline for a single named guide and
// returns its ranked, classified result. Cancellation is observed at the
// three points named in §5: after seed probing, after scoring, before
// final sort (sort happens inside risk.Aggregate, so the check below
// gates entry into that call).
func (e *Engine) AnalyzeOne(ctx context.Context, name string, sequence string, req api.AnalysisRequest) (api.AnalysisResult, error) {
	guideSeq, err := rna.Normalize(sequence)
	if err != nil {
		return api.AnalysisResult{}, err
	}
	if err := rna.ValidateGuideLength(guideSeq); err != nil {
		return api.AnalysisResult{}, err
	}

	key := cache.Key{
		Guide:           string(guideSeq),
		Generation:      e.Generation,
		MaxMismatches:   req.MaxSeedMismatches,
		AllowWobble:     req.AllowWobble,
		EnergyThreshold: req.EnergyThreshold,
		RestrictToUTR3:  req.RestrictToUTR3,
	}
	if e.Cache != nil {
		if cached, ok := e.Cache.Get(key); ok {
			cached.RunID = uuid.NewString()
			return cached, nil
		}
	}

	hits, err := seedsearch.Search(ctx, e.Store, e.Generation, guideSeq, seedsearch.Params{
		MaxSeedMismatches: req.MaxSeedMismatches,
		AllowWobble:       req.AllowWobble,
		CandidateCap:      e.CandidateCap,
		RestrictToUTR3:    req.RestrictToUTR3,
	})
	if err != nil {
		if cerr := checkCancelled(ctx); cerr != nil {
			return api.AnalysisResult{}, cerr
		}
		return api.AnalysisResult{}, err
	}
	if err := checkCancelled(ctx); err != nil {
		return api.AnalysisResult{}, err
	}

	candidates, err := e.score(ctx, guideSeq, hits, req)
	if err != nil {
		return api.AnalysisResult{}, err
	}
	if err := checkCancelled(ctx); err != nil {
		return api.AnalysisResult{}, err
	}

	batch := risk.Aggregate(candidates, req.EnergyThreshold)

	result := api.AnalysisResult{
		RunID:             uuid.NewString(),
		IndexGeneration:   e.Generation,
		SiRNAName:         name,
		Guide:             string(guideSeq),
		Parameters:        req,
		TotalOffTargets:   batch.TotalOffTargets,
		HighRiskCount:     batch.HighRiskCount,
		ModerateRiskCount: batch.ModerateRiskCount,
		LowRiskCount:      batch.LowRiskCount,
		MedianDeltaG:      batch.MedianDeltaG,
		OffTargets:        batch.OffTargets,
	}

	if e.Cache != nil {
		e.Cache.Put(key, result)
	}
	return result, nil
}

// score computes ΔG and context features for every candidate hit,
// fanning the per-hit work out across a bounded worker pool (teacher's
// internal/appcore worker-pool shape, generalized from per-primer-pair
// product emission to per-hit scoring).
func (e *Engine) score(ctx context.Context, guide rna.Seq, hits []seedsearch.CandidateHit, req api.AnalysisRequest) ([]risk.Candidate, error) {
	workers := e.effectiveWorkers()
	if workers > len(hits) {
		workers = len(hits)
	}
	if workers <= 0 {
		return nil, nil
	}

	results := make([]risk.Candidate, len(hits))
	valid := make([]bool, len(hits))
	errs := make(chan error, workers)

	// Index-addressed fan-out: each worker writes directly into
	// results[i], so no output channel or re-ordering step is needed.
	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				select {
				case <-ctx.Done():
					return
				default:
				}
				c, ok, err := e.scoreOne(ctx, guide, hits[i], req)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					continue
				}
				results[i], valid[i] = c, ok
			}
		}()
	}
	for i := range hits {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}

	out := make([]risk.Candidate, 0, len(results))
	for i, ok := range valid {
		if ok {
			out = append(out, results[i])
		}
	}
	return out, nil
}

func (e *Engine) scoreOne(ctx context.Context, guide rna.Seq, hit seedsearch.CandidateHit, req api.AnalysisRequest) (risk.Candidate, bool, error) {
	t, err := e.Store.Get(ctx, hit.TranscriptID)
	if err != nil {
		if apperr.Is(err, apperr.TranscriptMissing) {
			logging.Warn("candidate transcript missing at scoring time", zap.String("transcript_id", hit.TranscriptID))
			return risk.Candidate{}, false, nil
		}
		return risk.Candidate{}, false, err
	}

	targetForward := rna.Seq(t.Sequence[hit.AlignStart:hit.AlignEnd])
	guideAligned := guide
	if len(targetForward) != len(guide) {
		// Coverage floor let a truncated window through; pad comparison to
		// the aligned span only (§3 SUPPLEMENT coverage rule).
		// the guide's 3' end hangs off the transcript's 5' end, and its
		// 5' end off the transcript's 3' end.
		if hit.AlignStart == 0 {
			guideAligned = guide[:len(targetForward)]
		} else {
			guideAligned = guide[len(guide)-len(targetForward):]
		}
	}

	scored, err := thermo.Score(guideAligned, targetForward)
	if err != nil {
		return risk.Candidate{}, false, fmt.Errorf("score %s@%d: %w", hit.TranscriptID, hit.Position, err)
	}

	var features sitecontext.Features
	if req.IncludeStructure {
		features = sitecontext.ComputeFromHit(t, hit.Position)
	}

	conservation := 0.0
	if req.Conservation != nil {
		conservation = req.Conservation[hit.TranscriptID]
	}

	alignment := ""
	if req.IncludeStructure {
		alignment = thermo.FormatAlignment(guideAligned, targetForward, scored.Paired)
	}

	return risk.Candidate{
		TranscriptID: hit.TranscriptID,
		GeneSymbol:   t.GeneSymbol,
		Position:     hit.Position,
		DeltaG:       scored.Rounded,
		SeedMatches:  seedMatches(scored.Paired),
		Mismatches:   hit.Mismatches,
		Wobbles:      hit.Wobbles,
		Features:     features,
		Conservation: conservation,
		Alignment:    alignment,
		Coverage:     hit.Coverage,
	}, true, nil
}

func seedMatches(paired []thermo.PairType) int {
	n := 0
	for _, p := range paired {
		if p == thermo.WC || p == thermo.Wobble {
			n++
		}
	}
	return n
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return apperr.Wrap(apperr.Cancelled, ctx.Err(), "analysis cancelled")
	default:
		return nil
	}
}

// AnalyzeBatch runs AnalyzeOne for every request in reqs, fanning guides
// out across the same worker-pool bound as per-guide scoring (§5:
// "each job is independent and may execute in parallel"). Results are
// returned in request order regardless of completion order.
func (e *Engine) AnalyzeBatch(ctx context.Context, reqs []api.SiRNARequest, params api.AnalysisRequest) ([]api.AnalysisResult, error) {
	workers := e.effectiveWorkers()
	if workers > len(reqs) {
		workers = len(reqs)
	}
	if workers <= 0 {
		return nil, nil
	}

	out := make([]api.AnalysisResult, len(reqs))
	errs := make([]error, len(reqs))

	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				r, err := e.AnalyzeOne(ctx, reqs[i].Name, reqs[i].Sequence, params)
				out[i] = r
				errs[i] = err
			}
		}()
	}
	for i := range reqs {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
