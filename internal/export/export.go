// Package export renders an analysis result as CSV or JSON for the job
// runner to consume (§6), following the teacher's writers package split
// between domain data and presentation (internal/writers/doc.go) while
// collapsing its multi-format registry down to the two formats this
// engine's external interface actually names.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"syscall"

	"sirna-offtarget/internal/api"
)

// IsBrokenPipe reports whether err is a broken/closed pipe, so a CLI
// caller can treat early-closed output (e.g. piping into `head`) as a
// clean exit rather than a failure.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

var csvHeader = []string{
	"transcript_id", "gene_symbol", "position",
	"delta_g", "risk_score", "classification",
	"seed_matches", "mismatches", "wobbles",
	"au_content", "structure_accessibility", "alignment_coverage",
}

// WriteCSV writes result's off-target list as a header row plus one row
// per record, with the numeric precision §6 specifies: delta_g to 2
// decimals, risk_score to 3, percentages (au_content) to 2.
func WriteCSV(w io.Writer, result api.AnalysisResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ot := range result.OffTargets {
		row := []string{
			ot.TranscriptID,
			ot.GeneSymbol,
			strconv.Itoa(ot.Position),
			strconv.FormatFloat(ot.DeltaG, 'f', 2, 64),
			strconv.FormatFloat(ot.RiskScore, 'f', 3, 64),
			ot.Classification,
			strconv.Itoa(ot.SeedMatches),
			strconv.Itoa(ot.Mismatches),
			strconv.Itoa(ot.Wobbles),
			strconv.FormatFloat(ot.AUContent, 'f', 2, 64),
			strconv.FormatFloat(ot.StructureAccessibility, 'f', 2, 64),
			strconv.FormatFloat(ot.AlignmentCoverage*100, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", ot.TranscriptID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes result as indented JSON, matching the stable
// `internal/api` schema.
func WriteJSON(w io.Writer, result api.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// WriteJSONL streams a batch of per-guide results as one compact JSON
// document per line, for callers analyzing many siRNAs in one run. The
// encode loop runs on a dedicated goroutine over a buffered writer so a
// slow or early-closed consumer (e.g. piped into `head`) never blocks the
// caller past the channel's buffered window, and a broken pipe on flush
// is treated as a clean stop rather than an error.
func WriteJSONL(w io.Writer, results []api.AnalysisResult) error {
	bufSize := len(results)
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan api.AnalysisResult, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bufio.NewWriterSize(w, 64<<10)
		enc := json.NewEncoder(bw)
		for r := range in {
			if err := enc.Encode(r); err != nil {
				done <- err
				return
			}
		}
		if err := bw.Flush(); err != nil && !IsBrokenPipe(err) {
			done <- err
			return
		}
		done <- nil
	}()

	for _, r := range results {
		in <- r
	}
	close(in)
	return <-done
}
