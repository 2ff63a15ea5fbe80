// Package seedindex builds the seed→(transcript,position) index (component
// C) by scanning every transcript for 7-mer occurrences, generalizing the
// teacher's BuildSeeds primer-seed extraction (core/engine/seed.go) from
// anchored primer seeds to an exhaustive sliding-window scan.
package seedindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sirna-offtarget/internal/apperr"
	"sirna-offtarget/internal/logging"
	"sirna-offtarget/internal/rna"
	"sirna-offtarget/internal/store"

	"go.uber.org/zap"
)

const seedLen = 7

// Status mirrors the build_status relation's state machine (§6).
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusBuilding Status = "building"
	StatusReady    Status = "ready"
)

// Progress reports builder progress (§4.C).
type Progress struct {
	TranscriptsProcessed int
	KeysEmitted          int
}

// ProgressFunc is invoked periodically during Build.
type ProgressFunc func(Progress)

const progressInterval = 200

// Build scans every transcript in s, emits one seed_index row per 7-mer
// occurrence, and commits the result under a new generation id. The
// build is atomic: readiness flips from building to ready only after the
// final transaction commits; a crash mid-build leaves state=building,
// which IndexNotReady treats the same as empty.
func Build(ctx context.Context, s *store.Store, onProgress ProgressFunc) (generation string, err error) {
	gen := uuid.NewString()
	db := s.DB()

	if _, err := db.ExecContext(ctx, `
		INSERT INTO build_status (generation, state, transcript_count, seed_count)
		VALUES (?, ?, 0, 0)`, gen, StatusBuilding); err != nil {
		return "", fmt.Errorf("mark building: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin build tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO seed_index (generation, seed_7mer, transcript_id, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var transcripts, keys int
	streamErr := s.Stream(ctx, func(t store.Transcript) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := emitSeedsForTranscript(ctx, stmt, gen, t)
		if err != nil {
			return err
		}
		transcripts++
		keys += n
		if onProgress != nil && transcripts%progressInterval == 0 {
			onProgress(Progress{TranscriptsProcessed: transcripts, KeysEmitted: keys})
		}
		return nil
	})
	if streamErr != nil {
		return "", fmt.Errorf("seed scan: %w", streamErr)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit build: %w", err)
	}

	if _, err = db.ExecContext(ctx, `
		UPDATE build_status SET state=?, transcript_count=?, seed_count=? WHERE generation=?`,
		StatusReady, transcripts, keys, gen); err != nil {
		return "", fmt.Errorf("mark ready: %w", err)
	}

	logging.Info("seed index build complete",
		zap.String("generation", gen),
		zap.Int("transcripts", transcripts),
		zap.String("seeds", humanize.Comma(int64(keys))))

	return gen, nil
}

// emitSeedsForTranscript inserts one row per 7-mer occurrence in the
// transcript's searchable length (§4.C): i = 0..ℓ-7.
func emitSeedsForTranscript(ctx context.Context, stmt *sql.Stmt, generation string, t store.Transcript) (int, error) {
	seq := t.Sequence
	n := len(seq)
	if n < seedLen {
		return 0, nil
	}
	count := 0
	for i := 0; i+seedLen <= n; i++ {
		window, err := rna.Normalize(seq[i : i+seedLen])
		if err != nil {
			continue // non-ACGU window (e.g. ambiguity codes); skip rather than fail the build
		}
		key, ok := rna.SeedKey(window)
		if !ok {
			continue
		}
		if _, err := stmt.ExecContext(ctx, generation, key, t.TranscriptID, i); err != nil {
			return count, fmt.Errorf("insert seed for %s@%d: %w", t.TranscriptID, i, err)
		}
		count++
	}
	return count, nil
}

// GetStatus returns the build_status state for a generation.
func GetStatus(ctx context.Context, s *store.Store, generation string) (Status, error) {
	var state string
	row := s.DB().QueryRowContext(ctx, `SELECT state FROM build_status WHERE generation=?`, generation)
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return "", apperr.New(apperr.IndexNotReady, "unknown generation %s", generation)
		}
		return "", fmt.Errorf("read build status: %w", err)
	}
	return Status(state), nil
}

// RequireReady returns IndexNotReady unless the generation's index has
// committed.
func RequireReady(ctx context.Context, s *store.Store, generation string) error {
	st, err := GetStatus(ctx, s, generation)
	if err != nil {
		return err
	}
	if st != StatusReady {
		return apperr.New(apperr.IndexNotReady, "index generation %s is %s", generation, st)
	}
	return nil
}

// Counts returns the committed transcript/seed counts for a generation.
func Counts(ctx context.Context, s *store.Store, generation string) (transcripts, seeds int, err error) {
	row := s.DB().QueryRowContext(ctx, `SELECT transcript_count, seed_count FROM build_status WHERE generation=?`, generation)
	if err := row.Scan(&transcripts, &seeds); err != nil {
		return 0, 0, fmt.Errorf("read build counts: %w", err)
	}
	return transcripts, seeds, nil
}
