// Package store implements the transcript store (component B) and the
// seed index relation (component C's persistence layer) over a pure-Go
// sqlite database, following PreechaPat-ggtable's database/sql +
// modernc.org/sqlite usage pattern.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"sirna-offtarget/internal/apperr"
	"sirna-offtarget/internal/rna"
)

// Transcript is a persisted transcript record (§3).
type Transcript struct {
	TranscriptID string
	GeneSymbol   string
	GeneID       string
	Sequence     string
	UTR3Start    *int
	UTR3End      *int
	Length       int
}

// Store is the keyed transcript store with O(1) random-access windowing.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	transcript_id TEXT PRIMARY KEY,
	gene_symbol   TEXT,
	gene_id       TEXT,
	sequence      TEXT NOT NULL,
	utr3_start    INTEGER,
	utr3_end      INTEGER,
	length        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS seed_index (
	generation    TEXT NOT NULL,
	seed_7mer     INTEGER NOT NULL,
	transcript_id TEXT NOT NULL REFERENCES transcripts(transcript_id),
	position      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seed_7mer ON seed_index(generation, seed_7mer);
CREATE TABLE IF NOT EXISTS build_status (
	generation       TEXT PRIMARY KEY,
	state            TEXT NOT NULL,
	transcript_count INTEGER NOT NULL,
	seed_count       INTEGER NOT NULL
);
`

// Open creates/connects to the sqlite database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying *sql.DB for components (seedindex, seedsearch)
// that need direct prepared-statement access.
func (s *Store) DB() *sql.DB { return s.db }

// Put inserts or replaces a transcript.
func (s *Store) Put(ctx context.Context, t Transcript) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (transcript_id, gene_symbol, gene_id, sequence, utr3_start, utr3_end, length)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transcript_id) DO UPDATE SET
			gene_symbol=excluded.gene_symbol, gene_id=excluded.gene_id,
			sequence=excluded.sequence, utr3_start=excluded.utr3_start,
			utr3_end=excluded.utr3_end, length=excluded.length
	`, t.TranscriptID, t.GeneSymbol, t.GeneID, t.Sequence, t.UTR3Start, t.UTR3End, t.Length)
	if err != nil {
		return fmt.Errorf("put transcript %s: %w", t.TranscriptID, err)
	}
	return nil
}

// Get retrieves a transcript by id. Returns TranscriptMissing if absent.
func (s *Store) Get(ctx context.Context, id string) (Transcript, error) {
	var t Transcript
	row := s.db.QueryRowContext(ctx, `
		SELECT transcript_id, gene_symbol, gene_id, sequence, utr3_start, utr3_end, length
		FROM transcripts WHERE transcript_id = ?`, id)
	if err := row.Scan(&t.TranscriptID, &t.GeneSymbol, &t.GeneID, &t.Sequence, &t.UTR3Start, &t.UTR3End, &t.Length); err != nil {
		if err == sql.ErrNoRows {
			return Transcript{}, apperr.New(apperr.TranscriptMissing, "transcript %s not found", id)
		}
		return Transcript{}, fmt.Errorf("get transcript %s: %w", id, err)
	}
	return t, nil
}

// Stream yields every transcript via emit, stopping early if emit returns
// an error.
func (s *Store) Stream(ctx context.Context, emit func(Transcript) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transcript_id, gene_symbol, gene_id, sequence, utr3_start, utr3_end, length
		FROM transcripts`)
	if err != nil {
		return fmt.Errorf("stream transcripts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t Transcript
		if err := rows.Scan(&t.TranscriptID, &t.GeneSymbol, &t.GeneID, &t.Sequence, &t.UTR3Start, &t.UTR3End, &t.Length); err != nil {
			return fmt.Errorf("scan transcript: %w", err)
		}
		if err := emit(t); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Window returns the slice of a transcript's sequence within [center-radius,
// center+radius], clamped to sequence bounds, along with the actual
// [start,end) range returned.
func (s *Store) Window(ctx context.Context, id string, center, radius int) (seq string, start, end int, err error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return "", 0, 0, err
	}
	start = center - radius
	if start < 0 {
		start = 0
	}
	end = center + radius + 1
	if end > t.Length {
		end = t.Length
	}
	if start >= end {
		return "", start, start, nil
	}
	return t.Sequence[start:end], start, end, nil
}

// Counts reports total transcript count and total base count, for
// observability (§4.B).
func (s *Store) Counts(ctx context.Context) (transcripts, bases int, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(length), 0) FROM transcripts`)
	if err := row.Scan(&transcripts, &bases); err != nil {
		return 0, 0, fmt.Errorf("count transcripts: %w", err)
	}
	return transcripts, bases, nil
}

// Posting is one seed index entry: the transcript and 0-indexed position
// of a 7-mer occurrence on the target strand (§3).
type Posting struct {
	TranscriptID string
	Position     int
}

// LookupSeed returns every posting for a given 7-mer key within a seed
// index generation. A key that fails rna.ValidSeedKey cannot have been
// produced by BuildProbes/SeedKey, so one reaching here signals a
// corrupted caller or index state; it is reported as IndexCorrupt rather
// than run against the table and silently returning nothing (§7).
func (s *Store) LookupSeed(ctx context.Context, generation string, key uint16) ([]Posting, error) {
	if !rna.ValidSeedKey(key) {
		return nil, apperr.New(apperr.IndexCorrupt, "seed key %d outside valid 14-bit range", key)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT transcript_id, position FROM seed_index
		WHERE generation = ? AND seed_7mer = ?`, generation, key)
	if err != nil {
		return nil, fmt.Errorf("lookup seed %d: %w", key, err)
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.TranscriptID, &p.Position); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
