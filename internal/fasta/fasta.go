// Package fasta streams FASTA transcript records for the ingestion driver
// (§6), adapted from the teacher's core/fasta scanner-based reader: gzip
// transparently, "-" for stdin, cancelable via context.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"sirna-offtarget/internal/apperr"
)

// Record is one parsed FASTA transcript: id, gene symbol/id extracted
// from the header, and the concatenated sequence line.
type Record struct {
	ID         string
	GeneSymbol string
	GeneID     string
	Seq        string
}

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	_, _ = fh.Seek(0, io.SeekStart)
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return multiCloser{gr, []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m multiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// StreamPath opens path (gzip-aware, "-" for stdin) and streams records
// through emit. emit errors stop the scan and are returned to the caller.
func StreamPath(ctx context.Context, path string, emit func(Record) error) error {
	rc, err := openReader(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close()
	return Stream(ctx, rc, emit)
}

// Stream parses FASTA from r and streams records through emit.
func Stream(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, 64*1024*1024)

	var (
		id, gene, geneID string
		seq              strings.Builder
	)

	flush := func() error {
		if id == "" {
			return nil
		}
		rec := Record{ID: id, GeneSymbol: gene, GeneID: geneID, Seq: seq.String()}
		seq.Reset()
		return emit(rec)
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id, gene, geneID = parseHeader(line[1:])
			continue
		}
		line = bytes.TrimSpace(line)
		for _, c := range line {
			if !isAlpha(c) {
				return apperr.New(apperr.InvalidAlphabet, "non-alphabetic base %q in record %s", c, id)
			}
		}
		seq.Write(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// parseHeader splits a FASTA header line into its identifier (first
// whitespace-delimited token) and extracts gene_symbol/gene_id from a
// "symbol="/"gene=" token among the remaining words, per §6.
func parseHeader(hdr []byte) (id, geneSymbol, geneID string) {
	fields := strings.Fields(string(hdr))
	if len(fields) == 0 {
		return "", "", ""
	}
	id = fields[0]
	for _, f := range fields[1:] {
		switch {
		case strings.HasPrefix(f, "gene="):
			geneID = strings.TrimPrefix(f, "gene=")
			if geneSymbol == "" {
				geneSymbol = geneID
			}
		case strings.HasPrefix(f, "symbol="):
			geneSymbol = strings.TrimPrefix(f, "symbol=")
		}
	}
	return id, geneSymbol, geneID
}
