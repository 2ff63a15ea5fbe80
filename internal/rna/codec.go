// Package rna implements the nucleotide codec: validation, normalization,
// 2-bit packing, reverse complement, and 7-mer seed keys.
package rna

import (
	"strings"

	"sirna-offtarget/internal/apperr"
)

// Seq is a normalized RNA sequence over {A,C,G,U}.
type Seq string

const (
	minGuideLen = 19
	maxGuideLen = 23
	seedLen     = 7
)

var complement = [256]byte{
	'A': 'U', 'U': 'A', 'C': 'G', 'G': 'C',
}

var baseCode = [256]int8{}

func init() {
	for i := range baseCode {
		baseCode[i] = -1
	}
	baseCode['A'] = 0
	baseCode['C'] = 1
	baseCode['G'] = 2
	baseCode['U'] = 3
}

var codeBase = [4]byte{'A', 'C', 'G', 'U'}

// Normalize strips whitespace, uppercases, maps T to U, and rejects any
// character outside {A,C,G,U}.
func Normalize(s string) (Seq, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, s)
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "T", "U")
	for i := 0; i < len(s); i++ {
		if baseCode[s[i]] < 0 {
			return "", apperr.New(apperr.InvalidAlphabet, "invalid base %q at position %d", s[i], i)
		}
	}
	return Seq(s), nil
}

// ValidateGuideLength enforces the 19-23 nt guide length constraint.
func ValidateGuideLength(s Seq) error {
	if len(s) < minGuideLen || len(s) > maxGuideLen {
		return apperr.New(apperr.InvalidLength, "guide length %d outside [%d,%d]", len(s), minGuideLen, maxGuideLen)
	}
	return nil
}

// Encode packs s at 2 bits/base into a byte slice; the last byte may be
// partially filled. Returns the packed bytes and the base count.
func Encode(s Seq) ([]byte, int) {
	n := len(s)
	out := make([]byte, (n+3)/4)
	for i := 0; i < n; i++ {
		code := byte(baseCode[s[i]])
		out[i/4] |= code << (uint(i%4) * 2)
	}
	return out, n
}

// Decode unpacks a 2-bit encoded buffer of the given base count back into
// a Seq.
func Decode(packed []byte, n int) Seq {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		code := (packed[i/4] >> (uint(i%4) * 2)) & 0x3
		out[i] = codeBase[code]
	}
	return Seq(out)
}

// RevComp returns the reverse complement of s (A<->U, C<->G), reversed.
func RevComp(s Seq) Seq {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b := s[n-1-i]
		c := complement[b]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return Seq(out)
}

// SeedKey packs a 7-nt window into a 14-bit integer, 2 bits/base,
// little-endian over positions (position 0 occupies the low bits).
func SeedKey(window Seq) (uint16, bool) {
	if len(window) != seedLen {
		return 0, false
	}
	var key uint16
	for i := 0; i < seedLen; i++ {
		code := baseCode[window[i]]
		if code < 0 {
			return 0, false
		}
		key |= uint16(code) << (uint(i) * 2)
	}
	return key, true
}

// SeedKeyToSeq decodes a 14-bit seed key back into its 7-mer sequence.
// Used for diagnostics and IndexCorrupt validation.
func SeedKeyToSeq(key uint16) Seq {
	out := make([]byte, seedLen)
	for i := 0; i < seedLen; i++ {
		code := (key >> (uint(i) * 2)) & 0x3
		out[i] = codeBase[code]
	}
	return Seq(out)
}

// ValidSeedKey reports whether key decodes to a 7-mer of valid bases.
// Since SeedKeyToSeq can only ever emit valid bases by construction, the
// only real corruption signal is bits set above the 14-bit range.
func ValidSeedKey(key uint16) bool {
	return key <= 0x3FFF
}
