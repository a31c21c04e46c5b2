package bingo

import (
	"encoding/json"
	"fmt"
)

// PatternType tags the closed set of winning configurations.
type PatternType string

const (
	PatternRow      PatternType = "row"
	PatternColumn   PatternType = "column"
	PatternDiagonal PatternType = "diagonal"
	PatternBlackout PatternType = "blackout"
)

// DiagonalKind distinguishes the two diagonals.
type DiagonalKind string

const (
	DiagonalMain DiagonalKind = "main"
	DiagonalAnti DiagonalKind = "anti"
)

// Pattern is a tagged variant over the winning configurations. Index is
// meaningful for row/column, Diagonal for diagonal; blackout carries
// nothing. Patterns are derived from grid state and never persisted
// independently of the card snapshot that produced them.
type Pattern struct {
	Type     PatternType  `json:"type"`
	Index    int          `json:"index,omitempty"`
	Diagonal DiagonalKind `json:"diagonal,omitempty"`
}

// RowPattern returns the row pattern variant for index r.
func RowPattern(r int) Pattern { return Pattern{Type: PatternRow, Index: r} }

// ColumnPattern returns the column pattern variant for index c.
func ColumnPattern(c int) Pattern { return Pattern{Type: PatternColumn, Index: c} }

// DiagonalPattern returns the diagonal pattern variant.
func DiagonalPattern(kind DiagonalKind) Pattern {
	return Pattern{Type: PatternDiagonal, Diagonal: kind}
}

// BlackoutPattern returns the blackout variant.
func BlackoutPattern() Pattern { return Pattern{Type: PatternBlackout} }

// Key returns a stable identity for set comparisons.
func (p Pattern) Key() string {
	switch p.Type {
	case PatternRow, PatternColumn:
		return fmt.Sprintf("%s:%d", p.Type, p.Index)
	case PatternDiagonal:
		return fmt.Sprintf("%s:%s", p.Type, p.Diagonal)
	default:
		return string(p.Type)
	}
}

// UnmarshalJSON rejects anything outside the closed variant set at the
// boundary instead of carrying untyped payloads.
func (p *Pattern) UnmarshalJSON(data []byte) error {
	type raw Pattern
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	switch r.Type {
	case PatternRow, PatternColumn:
		if r.Index < 0 {
			return fmt.Errorf("pattern %s: negative index %d", r.Type, r.Index)
		}
	case PatternDiagonal:
		if r.Diagonal != DiagonalMain && r.Diagonal != DiagonalAnti {
			return fmt.Errorf("pattern diagonal: unknown kind %q", r.Diagonal)
		}
	case PatternBlackout:
	default:
		return fmt.Errorf("unknown pattern type %q", r.Type)
	}
	*p = Pattern(r)
	return nil
}

// DiffPatterns returns the patterns in after that are absent from
// before. Cells never unmark, so after is always a superset.
func DiffPatterns(before, after []Pattern) []Pattern {
	seen := make(map[string]bool, len(before))
	for _, p := range before {
		seen[p.Key()] = true
	}
	var fresh []Pattern
	for _, p := range after {
		if !seen[p.Key()] {
			fresh = append(fresh, p)
		}
	}
	return fresh
}
