// Package grid provides the pure functions of the card-state engine:
// randomized grid generation and win-pattern detection.
package grid

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
)

// Options controls optional generation behavior.
type Options struct {
	// FreeCenter forces the center square (odd dimensions only) to the
	// sentinel free event, pre-marked.
	FreeCenter bool
}

// newSeededRand returns a math/rand source seeded from crypto/rand.
// Grid contents influence a paid product and must not be guessable.
func newSeededRand() (*rand.Rand, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(b[:])))), nil
}

// Generate builds a randomized n×n grid of squares, each referencing one
// of the supplied event definitions, all unmarked.
//
// With len(events) >= n² each selected event appears exactly once
// (uniform permutation, first n² taken). With fewer events the full list
// is replicated ceil(n²/len) times before shuffling, distributing
// repeats as evenly as possible rather than clustering them.
func Generate(events []*bingo.EventDefinition, n int, opts Options) ([][]bingo.GridSquare, error) {
	if len(events) == 0 {
		return nil, domainerrors.NewValidation("event list must not be empty")
	}
	if n < 3 || n > 7 {
		return nil, domainerrors.NewValidation("grid dimension %d outside [3,7]", n)
	}

	total := n * n
	pool := make([]string, 0, total)
	if len(events) >= total {
		pool = appendEventIDs(pool, events)
	} else {
		copies := (total + len(events) - 1) / len(events)
		for i := 0; i < copies; i++ {
			pool = appendEventIDs(pool, events)
		}
	}

	rng, err := newSeededRand()
	if err != nil {
		return nil, err
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	pool = pool[:total]

	squares := make([][]bingo.GridSquare, n)
	for r := 0; r < n; r++ {
		squares[r] = make([]bingo.GridSquare, n)
		for c := 0; c < n; c++ {
			squares[r][c] = bingo.GridSquare{
				EventID: pool[r*n+c],
				Row:     r,
				Col:     c,
			}
		}
	}

	if opts.FreeCenter && n%2 == 1 {
		center := &squares[n/2][n/2]
		center.EventID = bingo.FreeEventID
		center.Marked = true
	}

	return squares, nil
}

func appendEventIDs(pool []string, events []*bingo.EventDefinition) []string {
	for _, ev := range events {
		pool = append(pool, ev.ID)
	}
	return pool
}
