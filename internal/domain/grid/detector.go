package grid

import "github.com/bingocast/bingocast-go/internal/domain/entities/bingo"

// DetectPatterns returns the set of completed win patterns for the given
// grid state: fully marked rows, columns, both diagonals, and blackout
// when every square is marked (in addition to the line patterns).
//
// It is a pure function of the marked state. Cells never unmark, so full
// recomputation from current state is always correct and is preferred
// over incremental tracking.
func DetectPatterns(squares [][]bingo.GridSquare) []bingo.Pattern {
	n := len(squares)
	if n == 0 {
		return nil
	}

	var patterns []bingo.Pattern
	allMarked := true

	for r := 0; r < n; r++ {
		rowDone := true
		for c := 0; c < n; c++ {
			if !squares[r][c].Marked {
				rowDone = false
				allMarked = false
			}
		}
		if rowDone {
			patterns = append(patterns, bingo.RowPattern(r))
		}
	}

	for c := 0; c < n; c++ {
		colDone := true
		for r := 0; r < n; r++ {
			if !squares[r][c].Marked {
				colDone = false
			}
		}
		if colDone {
			patterns = append(patterns, bingo.ColumnPattern(c))
		}
	}

	mainDone, antiDone := true, true
	for i := 0; i < n; i++ {
		if !squares[i][i].Marked {
			mainDone = false
		}
		if !squares[i][n-1-i].Marked {
			antiDone = false
		}
	}
	if mainDone {
		patterns = append(patterns, bingo.DiagonalPattern(bingo.DiagonalMain))
	}
	if antiDone {
		patterns = append(patterns, bingo.DiagonalPattern(bingo.DiagonalAnti))
	}

	if allMarked {
		patterns = append(patterns, bingo.BlackoutPattern())
	}

	return patterns
}
