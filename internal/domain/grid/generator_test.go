package grid

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	domainerrors "github.com/bingocast/bingocast-go/internal/domain/errors"
)

func makeEvents(n int) []*bingo.EventDefinition {
	events := make([]*bingo.EventDefinition, n)
	for i := range events {
		events[i] = &bingo.EventDefinition{ID: fmt.Sprintf("ev-%02d", i), Name: fmt.Sprintf("Event %d", i)}
	}
	return events
}

func TestGenerateRejectsEmptyEventList(t *testing.T) {
	_, err := Generate(nil, 5, Options{})
	require.Error(t, err)
	require.Equal(t, domainerrors.KindValidation, domainerrors.KindOf(err))
}

func TestGenerateRejectsDimensionOutOfRange(t *testing.T) {
	events := makeEvents(4)
	for _, n := range []int{0, 1, 2, 8, 100} {
		_, err := Generate(events, n, Options{})
		require.Error(t, err, "dimension %d", n)
		require.Equal(t, domainerrors.KindValidation, domainerrors.KindOf(err))
	}
}

func TestGenerateShapeAndMembership(t *testing.T) {
	events := makeEvents(10)
	known := make(map[string]bool, len(events))
	for _, ev := range events {
		known[ev.ID] = true
	}

	squares, err := Generate(events, 4, Options{})
	require.NoError(t, err)
	require.Len(t, squares, 4)
	for r, row := range squares {
		require.Len(t, row, 4)
		for c, sq := range row {
			require.Equal(t, r, sq.Row)
			require.Equal(t, c, sq.Col)
			require.True(t, known[sq.EventID], "square (%d,%d) references unknown event %q", r, c, sq.EventID)
			require.False(t, sq.Marked)
			require.Nil(t, sq.MarkedAt)
		}
	}
}

func TestGenerateUniqueWhenEventsCoverGrid(t *testing.T) {
	events := makeEvents(30) // > 5*5
	squares, err := Generate(events, 5, Options{})
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, row := range squares {
		for _, sq := range row {
			seen[sq.EventID]++
		}
	}
	for id, count := range seen {
		require.Equal(t, 1, count, "event %s appears %d times", id, count)
	}
}

func TestGenerateReplicatesEvenlyWhenEventsAreFew(t *testing.T) {
	events := makeEvents(2)
	squares, err := Generate(events, 3, Options{})
	require.NoError(t, err)

	// 2 events replicated over 9 squares: 5 copies each in the pool, so
	// no event can dominate beyond its pool share.
	counts := make(map[string]int)
	for _, row := range squares {
		for _, sq := range row {
			counts[sq.EventID]++
		}
	}
	total := 0
	for id, count := range counts {
		require.LessOrEqual(t, count, 5, "event %s over-represented", id)
		total += count
	}
	require.Equal(t, 9, total)
}

func TestGenerateFreeCenterOnOddDimension(t *testing.T) {
	squares, err := Generate(makeEvents(30), 5, Options{FreeCenter: true})
	require.NoError(t, err)

	center := squares[2][2]
	require.Equal(t, bingo.FreeEventID, center.EventID)
	require.True(t, center.Marked)

	for r, row := range squares {
		for c, sq := range row {
			if r == 2 && c == 2 {
				continue
			}
			require.False(t, sq.Marked, "square (%d,%d) should start unmarked", r, c)
		}
	}
}

func TestGenerateFreeCenterIgnoredOnEvenDimension(t *testing.T) {
	squares, err := Generate(makeEvents(20), 4, Options{FreeCenter: true})
	require.NoError(t, err)
	for _, row := range squares {
		for _, sq := range row {
			require.NotEqual(t, bingo.FreeEventID, sq.EventID)
			require.False(t, sq.Marked)
		}
	}
}
