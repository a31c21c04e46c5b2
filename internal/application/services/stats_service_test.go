package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
	"github.com/bingocast/bingocast-go/internal/infrastructure/messaging"
)

func TestSnapshotRanksByPatternsThenMarks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	episode := env.seedLiveEpisode("ep-1", 500, nil)
	episode.MintedCount = 3
	episode.RevenueCents = 1500

	leader := env.seedCard("card-lead", "ep-1", "viewer-lead", "ev-1")
	leader.Patterns = []bingo.Pattern{bingo.RowPattern(0), bingo.ColumnPattern(1)}
	leader.MarkedSquares = 5

	runnerUp := env.seedCard("card-second", "ep-1", "viewer-second", "ev-1")
	runnerUp.Patterns = []bingo.Pattern{bingo.RowPattern(2)}
	runnerUp.MarkedSquares = 7

	trailing := env.seedCard("card-third", "ep-1", "viewer-third", "ev-1")
	trailing.Patterns = []bingo.Pattern{bingo.RowPattern(1)}
	trailing.MarkedSquares = 3

	snapshot, err := env.stats.Snapshot(ctx, "ep-1")
	require.NoError(t, err)
	require.Equal(t, 3, snapshot.CardsMinted)
	require.Equal(t, int64(1500), snapshot.Revenue)
	require.Len(t, snapshot.Leaderboard, 3)
	require.Equal(t, "card-lead", snapshot.Leaderboard[0].CardID)
	// Equal pattern counts rank by marked squares.
	require.Equal(t, "card-second", snapshot.Leaderboard[1].CardID)
	require.Equal(t, "card-third", snapshot.Leaderboard[2].CardID)
}

func TestSnapshotCapsLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.seedLiveEpisode("ep-1", 0, nil)
	for i := 0; i < 15; i++ {
		env.seedCard(fmt.Sprintf("card-%02d", i), "ep-1", fmt.Sprintf("viewer-%02d", i), "ev-1")
	}

	snapshot, err := env.stats.Snapshot(context.Background(), "ep-1")
	require.NoError(t, err)
	require.Len(t, snapshot.Leaderboard, leaderboardSize)
}

func TestBroadcastUpdateIsAdvisory(t *testing.T) {
	env := newTestEnv(t)

	// Unknown episode: nothing broadcast, nothing panics, no error surfaced.
	env.stats.BroadcastUpdate(context.Background(), "missing")
	require.Empty(t, env.broadcaster.episodeMessages("missing", messaging.TypeStatsUpdate))

	env.seedLiveEpisode("ep-1", 0, nil)
	env.stats.BroadcastUpdate(context.Background(), "ep-1")
	require.Len(t, env.broadcaster.episodeMessages("ep-1", messaging.TypeStatsUpdate), 1)
}
