package bingo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := map[EpisodeStatus]EpisodeStatus{
		EpisodeDraft: EpisodeLive,
		EpisodeLive:  EpisodeEnded,
		EpisodeEnded: EpisodeArchived,
	}
	all := []EpisodeStatus{EpisodeDraft, EpisodeLive, EpisodeEnded, EpisodeArchived}

	for _, from := range all {
		for _, to := range all {
			e := &Episode{Status: from}
			want := allowed[from] == to
			require.Equal(t, want, e.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestAtCapacity(t *testing.T) {
	unlimited := &Episode{MintedCount: 10000}
	require.False(t, unlimited.AtCapacity())

	cap := 3
	e := &Episode{Capacity: &cap, MintedCount: 2}
	require.False(t, e.AtCapacity())

	e.MintedCount = 3
	require.True(t, e.AtCapacity())
}

func TestIsLive(t *testing.T) {
	require.True(t, (&Episode{Status: EpisodeLive}).IsLive())
	require.False(t, (&Episode{Status: EpisodeDraft}).IsLive())
	require.False(t, (&Episode{Status: EpisodeEnded}).IsLive())
}

func TestInCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)
	recent := now.Add(-10 * time.Second)
	old := now.Add(-2 * time.Minute)

	def := &EventDefinition{Config: TriggerConfig{CooldownSeconds: 30}}
	require.False(t, def.InCooldown(now), "never fired")

	def.LastTriggeredAt = &recent
	require.True(t, def.InCooldown(now))

	def.LastTriggeredAt = &old
	require.False(t, def.InCooldown(now))

	noCooldown := &EventDefinition{LastTriggeredAt: &recent}
	require.False(t, noCooldown.InCooldown(now), "zero cooldown never blocks")
}
