// Package bingo defines the application's core domain entities.
package bingo

import "time"

// EpisodeStatus is the lifecycle state of an episode.
type EpisodeStatus string

const (
	EpisodeDraft    EpisodeStatus = "draft"
	EpisodeLive     EpisodeStatus = "live"
	EpisodeEnded    EpisodeStatus = "ended"
	EpisodeArchived EpisodeStatus = "archived"
)

// TriggerKind identifies how an event definition can be fired.
type TriggerKind string

const (
	TriggerManual         TriggerKind = "manual"
	TriggerExternalSignal TriggerKind = "external-signal"
	TriggerChatKeyword    TriggerKind = "chat-keyword"
	TriggerCustomWebhook  TriggerKind = "custom-webhook"
)

// MatchMode selects how keyword rules compare free-text input.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
	MatchPrefix   MatchMode = "prefix"
	MatchPattern  MatchMode = "pattern"
)

// Episode is the aggregate root for one live session.
type Episode struct {
	ID            string        `json:"id"`
	BroadcasterID string        `json:"broadcasterId"`
	Title         string        `json:"title"`
	Status        EpisodeStatus `json:"status"`
	GridDimension int           `json:"gridDimension"`
	EntryPrice    int64         `json:"entryPrice"` // cents, 0 = free
	Capacity      *int          `json:"capacity,omitempty"`
	MintedCount   int           `json:"mintedCount"`
	RevenueCents  int64         `json:"revenue"`
	FreeCenter    bool          `json:"freeCenter"`
	CreatedAt     time.Time     `json:"createdAt"`
	StartedAt     *time.Time    `json:"startedAt,omitempty"`
	EndedAt       *time.Time    `json:"endedAt,omitempty"`
}

// IsLive reports whether the episode is accepting fires and entries.
func (e *Episode) IsLive() bool { return e.Status == EpisodeLive }

// AtCapacity reports whether no further cards may be minted.
func (e *Episode) AtCapacity() bool {
	return e.Capacity != nil && e.MintedCount >= *e.Capacity
}

// CanTransitionTo validates a lifecycle transition.
func (e *Episode) CanTransitionTo(next EpisodeStatus) bool {
	switch e.Status {
	case EpisodeDraft:
		return next == EpisodeLive
	case EpisodeLive:
		return next == EpisodeEnded
	case EpisodeEnded:
		return next == EpisodeArchived
	default:
		return false
	}
}

// TriggerConfig is the kind-specific matching configuration of an event
// definition. Only the fields relevant to the kind are populated.
type TriggerConfig struct {
	SignalType      string    `json:"signalType,omitempty"` // external-signal: platform event type
	Threshold       int       `json:"threshold,omitempty"`  // external-signal: minimum amount
	Keyword         string    `json:"keyword,omitempty"`    // chat-keyword / custom-webhook
	MatchMode       MatchMode `json:"matchMode,omitempty"`
	CaseSensitive   bool      `json:"caseSensitive,omitempty"`
	CooldownSeconds int       `json:"cooldownSeconds,omitempty"`
}

// EventDefinition is one triggerable event within an episode. Immutable
// once the episode is live except for the fire-related fields.
type EventDefinition struct {
	ID              string        `json:"id"`
	EpisodeID       string        `json:"episodeId"`
	Name            string        `json:"name"`
	Icon            string        `json:"icon,omitempty"`
	Kind            TriggerKind   `json:"kind"`
	Config          TriggerConfig `json:"config"`
	FiredAt         *time.Time    `json:"firedAt,omitempty"`
	FiredCount      int           `json:"firedCount"`
	LastTriggeredAt *time.Time    `json:"lastTriggeredAt,omitempty"` // cooldown bookkeeping
}

// InCooldown reports whether a keyword rule fired too recently to fire again.
func (d *EventDefinition) InCooldown(now time.Time) bool {
	if d.Config.CooldownSeconds <= 0 || d.LastTriggeredAt == nil {
		return false
	}
	return now.Sub(*d.LastTriggeredAt) < time.Duration(d.Config.CooldownSeconds)*time.Second
}
