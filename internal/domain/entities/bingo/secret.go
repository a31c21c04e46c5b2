package bingo

import "time"

// TriggerSecret is a per-subscription shared secret used to verify
// externally-sourced signals. Cached in process memory, backed by
// durable storage for restart survival.
type TriggerSecret struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`  // "platform", "custom", ...
	EpisodeID      string     `json:"episodeId"` // owning episode, for end-of-episode teardown
	SubscriptionID string     `json:"subscriptionId"`
	Secret         string     `json:"-"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"createdAt"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
}
