package bingo

import "time"

// FiredEvent is the immutable audit record of one event firing and its
// blast radius. Append-only.
type FiredEvent struct {
	ID            string         `json:"id"`
	EpisodeID     string         `json:"episodeId"`
	EventID       string         `json:"eventDefinitionId"`
	FiredAt       time.Time      `json:"firedAt"`
	FiredBy       string         `json:"firedBy"` // "manual" or automation source
	CardsAffected int            `json:"cardsAffected"`
	Payload       map[string]any `json:"triggerPayload,omitempty"`
}
