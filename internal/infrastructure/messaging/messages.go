package messaging

import (
	"time"

	"github.com/bingocast/bingocast-go/internal/domain/entities/bingo"
)

// Message is one server→client frame. Type selects the payload shape.
type Message struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// Server→client message types.
const (
	TypeEpisodeState       = "episode:state"
	TypeEventFired         = "event:fired"
	TypeCardUpdated        = "card:updated"
	TypeStatsUpdate        = "stats:update"
	TypeCardFinalized      = "card:finalized"
	TypePaymentCompensated = "payment:compensated"
)

// Client→server message types. Episode membership is established by the
// connection URL, so cards are the only client-side subscription.
const (
	TypeSubscribeCard = "subscribe:card"
)

// EpisodeStatePayload announces an episode lifecycle change.
type EpisodeStatePayload struct {
	EpisodeID string              `json:"episodeId"`
	Status    bingo.EpisodeStatus `json:"status"`
}

// EventFiredPayload announces one event firing to the episode room.
type EventFiredPayload struct {
	EpisodeID string    `json:"episodeId"`
	EventID   string    `json:"eventId"`
	EventName string    `json:"eventName"`
	Timestamp time.Time `json:"timestamp"`
}

// CardUpdatedPayload carries one card's incremental state after a fire.
type CardUpdatedPayload struct {
	CardID        string          `json:"cardId"`
	MarkedSquares int             `json:"markedSquares"`
	NewPatterns   []bingo.Pattern `json:"newPatterns"`
	Patterns      []bingo.Pattern `json:"patterns"`
}

// StatsUpdatePayload carries episode-level running totals.
type StatsUpdatePayload struct {
	EpisodeID   string             `json:"episodeId"`
	CardsMinted int                `json:"cardsMinted"`
	Revenue     int64              `json:"revenue"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// LeaderboardEntry is one row of the episode leaderboard.
type LeaderboardEntry struct {
	HolderID      string `json:"holderId"`
	CardID        string `json:"cardId"`
	Patterns      int    `json:"patterns"`
	MarkedSquares int    `json:"markedSquares"`
}

// CardFinalizedPayload carries a card's final state on episode end.
type CardFinalizedPayload struct {
	CardID     string      `json:"cardId"`
	FinalState *bingo.Card `json:"finalState"`
}

// PaymentCompensatedPayload notifies a user of a refunded entry attempt.
type PaymentCompensatedPayload struct {
	Reason          string `json:"reason"`
	CompensationRef string `json:"compensationRef"`
	EpisodeID       string `json:"episodeId"`
}

// NewMessage stamps a message with the current time.
func NewMessage(msgType string, data any) Message {
	return Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ClientMessage is one client→server frame.
type ClientMessage struct {
	Type      string `json:"type"`
	EpisodeID string `json:"episodeId,omitempty"`
	CardID    string `json:"cardId,omitempty"`
}
