package bingo

import "time"

// CardStatus is the lifecycle state of a viewer's card.
type CardStatus string

const (
	CardActive    CardStatus = "active"
	CardFinalized CardStatus = "finalized"
)

// FreeEventID is the sentinel event id assigned to a pre-marked center
// square on odd-dimension grids.
const FreeEventID = "free"

// GridSquare is one cell of a card, bound to a specific event at mint
// time. Only Marked/MarkedAt ever mutate, and only false -> true.
type GridSquare struct {
	EventID  string     `json:"eventId"`
	Row      int        `json:"row"`
	Col      int        `json:"col"`
	Marked   bool       `json:"marked"`
	MarkedAt *time.Time `json:"markedAt,omitempty"`
}

// Card is one viewer's entry into an episode. The grid is immutable in
// shape and event assignment once created.
type Card struct {
	ID            string         `json:"id"`
	EpisodeID     string         `json:"episodeId"`
	HolderID      string         `json:"holderId"`
	CardNumber    int            `json:"cardNumber"`
	Grid          [][]GridSquare `json:"grid"` // row-major N×N
	MarkedSquares int            `json:"markedSquares"`
	Patterns      []Pattern      `json:"patterns"`
	Status        CardStatus     `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Dimension returns the grid dimension N.
func (c *Card) Dimension() int { return len(c.Grid) }

// MarkMatching marks every unmarked square bound to eventID with the
// given timestamp and returns how many squares changed. A zero return
// means the fire is a no-op for this card.
func (c *Card) MarkMatching(eventID string, at time.Time) int {
	changed := 0
	for r := range c.Grid {
		for col := range c.Grid[r] {
			sq := &c.Grid[r][col]
			if sq.EventID == eventID && !sq.Marked {
				sq.Marked = true
				t := at
				sq.MarkedAt = &t
				changed++
			}
		}
	}
	return changed
}

// CountMarked recomputes the marked-square count from the grid. The
// count is always derived from the grid, never patched incrementally.
func (c *Card) CountMarked() int {
	n := 0
	for r := range c.Grid {
		for col := range c.Grid[r] {
			if c.Grid[r][col].Marked {
				n++
			}
		}
	}
	return n
}
