package bingo

import "time"

// Clone methods produce deep copies for the cache layer. Cached entities
// are shared across request goroutines, so readers and writers each work
// on their own copy and publish whole objects, never in-place mutations.

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Clone returns a deep copy of the episode.
func (e *Episode) Clone() *Episode {
	cp := *e
	cp.Capacity = copyIntPtr(e.Capacity)
	cp.StartedAt = copyTimePtr(e.StartedAt)
	cp.EndedAt = copyTimePtr(e.EndedAt)
	return &cp
}

// Clone returns a deep copy of the event definition.
func (d *EventDefinition) Clone() *EventDefinition {
	cp := *d
	cp.FiredAt = copyTimePtr(d.FiredAt)
	cp.LastTriggeredAt = copyTimePtr(d.LastTriggeredAt)
	return &cp
}

// Clone returns a deep copy of the trigger secret.
func (s *TriggerSecret) Clone() *TriggerSecret {
	cp := *s
	cp.RevokedAt = copyTimePtr(s.RevokedAt)
	return &cp
}

// Clone returns a deep copy of the card, grid and patterns included.
func (c *Card) Clone() *Card {
	cp := *c
	if c.Grid != nil {
		cp.Grid = make([][]GridSquare, len(c.Grid))
		for r := range c.Grid {
			row := make([]GridSquare, len(c.Grid[r]))
			copy(row, c.Grid[r])
			for i := range row {
				row[i].MarkedAt = copyTimePtr(row[i].MarkedAt)
			}
			cp.Grid[r] = row
		}
	}
	if c.Patterns != nil {
		cp.Patterns = make([]Pattern, len(c.Patterns))
		copy(cp.Patterns, c.Patterns)
	}
	return &cp
}
