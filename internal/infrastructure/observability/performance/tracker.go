// Package performance provides operation performance tracking for
// BingoCast request handling and dispatch fan-out.
package performance

import (
	"fmt"
	"sync"
	"time"
)

// Marker represents a single performance measurement for an operation
type Marker struct {
	Operation string         `json:"operation"` // e.g., "dispatch:fire", "trigger:platform"
	EpisodeID string         `json:"episodeId,omitempty"`
	StartTime time.Time      `json:"startTime"`
	EndTime   time.Time      `json:"endTime"`
	Duration  time.Duration  `json:"duration"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Completed bool           `json:"completed"`
}

// Complete marks the operation as finished and fixes its duration.
func (m *Marker) Complete() {
	if m.Completed {
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Completed = true
}

// SetSuccess marks the operation as successful or failed
func (m *Marker) SetSuccess(success bool) {
	m.Success = success
}

// SetError sets an error message and marks the operation as failed
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// AddMetadata attaches operation-specific data to the marker.
func (m *Marker) AddMetadata(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// Tracker manages performance markers with bounded retention.
type Tracker struct {
	markers    map[string]*Marker
	maxMarkers int
	counter    uint64
	mu         sync.Mutex
	started    time.Time
}

// NewTracker creates a tracker retaining at most maxMarkers markers.
func NewTracker(maxMarkers int) *Tracker {
	if maxMarkers <= 0 {
		maxMarkers = 10000
	}
	return &Tracker{
		markers:    make(map[string]*Marker),
		maxMarkers: maxMarkers,
		started:    time.Now(),
	}
}

// StartOperation begins tracking an operation and returns its marker.
func (t *Tracker) StartOperation(operation, episodeID string) *Marker {
	marker := &Marker{
		Operation: operation,
		EpisodeID: episodeID,
		StartTime: time.Now(),
		Success:   true,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.counter++
	if len(t.markers) >= t.maxMarkers {
		// Drop the oldest completed marker rather than grow unbounded.
		var oldestKey string
		var oldest time.Time
		for k, m := range t.markers {
			if m.Completed && (oldestKey == "" || m.StartTime.Before(oldest)) {
				oldestKey, oldest = k, m.StartTime
			}
		}
		if oldestKey != "" {
			delete(t.markers, oldestKey)
		}
	}
	t.markers[fmt.Sprintf("%s-%d", operation, t.counter)] = marker

	return marker
}

// Stats summarizes tracked operations since startup.
type Stats struct {
	Uptime     time.Duration `json:"uptime"`
	Operations int           `json:"operations"`
	Failures   int           `json:"failures"`
}

// GetStats returns aggregate tracker statistics.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	failures := 0
	for _, m := range t.markers {
		if m.Completed && !m.Success {
			failures++
		}
	}
	return Stats{
		Uptime:     time.Since(t.started),
		Operations: int(t.counter),
		Failures:   failures,
	}
}
