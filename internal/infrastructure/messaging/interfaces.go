// Package messaging provides the real-time broadcast hub and the
// outbound message protocol.
package messaging

// Broadcaster defines the interface for fanning out state changes to
// connected clients. Delivery is best-effort, at most once per
// connection; ordering is FIFO within one connection only.
type Broadcaster interface {
	BroadcastToEpisode(episodeID string, message Message)
	SendToUser(userID string, message Message)
	SendToCard(cardID string, message Message)
	EpisodeConnectionCount(episodeID string) int
}
