// Package events publishes channel lifecycle events for downstream analytics.
// Publishing is strictly best-effort: the realtime path never waits on the
// broker and never fails a viewer command because Kafka is down.
package events

import "time"

// Event is the payload produced to the event topic.
type Event struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	ChannelID string    `json:"channel_id"`
	ViewerID  string    `json:"viewer_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Event type constants.
const (
	TypeChannelCreated = "channel-created"
	TypeChannelClosed  = "channel-closed"
	TypeViewerJoined   = "viewer-joined"
	TypeViewerLeft     = "viewer-left"
)

// Publisher emits channel lifecycle events.
type Publisher interface {
	ChannelCreated(channelID string)
	ChannelClosed(channelID, reason string)
	ViewerJoined(channelID, viewerID string)
	ViewerLeft(channelID, viewerID string)
	Close() error
}

// Noop is the publisher used when no brokers are configured.
type Noop struct{}

func (Noop) ChannelCreated(string)        {}
func (Noop) ChannelClosed(string, string) {}
func (Noop) ViewerJoined(string, string)  {}
func (Noop) ViewerLeft(string, string)    {}
func (Noop) Close() error                 { return nil }
