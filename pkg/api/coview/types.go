// Package coview defines the response types of this service's HTTP API.
package coview

// StatsResponse reports per-channel viewer counts for operators.
type StatsResponse struct {
	TotalChannels int            `json:"total_channels"`
	TotalViewers  int            `json:"total_viewers"`
	Channels      map[string]int `json:"channels"`
}

// CloseChannelResponse acknowledges an administrative channel close.
type CloseChannelResponse struct {
	ChannelID string `json:"channel_id"`
	Closed    bool   `json:"closed"`
}
