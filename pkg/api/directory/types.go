// Package directory defines the request and response types of the channel
// directory service's HTTP API.
package directory

import "time"

// ChannelSummary is one directory listing entry.
type ChannelSummary struct {
	ChannelID   string    `json:"channel_id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"owner_id"`
	ViewerCount int       `json:"viewer_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Page carries pagination metadata alongside a result set.
type Page struct {
	PageNumber int `json:"page_number"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// SearchChannelsResponse is the directory's paginated channel listing.
type SearchChannelsResponse struct {
	Channels []ChannelSummary `json:"channels"`
	Page     Page             `json:"page"`
}

// AnnounceRequest registers this realtime node with the directory so new
// channels are routed here.
type AnnounceRequest struct {
	NodeID    string `json:"node_id"`
	BaseURL   string `json:"base_url"`
	Version   string `json:"version"`
	Channels  int    `json:"channels"`
	Viewers   int    `json:"viewers"`
	Timestamp int64  `json:"timestamp"`
}

// AnnounceResponse acknowledges a node announcement.
type AnnounceResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}
