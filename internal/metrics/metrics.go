// Package metrics holds the service's Prometheus instruments. The struct is
// populated in main from the monitoring collector; a nil *Metrics disables
// recording, which keeps tests free of registry setup.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics contains the custom instruments for the realtime hub.
type Metrics struct {
	ActiveChannels   *prometheus.GaugeVec   // live channel sessions
	ConnectedViewers *prometheus.GaugeVec   // viewers per channel
	InboundMessages  *prometheus.CounterVec // client commands by kind
	OutboundMessages *prometheus.CounterVec // broadcast frames by kind
	DroppedFrames    *prometheus.CounterVec // frames dropped on slow connections
	ChatMessages     *prometheus.CounterVec // relayed chat by channel
	PlaylistItems    *prometheus.GaugeVec   // playlist length by channel
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.ActiveChannels.WithLabelValues().Inc()
}

func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.ActiveChannels.WithLabelValues().Dec()
}

func (m *Metrics) ViewerAttached(channelID string) {
	if m == nil {
		return
	}
	m.ConnectedViewers.WithLabelValues(channelID).Inc()
}

func (m *Metrics) ViewerDetached(channelID string) {
	if m == nil {
		return
	}
	m.ConnectedViewers.WithLabelValues(channelID).Dec()
}

func (m *Metrics) InboundMessage(kind string) {
	if m == nil {
		return
	}
	m.InboundMessages.WithLabelValues(kind).Inc()
}

func (m *Metrics) OutboundBroadcast(kind string, fanout int) {
	if m == nil {
		return
	}
	m.OutboundMessages.WithLabelValues(kind).Add(float64(fanout))
}

func (m *Metrics) FrameDropped(channelID string) {
	if m == nil {
		return
	}
	m.DroppedFrames.WithLabelValues(channelID).Inc()
}

func (m *Metrics) ChatRelayed(channelID string) {
	if m == nil {
		return
	}
	m.ChatMessages.WithLabelValues(channelID).Inc()
}

func (m *Metrics) PlaylistSize(channelID string, size int) {
	if m == nil {
		return
	}
	m.PlaylistItems.WithLabelValues(channelID).Set(float64(size))
}
