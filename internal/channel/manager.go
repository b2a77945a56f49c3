package channel

import (
	"sync"
	"time"

	"coview/internal/events"
	"coview/internal/metrics"
	"coview/pkg/logging"
)

// ManagerConfig carries the per-channel settings the manager stamps onto
// every session it creates.
type ManagerConfig struct {
	Logger        logging.Logger
	Metrics       *metrics.Metrics
	Events        events.Publisher
	TickInterval  time.Duration
	GracePeriod   time.Duration
	MaxChatLength int
	Clock         func() time.Time
}

// Manager owns the registry of live channel sessions. Sessions share nothing
// with each other; the manager's lock only guards the registry map.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds an empty registry.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Events == nil {
		cfg.Events = events.Noop{}
	}
	return &Manager{cfg: cfg, sessions: make(map[string]*Session)}
}

// Attach joins a viewer connection to the channel, creating the session on
// first join. It retries when it races a session that terminated between
// lookup and attach.
func (m *Manager) Attach(channelID string, conn Conn, viewer Viewer) *Session {
	for {
		s := m.getOrCreate(channelID)
		if err := s.Attach(conn, viewer); err == nil {
			return s
		}
		// The session died under us (grace expiry or explicit close);
		// a fresh one replaces it.
	}
}

// Get returns the live session for channelID, if any.
func (m *Manager) Get(channelID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[channelID]
	return s, ok
}

// Close tears down a channel explicitly, disconnecting all viewers. Reports
// whether a live session existed.
func (m *Manager) Close(channelID string) bool {
	s, ok := m.Get(channelID)
	if !ok {
		return false
	}
	s.Close()
	return true
}

// Shutdown closes every live session and waits for their loops to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		s.Close()
	}
	for _, s := range live {
		<-s.Done()
	}
}

// Stats reports viewer counts per live channel.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.sessions))
	for id, s := range m.sessions {
		out[id] = s.ViewerCount()
	}
	return out
}

// ChannelCount returns the number of live channels.
func (m *Manager) ChannelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) getOrCreate(channelID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[channelID]; ok {
		select {
		case <-s.Done():
			// Terminated but not yet removed; replace it.
			delete(m.sessions, channelID)
		default:
			return s
		}
	}

	s := NewSession(Config{
		ChannelID:     channelID,
		Logger:        m.cfg.Logger,
		Metrics:       m.cfg.Metrics,
		Events:        m.cfg.Events,
		TickInterval:  m.cfg.TickInterval,
		GracePeriod:   m.cfg.GracePeriod,
		MaxChatLength: m.cfg.MaxChatLength,
		Clock:         m.cfg.Clock,
		OnTerminate:   m.remove,
	})
	m.sessions[channelID] = s
	go s.Run()

	m.cfg.Metrics.ChannelOpened()
	m.cfg.Events.ChannelCreated(channelID)
	m.cfg.Logger.WithFields(logging.Fields{
		"channel_id": channelID,
	}).Info("Channel session created")

	return s
}

func (m *Manager) remove(channelID string) {
	m.mu.Lock()
	if s, ok := m.sessions[channelID]; ok {
		select {
		case <-s.Done():
			delete(m.sessions, channelID)
		default:
			// Already replaced by a fresh session; leave it alone.
		}
	}
	m.mu.Unlock()
	m.cfg.Metrics.ChannelClosed()
}
