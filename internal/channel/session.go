package channel

import (
	"fmt"
	"sync/atomic"
	"time"

	"coview/internal/events"
	"coview/internal/metrics"
	"coview/internal/protocol"
	"coview/pkg/logging"
)

// Conn is the session's view of one attached viewer connection. Send must
// never block: the gateway implements it with a bounded buffer that drops the
// oldest pending frame when full, so a stalled viewer cannot stall the
// channel.
type Conn interface {
	ID() string
	Send(frame []byte)
	Close()
}

// Config carries the knobs a session needs.
type Config struct {
	ChannelID     string
	Logger        logging.Logger
	Metrics       *metrics.Metrics
	Events        events.Publisher
	TickInterval  time.Duration
	GracePeriod   time.Duration
	MaxChatLength int
	Clock         func() time.Time
	// OnTerminate runs once, from the session goroutine, after the loop has
	// stopped. The manager uses it to drop its registry entry.
	OnTerminate func(channelID string)
}

type attachRequest struct {
	conn   Conn
	viewer Viewer
	done   chan error
}

type inboundMessage struct {
	connID  string
	payload protocol.Payload
}

// Session is the single-threaded owner of one channel's mutable state. Every
// mutation flows through the Run loop in receipt order; the playlist,
// playback, presence and chat components are lock-free because only this
// goroutine touches them.
type Session struct {
	cfg      Config
	playlist *Playlist
	playback *Playback
	presence *Presence
	chat     *ChatRelay

	conns map[string]Conn

	register   chan attachRequest
	unregister chan string
	inbound    chan inboundMessage
	closing    chan struct{}
	done       chan struct{}

	viewerCount atomic.Int64
}

// NewSession builds a session; the caller starts Run in its own goroutine.
func NewSession(cfg Config) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 30 * time.Second
	}
	if cfg.MaxChatLength <= 0 {
		cfg.MaxChatLength = 512
	}
	if cfg.Events == nil {
		cfg.Events = events.Noop{}
	}
	return &Session{
		cfg:        cfg,
		playlist:   NewPlaylist(),
		playback:   NewPlayback(cfg.Clock),
		presence:   NewPresence(),
		chat:       NewChatRelay(cfg.MaxChatLength, cfg.Clock),
		conns:      make(map[string]Conn),
		register:   make(chan attachRequest),
		unregister: make(chan string, 16),
		inbound:    make(chan inboundMessage, 256),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// ChannelID returns the channel this session owns.
func (s *Session) ChannelID() string { return s.cfg.ChannelID }

// ViewerCount returns the number of attached viewers. Safe from any
// goroutine.
func (s *Session) ViewerCount() int { return int(s.viewerCount.Load()) }

// Attach registers a connection with the session. The new viewer receives a
// CHANNEL_SYNC snapshot and everyone receives USER_JOIN plus fresh counts.
// Returns ErrClosed when the session has already terminated.
func (s *Session) Attach(conn Conn, viewer Viewer) error {
	req := attachRequest{conn: conn, viewer: viewer, done: make(chan error, 1)}
	select {
	case s.register <- req:
		return <-req.done
	case <-s.done:
		return ErrClosed
	}
}

// Detach removes a connection. Duplicate detaches are harmless.
func (s *Session) Detach(connID string) {
	select {
	case s.unregister <- connID:
	case <-s.done:
	}
}

// Submit hands a decoded client payload to the session queue. Messages
// arriving after termination are dropped.
func (s *Session) Submit(connID string, payload protocol.Payload) {
	select {
	case s.inbound <- inboundMessage{connID: connID, payload: payload}:
	case <-s.done:
	}
}

// Close asks the session to shut down, disconnecting all viewers. Used by the
// explicit channel-close path; the grace timer handles the implicit one.
func (s *Session) Close() {
	select {
	case <-s.closing:
	default:
		close(s.closing)
	}
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Run drains the session's queues until the channel dies. It is the only
// goroutine allowed to touch the channel's state.
func (s *Session) Run() {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	// A channel with no viewers only survives the grace period; this covers
	// both a fresh channel nobody attaches to and the last viewer leaving.
	grace := time.NewTimer(s.cfg.GracePeriod)
	defer grace.Stop()

	for {
		select {
		case req := <-s.register:
			s.handleAttach(req, grace)
		case connID := <-s.unregister:
			s.handleDetach(connID, grace)
		case msg := <-s.inbound:
			s.handleInbound(msg)
		case <-ticker.C:
			s.handleTick()
		case <-grace.C:
			if s.presence.Len() == 0 {
				s.terminate("grace period expired")
				return
			}
		case <-s.closing:
			s.terminate("closed")
			return
		}
	}
}

func (s *Session) handleAttach(req attachRequest, grace *time.Timer) {
	s.presence.Join(req.viewer)
	s.conns[req.conn.ID()] = req.conn
	s.viewerCount.Store(int64(s.presence.Len()))

	if !grace.Stop() {
		select {
		case <-grace.C:
		default:
		}
	}

	// Snapshot first so the newcomer has baseline state before any
	// subsequent broadcast lands.
	s.sendTo(req.conn, s.snapshot())
	s.broadcast(protocol.UserJoin{UserID: req.viewer.DisplayID})
	s.broadcast(s.presence.Counts())

	s.cfg.Metrics.ViewerAttached(s.cfg.ChannelID)
	s.cfg.Events.ViewerJoined(s.cfg.ChannelID, req.viewer.DisplayID)
	s.cfg.Logger.WithFields(logging.Fields{
		"channel_id": s.cfg.ChannelID,
		"viewer":     req.viewer.DisplayID,
		"viewers":    s.presence.Len(),
	}).Info("Viewer attached")

	req.done <- nil
}

func (s *Session) handleDetach(connID string, grace *time.Timer) {
	viewer, ok := s.presence.Leave(connID)
	if !ok {
		return
	}
	delete(s.conns, connID)
	s.viewerCount.Store(int64(s.presence.Len()))

	s.broadcast(protocol.UserLeave{UserID: viewer.DisplayID})
	s.broadcast(s.presence.Counts())

	s.cfg.Metrics.ViewerDetached(s.cfg.ChannelID)
	s.cfg.Events.ViewerLeft(s.cfg.ChannelID, viewer.DisplayID)
	s.cfg.Logger.WithFields(logging.Fields{
		"channel_id": s.cfg.ChannelID,
		"viewer":     viewer.DisplayID,
		"viewers":    s.presence.Len(),
	}).Info("Viewer detached")

	if s.presence.Len() == 0 {
		grace.Reset(s.cfg.GracePeriod)
	}
}

// handleInbound dispatches one client command. Failures are answered with an
// ERROR envelope on the originating connection only; the loop never stops.
func (s *Session) handleInbound(msg inboundMessage) {
	viewer, ok := s.presence.Get(msg.connID)
	if !ok {
		// Raced with a detach; the command's author is gone.
		return
	}
	conn, ok := s.conns[msg.connID]
	if !ok {
		return
	}

	s.cfg.Metrics.InboundMessage(string(msg.payload.MessageType()))

	if err := s.dispatch(conn, viewer, msg.payload); err != nil {
		s.cfg.Logger.WithFields(logging.Fields{
			"channel_id": s.cfg.ChannelID,
			"viewer":     viewer.DisplayID,
			"type":       string(msg.payload.MessageType()),
			"error":      err.Error(),
		}).Debug("Command rejected")
		s.sendTo(conn, protocol.ErrorPayload{Code: ErrorCode(err), Message: err.Error()})
	}
}

func (s *Session) dispatch(conn Conn, viewer Viewer, payload protocol.Payload) error {
	switch p := payload.(type) {
	case protocol.ChatMessage:
		out, err := s.chat.Relay(viewer, p)
		if err != nil {
			return err
		}
		s.cfg.Metrics.ChatRelayed(s.cfg.ChannelID)
		s.broadcast(out)
		return nil

	case protocol.PlaylistAddRequest:
		if p.URL == "" {
			return fmt.Errorf("%w: url required", ErrValidation)
		}
		item := s.playlist.Add(p.URL)
		s.broadcast(item)
		s.cfg.Metrics.PlaylistSize(s.cfg.ChannelID, s.playlist.Len())
		if _, active := s.playback.Active(); !active {
			s.activate(item.PlaylistNo)
		}
		return nil

	case protocol.PlaylistRemove:
		activeNo, active := s.playback.Active()
		if err := s.playlist.Remove(p.PlaylistNo); err != nil {
			return err
		}
		s.broadcast(protocol.PlaylistRemove{PlaylistNo: p.PlaylistNo})
		s.cfg.Metrics.PlaylistSize(s.cfg.ChannelID, s.playlist.Len())
		if active && activeNo == p.PlaylistNo {
			if next, ok := s.playlist.First(); ok {
				s.activate(next.PlaylistNo)
			} else {
				s.playback.ClearActive()
			}
		}
		return nil

	case protocol.PlaylistMove:
		seq, err := s.playlist.Move(p.PlaylistNo, p.Sequence)
		if err != nil {
			return err
		}
		// Only display order changed; an active item keeps playing. The
		// echoed sequence is the applied one, which may differ from the
		// request when the target was clamped.
		s.broadcast(protocol.PlaylistMove{PlaylistNo: p.PlaylistNo, Sequence: seq})
		return nil

	case protocol.VideoPlay:
		if err := s.retarget(p.PlaylistNo); err != nil {
			return err
		}
		var err error
		if p.Playing {
			err = s.playback.Play()
		} else {
			err = s.playback.Pause()
		}
		if err != nil {
			return err
		}
		s.broadcast(protocol.VideoPlay{PlaylistNo: p.PlaylistNo, Playing: p.Playing})
		return nil

	case protocol.VideoMove:
		if err := s.retarget(p.PlaylistNo); err != nil {
			return err
		}
		if err := s.playback.Seek(p.Playtime); err != nil {
			return err
		}
		s.broadcast(protocol.VideoMove{PlaylistNo: p.PlaylistNo, Playtime: s.playback.Position()})
		return nil

	case protocol.SyncRequest:
		s.sendTo(conn, s.snapshot())
		return nil

	default:
		// DecodeClient only produces the cases above; anything else is a
		// programming error upstream.
		return fmt.Errorf("%w: unhandled payload %T", ErrValidation, payload)
	}
}

// retarget prepares playback for a command naming playlistNo. With nothing
// active the command fails; naming another existing item switches the active
// item first (the protocol has no dedicated activation kind).
func (s *Session) retarget(playlistNo int) error {
	activeNo, active := s.playback.Active()
	if !active {
		return fmt.Errorf("%w: playlist_no %d", ErrNoActiveItem, playlistNo)
	}
	if playlistNo == activeNo {
		return nil
	}
	if !s.playlist.Contains(playlistNo) {
		return fmt.Errorf("%w: playlist_no %d", ErrNotFound, playlistNo)
	}
	s.playback.SetActive(playlistNo)
	return nil
}

// activate selects an item server-side and tells every viewer to load it
// paused at zero.
func (s *Session) activate(playlistNo int) {
	s.playback.SetActive(playlistNo)
	s.broadcast(protocol.VideoPlay{PlaylistNo: playlistNo, Playing: false})
}

func (s *Session) handleTick() {
	if !s.playback.Playing() {
		return
	}
	// Every viewer re-anchors to this value, so late or duplicate client
	// commands cannot desynchronize the room for long.
	s.broadcast(protocol.VideoTime(s.playback.Position()))
}

func (s *Session) snapshot() protocol.ChannelSync {
	return protocol.ChannelSync{
		Playlist: s.playlist.Items(),
		Playback: s.playback.Snapshot(),
		Viewers:  s.presence.Counts(),
	}
}

func (s *Session) broadcast(payload protocol.Payload) {
	frame, err := protocol.Encode(payload)
	if err != nil {
		s.cfg.Logger.WithError(err).Error("Failed to encode broadcast")
		return
	}
	for _, conn := range s.conns {
		conn.Send(frame)
	}
	s.cfg.Metrics.OutboundBroadcast(string(payload.MessageType()), len(s.conns))
}

func (s *Session) sendTo(conn Conn, payload protocol.Payload) {
	frame, err := protocol.Encode(payload)
	if err != nil {
		s.cfg.Logger.WithError(err).Error("Failed to encode message")
		return
	}
	conn.Send(frame)
	s.cfg.Metrics.OutboundBroadcast(string(payload.MessageType()), 1)
}

func (s *Session) terminate(reason string) {
	// Teardown bypasses handleDetach, so the viewer gauge is settled here
	// for every connection still attached.
	for _, conn := range s.conns {
		conn.Close()
		s.cfg.Metrics.ViewerDetached(s.cfg.ChannelID)
	}
	s.conns = make(map[string]Conn)
	s.viewerCount.Store(0)
	close(s.done)

	s.cfg.Events.ChannelClosed(s.cfg.ChannelID, reason)
	s.cfg.Logger.WithFields(logging.Fields{
		"channel_id": s.cfg.ChannelID,
		"reason":     reason,
	}).Info("Channel session terminated")

	if s.cfg.OnTerminate != nil {
		s.cfg.OnTerminate(s.cfg.ChannelID)
	}
}
