package gateway

import (
	"sync"
	"time"

	"coview/internal/channel"
	"coview/internal/metrics"
	"coview/internal/protocol"
	"coview/pkg/logging"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// client is one viewer connection. It implements channel.Conn: the session
// loop pushes outbound frames through Send, the pumps move bytes to and from
// the socket.
type client struct {
	id        string
	channelID string
	conn      *websocket.Conn
	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once
	logger    logging.Logger
	metrics   *metrics.Metrics
}

func newClient(id, channelID string, conn *websocket.Conn, bufferSize int, logger logging.Logger, m *metrics.Metrics) *client {
	return &client{
		id:        id,
		channelID: channelID,
		conn:      conn,
		send:      make(chan []byte, bufferSize),
		quit:      make(chan struct{}),
		logger:    logger,
		metrics:   m,
	}
}

func (c *client) ID() string { return c.id }

// Send queues a frame without ever blocking the caller. When the buffer is
// full the oldest pending frame is dropped: a stalled viewer loses its own
// backlog, never the channel's throughput. The dropped viewer re-anchors via
// the next VIDEO_TIME or an explicit CHANNEL_SYNC.
func (c *client) Send(frame []byte) {
	for {
		select {
		case c.send <- frame:
			return
		case <-c.quit:
			return
		default:
		}
		select {
		case <-c.send:
			c.metrics.FrameDropped(c.channelID)
		default:
		}
	}
}

// Close shuts the connection down. Safe to call from any goroutine and more
// than once.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.conn.Close()
	})
}

// readPump moves frames from the socket into the session queue. It owns the
// read side: deadlines, size limit and pong handling live here. Exiting
// triggers the viewer's leave.
func (c *client) readPump(session *channel.Session) {
	defer func() {
		session.Detach(c.id)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Debug("WebSocket connection error")
			}
			return
		}

		payload, err := protocol.DecodeClient(raw)
		if err != nil {
			// The envelope is discarded without touching channel state; the
			// sender gets an explicit error envelope and the connection
			// stays alive.
			c.rejectFrame(err)
			continue
		}

		session.Submit(c.id, payload)
	}
}

// writePump moves frames from the session to the socket and keeps the
// connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *client) rejectFrame(err error) {
	code := "DecodeFailure"
	if protocolErrIsDirection(err) {
		code = "InvalidDirection"
	}
	frame, encErr := protocol.Encode(protocol.ErrorPayload{Code: code, Message: err.Error()})
	if encErr != nil {
		return
	}
	c.Send(frame)
	c.logger.WithFields(logging.Fields{
		"channel_id": c.channelID,
		"conn_id":    c.id,
		"code":       code,
	}).Debug("Discarded malformed client frame")
}
