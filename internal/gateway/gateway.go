// Package gateway is the concurrent front door of the service: it upgrades
// viewer connections, establishes viewer identity, and moves messages between
// the wire and the owning channel session's queue.
package gateway

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"coview/internal/channel"
	"coview/internal/metrics"
	"coview/internal/protocol"
	"coview/pkg/auth"
	"coview/pkg/logging"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config wires the gateway's collaborators.
type Config struct {
	Manager *channel.Manager
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// JWTSecret validates viewer tokens. Empty means every viewer is
	// anonymous.
	JWTSecret []byte
	// SendBufferSize bounds each connection's outbound queue.
	SendBufferSize int
}

// Gateway accepts inbound viewer connections and attaches them to channel
// sessions.
type Gateway struct {
	cfg      Config
	upgrader websocket.Upgrader
}

// New builds a gateway.
func New(cfg Config) *Gateway {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 64
	}
	return &Gateway{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS upgrades the request and joins the viewer to channelID. The viewer
// immediately receives a CHANNEL_SYNC snapshot from the session.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request, channelID string) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.cfg.Logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	viewer := g.identify(r)
	c := newClient(viewer.ConnID, channelID, conn, g.cfg.SendBufferSize, g.cfg.Logger, g.cfg.Metrics)

	session := g.cfg.Manager.Attach(channelID, c, viewer)

	go c.writePump()
	go c.readPump(session)
}

// identify resolves the viewer behind the request. A valid bearer token (from
// the Authorization header or a token query parameter, for browser WebSocket
// clients that cannot set headers) yields an authenticated viewer; anything
// else yields an anonymous viewer with an ephemeral display id. Identity is
// established here once and never from client payloads, so a viewer cannot
// claim another's id mid-session.
func (g *Gateway) identify(r *http.Request) channel.Viewer {
	connID := uuid.New().String()

	token := ""
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if token != "" && len(g.cfg.JWTSecret) > 0 {
		claims, err := auth.ValidateViewerJWT(token, g.cfg.JWTSecret)
		if err == nil {
			return channel.Viewer{
				ConnID:        connID,
				DisplayID:     claims.UserID,
				UserID:        claims.UserID,
				Nickname:      claims.Nickname,
				Profile:       claims.Profile,
				Authenticated: true,
				JoinedAt:      time.Now(),
			}
		}
		g.cfg.Logger.WithError(err).Debug("Viewer token rejected; treating as anonymous")
	}

	return channel.Viewer{
		ConnID:    connID,
		DisplayID: "guest-" + connID[:8],
		JoinedAt:  time.Now(),
	}
}

func protocolErrIsDirection(err error) bool {
	return errors.Is(err, protocol.ErrInvalidDirection)
}
