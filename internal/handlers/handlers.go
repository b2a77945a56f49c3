// Package handlers contains the HTTP handlers for the service.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"coview/internal/channel"
	"coview/internal/gateway"
	"coview/pkg/api/common"
	"coview/pkg/api/coview"
	directoryclient "coview/pkg/clients/directory"
	"coview/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CoviewHandlers contains the HTTP handlers for the service
type CoviewHandlers struct {
	gateway   *gateway.Gateway
	manager   *channel.Manager
	directory *directoryclient.Client
	logger    logging.Logger
	startTime time.Time
}

// NewCoviewHandlers creates a new handlers instance. The directory client may
// be nil when no directory service is configured.
func NewCoviewHandlers(gw *gateway.Gateway, manager *channel.Manager, directory *directoryclient.Client, logger logging.Logger) *CoviewHandlers {
	return &CoviewHandlers{
		gateway:   gw,
		manager:   manager,
		directory: directory,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HandleWebSocketChannel serves WebSocket connections for a channel
func (h *CoviewHandlers) HandleWebSocketChannel(c *gin.Context) {
	channelID := c.Param("id")
	if channelID == "" {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Error: "channel id is required",
			Code:  "MissingChannelID",
		})
		return
	}
	h.gateway.ServeWS(c.Writer, c.Request, channelID)
}

// HandleStats reports per-channel viewer counts
func (h *CoviewHandlers) HandleStats(c *gin.Context) {
	stats := h.manager.Stats()
	total := 0
	for _, n := range stats {
		total += n
	}
	c.JSON(http.StatusOK, coview.StatsResponse{
		TotalChannels: len(stats),
		TotalViewers:  total,
		Channels:      stats,
	})
}

// HandleListChannels proxies the directory's channel listing
func (h *CoviewHandlers) HandleListChannels(c *gin.Context) {
	if h.directory == nil {
		c.JSON(http.StatusServiceUnavailable, common.ErrorResponse{
			Error: "channel directory is not configured",
			Code:  "DirectoryUnavailable",
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.directory.SearchChannels(ctx, c.Query("q"), page, size)
	if err != nil {
		h.logger.WithError(err).Error("Directory channel listing failed")
		c.JSON(http.StatusBadGateway, common.ErrorResponse{
			Error: "failed to list channels",
			Code:  "DirectoryError",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// HandleCloseChannel force-closes a channel, disconnecting all viewers.
// Mounted behind service auth.
func (h *CoviewHandlers) HandleCloseChannel(c *gin.Context) {
	channelID := c.Param("id")
	closed := h.manager.Close(channelID)
	if !closed {
		c.JSON(http.StatusNotFound, common.ErrorResponse{
			Error: "channel not found",
			Code:  "NotFound",
		})
		return
	}

	h.logger.WithField("channel_id", channelID).Info("Channel closed by operator")
	c.JSON(http.StatusOK, coview.CloseChannelResponse{ChannelID: channelID, Closed: true})
}

// HandleNotFound returns a JSON 404 for unknown routes
func (h *CoviewHandlers) HandleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, common.ErrorResponse{
		Error: "route not found",
		Code:  "NotFound",
	})
}
