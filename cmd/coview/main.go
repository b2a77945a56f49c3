package main

import (
	"context"
	"strings"
	"time"

	"coview/internal/channel"
	"coview/internal/events"
	"coview/internal/gateway"
	"coview/internal/handlers"
	"coview/internal/metrics"
	dirapi "coview/pkg/api/directory"
	"coview/pkg/auth"
	dirclient "coview/pkg/clients/directory"
	"coview/pkg/config"
	"coview/pkg/logging"
	"coview/pkg/monitoring"
	"coview/pkg/server"
	"coview/pkg/version"

	"github.com/google/uuid"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("coview")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Coview (watch-together hub)")

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("coview", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("coview", version.Version, version.GitCommit)

	// Create custom metrics
	serviceMetrics := &metrics.Metrics{
		ActiveChannels:   metricsCollector.NewGauge("channels_active", "Live channel sessions", []string{}),
		ConnectedViewers: metricsCollector.NewGauge("viewers_connected", "Connected viewers per channel", []string{"channel"}),
		InboundMessages:  metricsCollector.NewCounter("messages_inbound_total", "Client commands by kind", []string{"kind"}),
		OutboundMessages: metricsCollector.NewCounter("messages_outbound_total", "Broadcast frames by kind", []string{"kind"}),
		DroppedFrames:    metricsCollector.NewCounter("frames_dropped_total", "Frames dropped on slow connections", []string{"channel"}),
		ChatMessages:     metricsCollector.NewCounter("chat_messages_total", "Relayed chat messages", []string{"channel"}),
		PlaylistItems:    metricsCollector.NewGauge("playlist_items", "Playlist length per channel", []string{"channel"}),
	}

	jwtSecret := config.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set; all viewers will be anonymous")
	}
	serviceToken := config.RequireEnv("ADMIN_TOKEN")

	// Setup the lifecycle event publisher
	var publisher events.Publisher = events.Noop{}
	if brokersEnv := config.GetEnv("EVENT_BROKERS", ""); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		topic := config.GetEnv("EVENT_TOPIC", "channel_events")
		kp, err := events.NewKafkaPublisher(brokers, topic, "coview", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Kafka publisher")
		}
		defer kp.Close()
		publisher = kp

		healthChecker.AddCheck("kafka", func() monitoring.CheckResult {
			start := time.Now()
			if err := kp.HealthCheck(); err != nil {
				return monitoring.CheckResult{
					Status:  monitoring.StatusUnhealthy,
					Message: err.Error(),
					Latency: time.Since(start).String(),
				}
			}
			return monitoring.CheckResult{
				Status:  monitoring.StatusHealthy,
				Latency: time.Since(start).String(),
			}
		})
	}

	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"ADMIN_TOKEN": serviceToken,
	}))

	// Channel session manager
	manager := channel.NewManager(channel.ManagerConfig{
		Logger:        logger,
		Metrics:       serviceMetrics,
		Events:        publisher,
		TickInterval:  config.GetEnvDuration("PLAYBACK_TICK", time.Second),
		GracePeriod:   config.GetEnvDuration("CHANNEL_GRACE_PERIOD", 30*time.Second),
		MaxChatLength: config.GetEnvInt("MAX_CHAT_LENGTH", 512),
	})
	defer manager.Shutdown()

	// WebSocket gateway
	gw := gateway.New(gateway.Config{
		Manager:        manager,
		Logger:         logger,
		Metrics:        serviceMetrics,
		JWTSecret:      []byte(jwtSecret),
		SendBufferSize: config.GetEnvInt("SEND_BUFFER_SIZE", 64),
	})

	// Optional channel directory integration
	var directory *dirclient.Client
	directoryURL := config.GetEnv("DIRECTORY_URL", "")
	if directoryURL != "" {
		directory = dirclient.NewClient(dirclient.Config{
			BaseURL:      directoryURL,
			ServiceToken: serviceToken,
			Logger:       logger,
		})
		healthChecker.AddCheck("directory", monitoring.HTTPServiceHealthCheck("directory", directoryURL+"/health"))
	}

	coviewHandlers := handlers.NewCoviewHandlers(gw, manager, directory, logger)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "coview", healthChecker, metricsCollector)

	// WebSocket and operator routes
	router.GET("/ws/channels/:id", coviewHandlers.HandleWebSocketChannel)
	router.GET("/stats", coviewHandlers.HandleStats)
	router.GET("/channels", coviewHandlers.HandleListChannels)

	// Admin routes with service auth
	admin := router.Group("/admin")
	admin.Use(auth.ServiceAuthMiddleware(serviceToken))
	admin.POST("/channels/:id/close", coviewHandlers.HandleCloseChannel)

	router.NoRoute(coviewHandlers.HandleNotFound)

	serverConfig := server.DefaultConfig("coview", "18010")

	// Best-effort node registration in the directory
	if directory != nil {
		go func() {
			nodeID := config.GetEnv("NODE_ID", uuid.New().String())
			baseURL := config.GetEnv("PUBLIC_URL", "http://localhost:"+serverConfig.Port)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := directory.Announce(ctx, &dirapi.AnnounceRequest{
				NodeID:    nodeID,
				BaseURL:   baseURL,
				Version:   version.Version,
				Timestamp: time.Now().Unix(),
			}); err != nil {
				logger.WithError(err).Warn("Directory announce failed")
			} else {
				logger.Info("Directory announce ok")
			}
		}()
	}

	// Start server with graceful shutdown
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
