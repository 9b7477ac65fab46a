package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"tubedeck/config"
	"tubedeck/handlers"
	"tubedeck/middleware"
	"tubedeck/services"
	"tubedeck/websocket"
)

const shutdownTimeout = 10 * time.Second

// Server bundles the router with the long-running pieces behind it
type Server struct {
	Router       *gin.Engine
	orchestrator services.Orchestrator
	hub          websocket.Hub
	redis        *redis.Client
}

// NewServer wires the orchestrator, WebSocket hub and handlers for cfg.
// Settings updates are saved to settingsFile.
func NewServer(ctx context.Context, cfg config.Config, settingsFile string) (*Server, error) {
	logger := GetLogger("server")

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	client, err := newRemoteClient(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize services
	orchestrator := services.NewOrchestrator(client, cfg.PollInterval)
	hub := websocket.NewHub()
	go hub.Run()
	_, updates, _ := orchestrator.Subscribe()
	go hub.Forward(updates)

	redisClient := middleware.NewRedisClient(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
	if err := middleware.PingRedis(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RateLimit.RedisAddr).Msg("redis unreachable, rate limits fall back to memory")
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, redisClient)

	// Initialize handlers
	itemHandler := handlers.NewItemHandler(orchestrator, hub, cfg.CORSOrigins)
	artifactHandler := handlers.NewArtifactHandler(orchestrator)
	lookupHandler := handlers.NewLookupHandler(client)
	healthHandler := handlers.NewHealthHandler(client.BaseURL(), orchestrator, hub)
	settingsHandler := handlers.NewSettingsHandler(settingsFile, cfg)

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	setupRoutes(r, middleware.RateLimit(limiter), itemHandler, artifactHandler, lookupHandler, healthHandler, settingsHandler)

	return &Server{
		Router:       r,
		orchestrator: orchestrator,
		hub:          hub,
		redis:        redisClient,
	}, nil
}

// Close stops polling, disconnects WebSocket clients and releases Redis
func (s *Server) Close() {
	s.orchestrator.Close()
	s.hub.Stop()
	if s.redis != nil {
		s.redis.Close()
	}
}

// StartWebServer serves until ctx is cancelled, then shuts down gracefully
func StartWebServer(ctx context.Context, cfg config.Config, settingsFile string) error {
	logger := GetLogger("server")

	server, err := NewServer(ctx, cfg, settingsFile)
	if err != nil {
		return err
	}
	defer server.Close()

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Str("service", cfg.ServiceURL).Msg("tubedeck web server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, rateLimit gin.HandlerFunc, itemHandler *handlers.ItemHandler, artifactHandler *handlers.ArtifactHandler, lookupHandler *handlers.LookupHandler, healthHandler *handlers.HealthHandler, settingsHandler *handlers.SettingsHandler) {
	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// WebSocket endpoint for snapshot updates
		apiGroup.GET("/ws/items", itemHandler.HandleWebSocketConnection)

		limited := apiGroup.Group("", rateLimit)

		// Preview variants without adding
		limited.GET("/lookup", lookupHandler.Lookup)

		// Item management endpoints
		itemsGroup := limited.Group("/items")
		{
			itemsGroup.GET("", itemHandler.ListItems)
			itemsGroup.POST("", itemHandler.AddItem)
			itemsGroup.DELETE("/:id", itemHandler.RemoveItem)
			itemsGroup.PUT("/:id/variant", itemHandler.SelectVariant)
			itemsGroup.POST("/:id/download", itemHandler.StartDownload)
			itemsGroup.GET("/:id/artifact", artifactHandler.StreamArtifact)
		}

		// Settings endpoints
		limited.GET("/settings", settingsHandler.GetSettings)
		limited.POST("/settings", settingsHandler.UpdateSettings)
	}
}
