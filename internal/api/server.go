package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/seer-project/seerd/internal/config"
	"github.com/seer-project/seerd/internal/events"
	"github.com/seer-project/seerd/internal/robot"
)

// Server is the REST API server for the robot driver.
type Server struct {
	cfg        *config.Config
	notifier   *events.Notifier
	controller *robot.Controller

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, notifier *events.Notifier, controller *robot.Controller) *Server {
	// Set Gin mode based on log level
	if cfg.GetApplication().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:        cfg,
		notifier:   notifier,
		controller: controller,
	}
}

// Start runs the API server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.router = s.buildRouter()

	addr := fmt.Sprintf(":%d", s.cfg.GetApplication().API.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("REST API server starting")

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	security := s.cfg.GetApplication().Security

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	// CORS
	allowedOrigins := security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting
	rateLimiter := NewRateLimiter(security.RateLimitRPS)
	router.Use(rateLimiter.Middleware())

	// ---- Public endpoints ----
	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/get_system_info", s.handleGetSystemInfo)
	}

	// ---- Robot endpoints (IP-restricted) ----
	robotGroup := router.Group("/api/robot")
	robotGroup.Use(IPWhitelist(security.IPWhitelist))
	{
		robotGroup.POST("/connect", s.handleConnect)
		robotGroup.POST("/disconnect", s.handleDisconnect)
		robotGroup.GET("/status", s.handleStatus)

		robotGroup.POST("/start_monitoring", s.handleStartMonitoring)
		robotGroup.POST("/stop_monitoring", s.handleStopMonitoring)
		robotGroup.GET("/position", s.handlePosition)
		robotGroup.GET("/history", s.handleHistory)

		robotGroup.POST("/navigate", s.handleNavigate)
		robotGroup.POST("/motion", s.handleMotion)
		robotGroup.POST("/rotate", s.handleRotate)
	}

	// ---- Host monitoring (IP-restricted) ----
	monitor := router.Group("/api/monitor")
	monitor.Use(IPWhitelist(security.IPWhitelist))
	{
		monitor.GET("/get_cpu_usage", s.handleGetCPUUsage)
		monitor.GET("/get_memory_usage", s.handleGetMemoryUsage)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}
