package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"xupload/internal/config"
	"xupload/internal/handler"
	"xupload/internal/metrics"
	"xupload/internal/middleware"
	"xupload/internal/websocket"
	"xupload/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Upload  *handler.UploadHandler
	Health  *handler.HealthHandler
	Events  *websocket.Handler
	Metrics http.Handler
}

// Middleware carries the per-route guards built from services.
type Middleware struct {
	Auth      gin.HandlerFunc
	RateLimit gin.HandlerFunc
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	switch cfg.Server.Environment {
	case "production", ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(h *Handlers, mw Middleware, m *metrics.Metrics) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.MetricsMiddleware(m))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", h.Health.Ping)
	s.engine.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := s.engine.Group("/v1", mw.Auth)
	{
		upload := []gin.HandlerFunc{h.Upload.Handle}
		if mw.RateLimit != nil {
			upload = append([]gin.HandlerFunc{mw.RateLimit}, upload...)
		}
		v1.GET("/upload", upload...)
		v1.POST("/upload", upload...)
		v1.GET("/ws", h.Events.Connect)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.Server.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.logger.Errorf("Error in starting the server: %s", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
