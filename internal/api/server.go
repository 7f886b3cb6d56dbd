// Package api exposes the HTTP control surface: reminders, tracking
// control, settings, and session status.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
	"github.com/goodtune/nudged/internal/tracker"
)

// Deps carries the server's collaborators.
type Deps struct {
	Tracker   *tracker.Tracker
	Reminders *reminder.Manager
	Settings  storage.SettingsStore

	// OnSettingsChange is invoked after settings are persisted so the
	// running session can pick up the new analysis provider.
	OnSettingsChange func(storage.Settings) error

	Logger zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	deps   Deps
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates the API server and registers routes.
func NewServer(deps Deps) *Server {
	if deps.Logger.GetLevel() == zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		deps:   deps,
		router: router,
		logger: deps.Logger.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealthz)

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/tracking/start", s.handleTrackingStart)
		api.POST("/tracking/stop", s.handleTrackingStop)

		api.GET("/reminders", s.handleListReminders)
		api.POST("/reminders", s.handleCreateReminder)
		api.POST("/reminders/:id/complete", s.handleCompleteReminder)
		api.POST("/reminders/:id/dismiss", s.handleDismissReminder)
		api.DELETE("/reminders/:id", s.handleDeleteReminder)
		api.DELETE("/reminders", s.handleClearReminders)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handlePutSettings)
	}
}

// Serve runs the server on the given listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("API listener started")
	if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
