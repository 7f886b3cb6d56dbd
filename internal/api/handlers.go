package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goodtune/nudged/internal/reminder"
	"github.com/goodtune/nudged/internal/storage"
	"github.com/goodtune/nudged/internal/tracker"
)

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Tracker.Status())
}

func (s *Server) handleTrackingStart(c *gin.Context) {
	if err := s.deps.Tracker.Start(c.Request.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tracker.ErrCaptureUnreachable) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.deps.Tracker.Status())
}

func (s *Server) handleTrackingStop(c *gin.Context) {
	s.deps.Tracker.Stop()
	c.JSON(http.StatusOK, s.deps.Tracker.Status())
}

func (s *Server) handleListReminders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reminders": s.deps.Reminders.List()})
}

type createReminderRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description" binding:"required"`
	App         *storage.AppContext `json:"app,omitempty"`
}

func (s *Server) handleCreateReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := reminder.NewItem(req.Title, req.Description, req.App)
	if err := s.deps.Reminders.Add(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleCompleteReminder(c *gin.Context) {
	s.mutateReminder(c, s.deps.Reminders.MarkCompleted)
}

func (s *Server) handleDismissReminder(c *gin.Context) {
	s.mutateReminder(c, s.deps.Reminders.Dismiss)
}

func (s *Server) mutateReminder(c *gin.Context, mutate func(ctx context.Context, id string) error) {
	id := c.Param("id")
	if _, ok := s.deps.Reminders.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
		return
	}
	if err := mutate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	item, _ := s.deps.Reminders.Get(id)
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDeleteReminder(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.deps.Reminders.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
		return
	}
	if err := s.deps.Reminders.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleClearReminders(c *gin.Context) {
	cleared, err := s.deps.Reminders.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.deps.Settings.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no settings stored"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, settings)
}

type putSettingsRequest struct {
	ProviderType      string `json:"provider_type" binding:"required"`
	Model             string `json:"model" binding:"required"`
	EndpointURL       string `json:"endpoint_url"`
	APIKey            string `json:"api_key"`
	AnalysisFrequency int    `json:"analysis_frequency_minutes" binding:"required,min=1,max=10"`
	NotifyFrequency   int    `json:"notification_frequency_minutes"`
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := storage.Settings{
		ProviderType:      req.ProviderType,
		Model:             req.Model,
		EndpointURL:       req.EndpointURL,
		APIKey:            req.APIKey,
		AnalysisFrequency: req.AnalysisFrequency,
		NotifyFrequency:   req.NotifyFrequency,
		UpdatedAt:         time.Now().UTC(),
	}

	if err := s.deps.Settings.Put(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.deps.OnSettingsChange != nil {
		if err := s.deps.OnSettingsChange(settings); err != nil {
			s.logger.Warn().Err(err).Msg("Settings persisted but not applied")
			c.JSON(http.StatusOK, gin.H{"settings": settings, "warning": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, settings)
}
