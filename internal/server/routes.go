package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/assurance/internal/agent"
	"github.com/danmuck/assurance/internal/clientlog"
	"github.com/danmuck/assurance/internal/session"
)

type deepLinkRequest struct {
	URL string `json:"url" binding:"required"`
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) registerRoutes() {
	r := s.router
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/status", s.status)
	r.GET("/logs", s.clientLogs)

	r.POST("/deeplink", s.deepLink)
	r.POST("/events", s.hostEvent)
	r.POST("/pin", s.pin)
	r.POST("/cancel", s.action(func(c Console) bool { return c.Cancel() }))
	r.POST("/disconnect", s.action(func(c Console) bool { return c.Disconnect() }))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).String(),
		"service": "assurance",
		"version": Version,
	})
}

func (s *Server) status(c *gin.Context) {
	body := gin.H{"agent": s.backend.Status()}
	if s.console != nil {
		body["view"] = s.console.View()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) clientLogs(c *gin.Context) {
	if s.console == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []clientlog.Message{}})
		return
	}
	floor := clientlog.Low
	if raw := c.Query("visibility"); raw != "" {
		floor = clientlog.ParseVisibility(raw)
	}
	msgs := s.console.ClientLogs(floor)
	if msgs == nil {
		msgs = []clientlog.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": msgs})
}

func (s *Server) deepLink(c *gin.Context) {
	var req deepLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.backend.HandleDeepLink(req.URL); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrInvalidDeepLink) || errors.Is(err, session.ErrInvalidSessionID) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) hostEvent(c *gin.Context) {
	var h agent.HostEvent
	if err := c.ShouldBindJSON(&h); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.backend.HandleEvent(h); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrNotProcessing) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) pin(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.action(func(con Console) bool { return con.SubmitPIN(req.PIN) })(c)
}

// action runs a console action and reports 409 when nothing is bound.
func (s *Server) action(fn func(Console) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.console == nil || !fn(s.console) {
			c.JSON(http.StatusConflict, gin.H{"error": "no active session"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}
