package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rs-systems/healthwatch/internal/alert"
	"github.com/rs-systems/healthwatch/internal/auth"
	"github.com/rs-systems/healthwatch/internal/models"
	"github.com/rs-systems/healthwatch/internal/monitor"
)

type Server struct {
	orchestrator *monitor.Orchestrator
	alerts       *alert.Manager
	authService  *auth.Service
	interval     int
	log          *logrus.Logger
	router       *gin.Engine
}

func NewServer(orchestrator *monitor.Orchestrator, alerts *alert.Manager, authService *auth.Service, intervalSeconds int, log *logrus.Logger) *Server {
	server := &Server{
		orchestrator: orchestrator,
		alerts:       alerts,
		authService:  authService,
		interval:     intervalSeconds,
		log:          log,
		router:       gin.New(),
	}
	server.router.Use(gin.Recovery())

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	// Public routes
	s.router.GET("/healthz", s.healthz)
	s.router.POST("/api/v1/auth/token", s.issueToken)

	// Protected routes (require authentication)
	api := s.router.Group("/api/v1")
	api.Use(s.authService.Middleware())

	api.GET("/health/summary", s.healthSummary)

	mon := api.Group("/monitor")
	{
		mon.POST("/run", s.runCycle)
		mon.POST("/:component/run", s.runComponent)
		mon.POST("/start", s.startMonitoring)
		mon.POST("/stop", s.stopMonitoring)
		mon.GET("/status", s.monitoringStatus)
		mon.GET("/last", s.lastCycle)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", s.listAlerts)
		alerts.GET("/history", s.alertHistory)
		alerts.GET("/summary", s.alertSummary)
		alerts.POST("/:id/resolve", s.resolveAlert)
	}
}

func (s *Server) Start(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) issueToken(c *gin.Context) {
	var req struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.authService.IssueToken(req.APIKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": 86400})
}

func (s *Server) healthSummary(c *gin.Context) {
	summary := s.orchestrator.HealthSummary(c.Request.Context())
	c.JSON(http.StatusOK, summary)
}

func (s *Server) runCycle(c *gin.Context) {
	report, err := s.orchestrator.RunCycle(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) runComponent(c *gin.Context) {
	component := models.Component(c.Param("component"))
	if !models.IsValidComponent(component) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown component %q", component)})
		return
	}

	report, err := s.orchestrator.RunCycle(c.Request.Context(), []models.Component{component})
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report.Components[component])
}

func (s *Server) startMonitoring(c *gin.Context) {
	var req struct {
		IntervalSeconds int `json:"interval_seconds"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	interval := req.IntervalSeconds
	if interval <= 0 {
		interval = s.interval
	}
	s.orchestrator.Start(interval)
	c.JSON(http.StatusOK, gin.H{"running": true, "interval_seconds": s.orchestrator.IntervalSeconds()})
}

func (s *Server) stopMonitoring(c *gin.Context) {
	s.orchestrator.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (s *Server) monitoringStatus(c *gin.Context) {
	interval := s.orchestrator.IntervalSeconds()
	if interval == 0 {
		interval = s.interval
	}
	c.JSON(http.StatusOK, gin.H{
		"running":          s.orchestrator.IsRunning(),
		"interval_seconds": interval,
		"components":       s.orchestrator.Components(),
	})
}

func (s *Server) lastCycle(c *gin.Context) {
	report := s.orchestrator.LastCycle()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no monitoring cycle has run yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listAlerts(c *gin.Context) {
	active := s.alerts.GetActiveAlerts()

	severity := c.Query("severity")
	component := c.Query("component")
	filtered := make([]models.Alert, 0, len(active))
	for _, a := range active {
		if severity != "" && string(a.Severity) != severity {
			continue
		}
		if component != "" && string(a.Component) != component {
			continue
		}
		filtered = append(filtered, a)
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":  filtered,
		"count":   len(filtered),
		"summary": s.alerts.GetAlertSummary(),
	})
}

func (s *Server) alertHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	history := s.alerts.GetHistory(limit)
	c.JSON(http.StatusOK, gin.H{"alerts": history, "count": len(history)})
}

func (s *Server) alertSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.alerts.GetAlertSummary())
}

func (s *Server) resolveAlert(c *gin.Context) {
	s.alerts.Resolve(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}
