package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/devext/internal/api/middleware"
	"github.com/GriffinCanCode/devext/internal/domain/service"
	"github.com/GriffinCanCode/devext/internal/domain/session"
	"github.com/GriffinCanCode/devext/internal/infrastructure/logging"
	"github.com/GriffinCanCode/devext/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/devext/internal/types"
)

// Version is reported by the health endpoints.
const Version = "0.1.0"

// Sessions is the supervisor surface the HTTP API reads and stops.
type Sessions interface {
	ListSessions() []session.SessionInfo
	Current() (string, bool)
	StopByID(ctx context.Context, sessionID string) (*session.CompletionResult, bool)
	StopCurrent(ctx context.Context) (*session.CompletionResult, bool)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	registry *service.Registry
	sessions Sessions
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewHandlers creates a new handler set. metrics and gatherer may be nil.
func NewHandlers(
	registry *service.Registry,
	sessions Sessions,
	metrics *monitoring.Metrics,
	gatherer prometheus.Gatherer,
	logger *logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handlers{
		registry: registry,
		sessions: sessions,
		metrics:  metrics,
		gatherer: gatherer,
		logger:   logger.Named("http"),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/tools", h.ListTools)
	r.POST("/tools/execute", h.ExecuteTool)
	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions/stop", h.StopSession)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.GET("/metrics", h.Metrics)
}

// Root handles liveness checks
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "devext",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	current, _ := h.sessions.Current()
	resp := gin.H{
		"status":           "healthy",
		"version":          Version,
		"service_registry": h.registry.Stats(),
		"sessions": gin.H{
			"active":  len(h.sessions.ListSessions()),
			"current": current,
		},
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

// ListTools lists the tool catalogue, optionally filtered by category or
// ranked against a free-text query.
func (h *Handlers) ListTools(c *gin.Context) {
	if q := c.Query("q"); q != "" {
		limit := 5
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		c.JSON(http.StatusOK, gin.H{
			"query":    q,
			"services": h.registry.Discover(q, limit),
		})
		return
	}

	var category *types.Category
	if raw := c.Query("category"); raw != "" {
		if err := validateCategory(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cat := types.Category(raw)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.List(category),
		"stats":    h.registry.Stats(),
	})
}

// ExecuteTool executes a tool call
func (h *Handlers) ExecuteTool(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateToolID(req.ToolID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateParams(req.Params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := middleware.GetRequestID(c)
	clientIP := c.ClientIP()
	appCtx := &types.Context{ClientIP: &clientIP}
	if requestID != "" {
		appCtx.RequestID = &requestID
	}

	timer := monitoring.NewTimer(h.metrics, req.ToolID)
	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	elapsed := timer.Stop(err == nil && result != nil && result.Success)

	if errors.Is(err, service.ErrToolNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err == nil && result == nil {
		err = errors.New("tool returned no result")
	}
	if err != nil {
		h.logger.Error("tool execution failed",
			zap.String("tool_id", req.ToolID),
			zap.String("request_id", requestID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Debug("tool executed",
		zap.String("tool_id", req.ToolID),
		zap.Bool("success", result.Success),
		zap.Duration("elapsed", elapsed))
	c.JSON(http.StatusOK, result)
}

// ListSessions lists live extension sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.sessions.ListSessions()
	if sessions == nil {
		sessions = []session.SessionInfo{}
	}
	current, _ := h.sessions.Current()
	c.JSON(http.StatusOK, gin.H{
		"sessions": sessions,
		"current":  current,
	})
}

// StopSession stops the named session, or the current one when the body
// names none.
func (h *Handlers) StopSession(c *gin.Context) {
	var req types.StopRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if req.SessionID == "" {
		result, ok := h.sessions.StopCurrent(c.Request.Context())
		h.respondStop(c, result, ok)
		return
	}
	if err := validateSessionID(req.SessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, ok := h.sessions.StopByID(c.Request.Context(), req.SessionID)
	h.respondStop(c, result, ok)
}

// DeleteSession stops a session by path parameter
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := validateSessionID(sessionID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, ok := h.sessions.StopByID(c.Request.Context(), sessionID)
	h.respondStop(c, result, ok)
}

func (h *Handlers) respondStop(c *gin.Context, result *session.CompletionResult, ok bool) {
	if !ok || result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active extension session to stop"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stopped": true,
		"result":  result,
		"text":    result.String(),
	})
}

// Metrics exposes Prometheus metrics
func (h *Handlers) Metrics(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
