package handlers

import (
	"net/http"
	"runtime"
	"time"

	"pulsecrm/internal/metrics"
	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler reports process and dependency health plus engine stats.
type HealthHandler struct {
	db   *gorm.DB
	feed *services.FeedHub
}

func NewHealthHandler(db *gorm.DB, feed *services.FeedHub) *HealthHandler {
	return &HealthHandler{db: db, feed: feed}
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
}

type ServiceInfo struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemInfo struct {
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

var startTime = time.Now()

// Health checks the database and reports overall status.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
		System: SystemInfo{
			Uptime:    time.Since(startTime).String(),
			GoVersion: runtime.Version(),
		},
	}

	status := http.StatusOK
	begin := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		resp.Status = "degraded"
		resp.Services["database"] = ServiceInfo{Status: "unhealthy", Error: err.Error()}
		status = http.StatusServiceUnavailable
	} else {
		resp.Services["database"] = ServiceInfo{
			Status:  "healthy",
			Latency: time.Since(begin).String(),
		}
	}

	c.JSON(status, resp)
}

// Ready reports whether the process can serve traffic.
// @Summary Readiness check
// @Tags system
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Message: "ready"})
}

// Stats exposes engine counters and the feed client count.
// @Summary Engine statistics
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/stats [get]
func (h *HealthHandler) Stats(c *gin.Context) {
	stats := metrics.Snapshot()
	if h.feed != nil {
		stats["feed_clients"] = h.feed.ClientCount()
	}
	c.JSON(http.StatusOK, stats)
}
