package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
	rplatform "github.com/open-builders/reward-rush-bot/internal/platform/redis"
)

// DocumentLoader reads the persisted document.
type DocumentLoader interface {
	Load() (*jsonstore.Document, error)
}

// OpsHandlers serves liveness and readiness checks.
type OpsHandlers struct {
	store DocumentLoader
	redis *rplatform.Client
}

func NewOpsHandlers(store DocumentLoader, rdb *rplatform.Client) *OpsHandlers {
	return &OpsHandlers{store: store, redis: rdb}
}

func (h *OpsHandlers) Register(r gin.IRouter) {
	r.GET("/health", h.ok)
	r.GET("/live", h.ok)
	r.GET("/ready", h.ready)
}

func (h *OpsHandlers) ok(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
}

func (h *OpsHandlers) ready(c *gin.Context) {
	checks := gin.H{"store": "ok"}
	ready := true

	if _, err := h.store.Load(); err != nil {
		checks["store"] = err.Error()
		ready = false
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ready(c.Request.Context()); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}
	}

	if !ready {
		c.JSON(nethttp.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
		return
	}
	c.JSON(nethttp.StatusOK, gin.H{"status": "ready", "checks": checks})
}
