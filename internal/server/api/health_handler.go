package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/storage"
)

// HealthHandler reports whether both persistence tiers answer.
type HealthHandler struct {
	store   meta.Store
	backend storage.Backend
}

func NewHealthHandler(store meta.Store, backend storage.Backend) *HealthHandler {
	return &HealthHandler{store: store, backend: backend}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.store.Ping(ctx); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "metadata store unreachable")
		return
	}
	if err := h.backend.Ping(ctx); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "storage backend unreachable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
