// Package api exposes the HTTP surface: health, the websocket upload
// endpoint and a small REST seam over the files service for download
// clients.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/multipart"
	"github.com/driftlabs/driftfile/internal/server/files"
	"github.com/driftlabs/driftfile/internal/server/transfer"
	"github.com/driftlabs/driftfile/internal/storage"
)

func SetupRoutes(
	router *gin.Engine,
	filesService *files.Service,
	store meta.Store,
	backend storage.Backend,
	coordinator *multipart.Coordinator,
	opts transfer.Options,
	logger logging.Logger,
) {
	healthHandler := NewHealthHandler(store, backend)
	filesHandler := NewFilesHandler(filesService, logger)
	wsHandler := NewWSHandler(store, backend, coordinator, opts, logger)

	router.GET("/health", healthHandler.Check)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/ws", wsHandler.Serve)
		apiGroup.GET("/metadata/:id", filesHandler.Metadata)
		apiGroup.GET("/exists/:id", filesHandler.Exists)
		apiGroup.GET("/download/:id", filesHandler.Download)
		apiGroup.POST("/delete/:id", filesHandler.Delete)
	}
}
