package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/multipart"
	"github.com/driftlabs/driftfile/internal/server/transfer"
	"github.com/driftlabs/driftfile/internal/storage"
)

// Uploads come from command-line clients and scripted integrations, not
// browsers, so origin checking is disabled.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler upgrades upload connections and hands them to the transfer
// handler, one per connection.
type WSHandler struct {
	store       meta.Store
	backend     storage.Backend
	coordinator *multipart.Coordinator
	opts        transfer.Options
	logger      logging.Logger
}

func NewWSHandler(store meta.Store, backend storage.Backend, coordinator *multipart.Coordinator, opts transfer.Options, logger logging.Logger) *WSHandler {
	return &WSHandler{
		store:       store,
		backend:     backend,
		coordinator: coordinator,
		opts:        opts,
		logger:      logger,
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Debug(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
	handler := transfer.NewHandler(conn, h.store, h.backend, h.coordinator, h.opts, h.logger)
	handler.Serve(c.Request.Context())
}
