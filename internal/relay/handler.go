package relay

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests into relay sessions.
type Handler struct {
	hub      *Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs the websocket entry point for the given hub.
func NewHandler(hub *Hub, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeWS upgrades one request and runs its session until the socket drops.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}
	c := newClient(h.hub, &wsWire{conn: conn, timeout: h.hub.cfg.WriteTimeout})
	c.serve(conn)
}

// Router assembles the relay's HTTP surface: the websocket endpoint plus the
// status and health probes.
func Router(hub *Hub, logger *log.Logger) *gin.Engine {
	handler := NewHandler(hub, logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/ws", func(c *gin.Context) {
		handler.ServeWS(c.Writer, c.Request)
	})
	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.StatusSnapshot())
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return engine
}
