package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/realtime"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

// WSController upgrades /ws connections and hands them to the realtime hub.
type WSController struct {
	Hub      *realtime.Hub
	Access   *services.AccessService
	upgrader websocket.Upgrader
}

// NewWSController accepts browser connections from the given origins; "*"
// or an empty list accepts any origin.
func NewWSController(hub *realtime.Hub, access *services.AccessService, origins []string) *WSController {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSController{
		Hub:    hub,
		Access: access,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// Handle -> endpoint WebSocket; the connection is anonymous unless the auth
// middleware accepted a token
func (wc *WSController) Handle(c *gin.Context) {
	conn, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	realtime.Serve(wc.Hub, conn, middlewares.CurrentUserID(c), wc.Access)
}
