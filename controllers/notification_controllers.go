package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

// NotificationController serves the notification backlog of an order, so a
// reconnecting client can catch up on what it missed over the websocket.
type NotificationController struct {
	Orders *services.OrderService
}

func NewNotificationController(orders *services.OrderService) *NotificationController {
	return &NotificationController{Orders: orders}
}

// GetOrderEvents -> notifications of one order, oldest first, after ?after=<eventId>
func (nc *NotificationController) GetOrderEvents(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	events, err := nc.Orders.Events(c.Request.Context(), id, c.Query("after"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order notifications", events)
}
