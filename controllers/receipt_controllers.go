package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

type ReceiptController struct {
	Orders *services.OrderService
	Access *services.AccessService
}

func NewReceiptController(orders *services.OrderService, access *services.AccessService) *ReceiptController {
	return &ReceiptController{Orders: orders, Access: access}
}

// GenerateReceipt renders the order as a PDF receipt.
func (rc *ReceiptController) GenerateReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := rc.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if _, ok := authorize(c, rc.Access, order.StoreID, services.PermOrderRead); !ok {
		return
	}

	var buf bytes.Buffer
	if err := services.RenderReceipt(&buf, order); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("order_id", order.ID).
		WithField("user_id", middlewares.CurrentUserID(c)).
		Info("receipt generated")
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", order.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
