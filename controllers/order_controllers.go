package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

type OrderController struct {
	Orders *services.OrderService
	Access *services.AccessService
}

func NewOrderController(orders *services.OrderService, access *services.AccessService) *OrderController {
	return &OrderController{Orders: orders, Access: access}
}

// orderInStore resolves the store of the order behind :id and checks the
// caller's permission there. A missing order answers 404 before any access
// check.
func (oc *OrderController) orderInStore(c *gin.Context, permission string) (uint, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return 0, false
	}
	storeID, err := oc.Orders.StoreIDOf(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return 0, false
	}
	if _, ok := authorize(c, oc.Access, storeID, permission); !ok {
		return 0, false
	}
	return id, true
}

// CreateOrder -> customer order from a table or takeout, no login needed
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.Create(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := oc.Orders.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order", order)
}

func (oc *OrderController) GetHistory(c *gin.Context) {
	id, ok := oc.orderInStore(c, services.PermOrderRead)
	if !ok {
		return
	}
	logs, err := oc.Orders.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order history", logs)
}

// UpdateStatus -> any status may follow any other; the optional version
// guards against concurrent edits
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := oc.orderInStore(c, services.PermOrderWrite)
	if !ok {
		return
	}
	var in services.UpdateStatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor := middlewares.CurrentUserID(c)
	in.ActorID = &actor

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) UpdatePayment(c *gin.Context) {
	id, ok := oc.orderInStore(c, services.PermOrderWrite)
	if !ok {
		return
	}
	var in services.UpdatePaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.UpdatePayment(c.Request.Context(), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment updated", order)
}

func (oc *OrderController) UpdateQueue(c *gin.Context) {
	id, ok := oc.orderInStore(c, services.PermOrderWrite)
	if !ok {
		return
	}
	var in services.UpdateQueueInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	order, err := oc.Orders.UpdateQueue(c.Request.Context(), id, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Queue updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := oc.orderInStore(c, services.PermOrderDelete)
	if !ok {
		return
	}
	if err := oc.Orders.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.WithField("order_id", id).Info("order deleted")
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

// GetStoreOrders lists a store's orders, filtered by ?status= and ?date=.
func (oc *OrderController) GetStoreOrders(c *gin.Context) {
	orders, err := oc.Orders.ListByStore(c.Request.Context(), middlewares.StoreID(c), c.Query("status"), c.Query("date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Orders", orders)
}

func (oc *OrderController) GetNextQueue(c *gin.Context) {
	next, err := oc.Orders.NextQueueNumber(c.Request.Context(), middlewares.StoreID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Next queue number", gin.H{"next_queue_number": next})
}

func (oc *OrderController) GetStats(c *gin.Context) {
	stats, err := oc.Orders.Stats(c.Request.Context(), middlewares.StoreID(c), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order stats", stats)
}

func (oc *OrderController) GetDetailedStats(c *gin.Context) {
	stats, err := oc.Orders.DetailedStats(c.Request.Context(), middlewares.StoreID(c), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Detailed order stats", stats)
}
