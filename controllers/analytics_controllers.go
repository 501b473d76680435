package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
)

// AnalyticsController serves the owner's sales reports. Every route is
// behind analytics:read.
type AnalyticsController struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Analytics: analytics}
}

// GetSales -> ?period=daily|weekly|monthly&start=&end=
func (ac *AnalyticsController) GetSales(c *gin.Context) {
	report, err := ac.Analytics.Sales(c.Request.Context(), middlewares.StoreID(c),
		c.DefaultQuery("period", "daily"), c.Query("start"), c.Query("end"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sales", report)
}

func (ac *AnalyticsController) GetComparison(c *gin.Context) {
	report, err := ac.Analytics.Comparison(c.Request.Context(), middlewares.StoreID(c), c.DefaultQuery("period", "weekly"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Comparison", report)
}

// GetProducts -> ?start=&end=&limit=10&sort=quantity|sales
func (ac *AnalyticsController) GetProducts(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	report, err := ac.Analytics.Products(c.Request.Context(), middlewares.StoreID(c),
		c.Query("start"), c.Query("end"), limit, c.DefaultQuery("sort", "quantity"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product ranking", report)
}

func (ac *AnalyticsController) GetStaff(c *gin.Context) {
	report, err := ac.Analytics.Staff(c.Request.Context(), middlewares.StoreID(c), c.Query("start"), c.Query("end"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Staff performance", report)
}

func (ac *AnalyticsController) GetHourly(c *gin.Context) {
	report, err := ac.Analytics.Hourly(c.Request.Context(), middlewares.StoreID(c), c.Query("start"), c.Query("end"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Hourly distribution", report)
}
