package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wemarket/qr-order/config"
	"github.com/wemarket/qr-order/controllers"
	"github.com/wemarket/qr-order/middlewares"
	"github.com/wemarket/qr-order/realtime"
	"github.com/wemarket/qr-order/services"
	"github.com/wemarket/qr-order/utils"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the shared handles the HTTP layer is built from.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Tokens    *utils.TokenManager
	Access    *services.AccessService
	Orders    *services.OrderService
	Analytics *services.AnalyticsService
	Hub       *realtime.Hub
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.Config.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.NewRateLimiter(rate.Limit(d.Config.RateLimitRPS), d.Config.RateLimitBurst).RateLimit())

	// Controllers
	userCtrl := controllers.NewUserController(d.DB, d.Tokens)
	storeCtrl := controllers.NewStoreController(d.DB)
	staffCtrl := controllers.NewStaffController(d.DB, d.Access)
	categoryCtrl := controllers.NewCategoryController(d.DB, d.Access)
	productCtrl := controllers.NewProductController(d.DB, d.Access)
	tableCtrl := controllers.NewTableController(d.DB, d.Access, d.Config.PublicBaseURL)
	assignmentCtrl := controllers.NewAssignmentController(d.DB, d.Access)
	orderCtrl := controllers.NewOrderController(d.Orders, d.Access)
	notificationCtrl := controllers.NewNotificationController(d.Orders)
	receiptCtrl := controllers.NewReceiptController(d.Orders, d.Access)
	analyticsCtrl := controllers.NewAnalyticsController(d.Analytics)
	wsCtrl := controllers.NewWSController(d.Hub, d.Access, d.Config.CORSOrigins)

	auth := middlewares.AuthMiddleware(d.Tokens)
	can := func(permission string) gin.HandlerFunc {
		return middlewares.RequireStorePermission(d.Access, permission)
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/ws", middlewares.WebSocketAuthMiddleware(d.Tokens), wsCtrl.Handle)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		strict := middlewares.NewStrictRateLimiter().RateLimit()
		authGroup.POST("/register", strict, userCtrl.Register)
		authGroup.POST("/login", strict, userCtrl.Login)
		authGroup.GET("/me", auth, userCtrl.GetProfile)
		authGroup.PUT("/password", auth, userCtrl.ChangePassword)
		authGroup.POST("/logout", auth, userCtrl.Logout)
	}

	stores := api.Group("/stores")
	{
		stores.GET("", storeCtrl.GetAllStores)
		stores.GET("/my", auth, storeCtrl.GetMyStores)
		stores.GET("/:id", storeCtrl.GetStoreByID)
		stores.POST("", auth, storeCtrl.CreateStore)
		stores.PUT("/:id", auth, can(services.PermStoreSettings), storeCtrl.UpdateStore)
		stores.DELETE("/:id", auth, can(services.PermStoreDelete), storeCtrl.DeleteStore)

		stores.GET("/:id/table-assignments", auth, can(services.PermTableRead), assignmentCtrl.GetAssignments)
		stores.PUT("/:id/table-assignments/:tableId", auth, can(services.PermTableAssign), assignmentCtrl.Assign)
		stores.DELETE("/:id/table-assignments/:tableId", auth, can(services.PermTableAssign), assignmentCtrl.Unassign)
		stores.GET("/:id/my-tables", auth, can(services.PermTableRead), assignmentCtrl.MyTables)
	}

	staff := api.Group("/staff")
	{
		staff.GET("/roles", staffCtrl.Roles)
		staff.GET("/my-stores", auth, staffCtrl.MyStores)
		staff.GET("/my-role/:storeId", auth, staffCtrl.MyRole)
		staff.GET("/store/:storeId", auth, can(services.PermStaffManage), staffCtrl.GetStaff)
		staff.POST("/store/:storeId", auth, can(services.PermStaffManage), staffCtrl.AddStaff)
		staff.PUT("/:id", auth, staffCtrl.UpdateRole)
		staff.DELETE("/:id", auth, staffCtrl.RemoveStaff)
	}

	categories := api.Group("/categories")
	{
		categories.GET("/store/:storeId", categoryCtrl.GetCategories)
		categories.POST("", auth, can(services.PermCategoryWrite), categoryCtrl.CreateCategory)
		categories.PUT("/:id", auth, categoryCtrl.UpdateCategory)
		categories.DELETE("/:id", auth, categoryCtrl.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("/store/:storeId", productCtrl.GetProducts)
		products.GET("/:id", productCtrl.GetProductByID)
		products.POST("", auth, can(services.PermMenuWrite), productCtrl.CreateProduct)
		products.PUT("/:id", auth, productCtrl.UpdateProduct)
		products.DELETE("/:id", auth, productCtrl.DeleteProduct)
	}

	tables := api.Group("/tables")
	{
		tables.GET("/store/:storeId", tableCtrl.GetTables)
		tables.GET("/qr/:qrCode", tableCtrl.GetTableByQR)
		tables.POST("", auth, can(services.PermTableManage), tableCtrl.CreateTable)
		tables.PUT("/:id", auth, tableCtrl.UpdateTable)
		tables.DELETE("/:id", auth, tableCtrl.DeleteTable)
		tables.POST("/:id/regenerate-qr", auth, tableCtrl.RegenerateQR)
		tables.GET("/:id/qr.png", auth, tableCtrl.GetTableQR)
	}

	orders := api.Group("/orders")
	{
		// -- CUSTOMER (no auth) --
		orders.POST("", orderCtrl.CreateOrder)
		orders.GET("/:id", orderCtrl.GetOrder)
		orders.GET("/:id/events", notificationCtrl.GetOrderEvents)

		orders.GET("/:id/history", auth, orderCtrl.GetHistory)
		orders.GET("/:id/receipt.pdf", auth, receiptCtrl.GenerateReceipt)
		orders.PUT("/:id/status", auth, orderCtrl.UpdateStatus)
		orders.PUT("/:id/payment", auth, orderCtrl.UpdatePayment)
		orders.PUT("/:id/queue", auth, orderCtrl.UpdateQueue)
		orders.DELETE("/:id", auth, orderCtrl.DeleteOrder)

		orders.GET("/store/:storeId", auth, can(services.PermOrderRead), orderCtrl.GetStoreOrders)
		orders.GET("/store/:storeId/next-queue", auth, can(services.PermOrderRead), orderCtrl.GetNextQueue)
		orders.GET("/store/:storeId/stats", auth, can(services.PermStatsRead), orderCtrl.GetStats)
		orders.GET("/store/:storeId/stats/detailed", auth, can(services.PermStatsRead), orderCtrl.GetDetailedStats)
	}

	analytics := api.Group("/analytics/:storeId", auth, can(services.PermAnalyticsRead))
	{
		analytics.GET("/sales", analyticsCtrl.GetSales)
		analytics.GET("/comparison", analyticsCtrl.GetComparison)
		analytics.GET("/products", analyticsCtrl.GetProducts)
		analytics.GET("/staff", analyticsCtrl.GetStaff)
		analytics.GET("/hourly", analyticsCtrl.GetHourly)
	}

	return r
}
