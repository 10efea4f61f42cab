package routes

import (
	"github.com/labstack/echo/v4"

	"music-shop/internal/controllers"
	"music-shop/pkg/constants"
	"music-shop/pkg/middleware"
)

// Маршруты заказов. Порядок регистрации важен: статические сегменты
// admin/... должны идти раньше параметрических /:id.
func registerOrderRoutes(secure *echo.Group, orderCtrl *controllers.OrderController, reportCtrl *controllers.ReportController, authMW *middleware.AuthMiddleware) {
	orders := secure.Group("/orders")

	// Клиент
	client := authMW.RequireRoles(constants.RoleClient)
	orders.POST("", orderCtrl.CreateOrder, client)
	orders.GET("/my", orderCtrl.GetMyOrders, client)

	// Менеджер
	manager := authMW.RequireRoles(constants.RoleManager, constants.RoleAdmin)
	orders.GET("/manager/queue", orderCtrl.GetManagerQueue, manager)
	orders.GET("/manager/my", orderCtrl.GetManagerOrders, manager)
	orders.POST("/:id/manager/take", orderCtrl.ManagerTake, manager)
	orders.POST("/:id/manager/mark-ready", orderCtrl.MarkReady, manager)

	// Курьер
	courier := authMW.RequireRoles(constants.RoleCourier, constants.RoleAdmin)
	orders.GET("/courier/queue", orderCtrl.GetCourierQueue, courier)
	orders.GET("/courier/my", orderCtrl.GetCourierOrders, courier)
	orders.POST("/:id/courier/take", orderCtrl.CourierTake, courier)
	orders.POST("/:id/courier/finish", orderCtrl.FinishOrder, courier)

	// Админ (отмена доступна и менеджеру)
	admin := authMW.RequireRoles(constants.RoleAdmin)
	staff := authMW.RequireRoles(constants.RoleManager, constants.RoleAdmin)
	orders.GET("/admin", orderCtrl.GetAdminOrders, admin)
	orders.GET("/admin/counters", orderCtrl.GetAdminCounters, admin)
	orders.GET("/admin/export", reportCtrl.ExportOrders, admin)
	orders.POST("/admin/:id/cancel", orderCtrl.StaffCancel, staff)
	orders.POST("/admin/:id/status", orderCtrl.AdminSetStatus, admin)
	orders.POST("/admin/:id/assign", orderCtrl.AdminAssign, admin)
	orders.POST("/admin/:id/unassign", orderCtrl.AdminUnassign, admin)
	orders.GET("/admin/:id/history", orderCtrl.GetHistory, admin)

	// Общие
	orders.GET("/:id", orderCtrl.FindOrder)
	orders.PATCH("/:id/status", orderCtrl.PatchStatus, client)
}
