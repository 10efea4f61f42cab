package routes

import (
	"github.com/labstack/echo/v4"

	"music-shop/internal/controllers"
	"music-shop/pkg/constants"
	"music-shop/pkg/middleware"
)

func registerTradeInRoutes(secure *echo.Group, tradeInCtrl *controllers.TradeInController, authMW *middleware.AuthMiddleware) {
	tradeIn := secure.Group("/trade-in")

	// Расчёт и справочник состояний доступны любому авторизованному.
	tradeIn.POST("/quote", tradeInCtrl.GetQuote)
	tradeIn.GET("/conditions", tradeInCtrl.GetConditions)

	// Конфигурацию правит только админ.
	admin := authMW.RequireRoles(constants.RoleAdmin)
	tradeIn.GET("/catalog", tradeInCtrl.GetCatalog, admin)
	tradeIn.POST("/catalog", tradeInCtrl.CreateCatalogEntry, admin)
	tradeIn.POST("/catalog/:id/activate", tradeInCtrl.ActivateCatalogEntry, admin)
	tradeIn.POST("/conditions", tradeInCtrl.CreateCondition, admin)
}
