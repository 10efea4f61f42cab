package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"music-shop/internal/controllers"
	"music-shop/internal/repositories"
	"music-shop/internal/services"
	"music-shop/pkg/config"
	"music-shop/pkg/middleware"
	"music-shop/pkg/service"
)

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, redisClient *redis.Client, jwtSvc service.JWTService, logger *zap.Logger, cfg *config.Config) {
	api := e.Group("/api")
	authMW := middleware.NewAuthMiddleware(jwtSvc, logger)
	txManager := repositories.NewTxManager(dbConn)

	// Репозитории
	userRepo := repositories.NewUserRepository(dbConn)
	orderRepo := repositories.NewOrderRepository(dbConn, logger)
	historyRepo := repositories.NewOrderHistoryRepository(dbConn)
	tradeInRepo := repositories.NewTradeInRepository(dbConn)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// Сервисы
	tradeInService := services.NewTradeInService(txManager, tradeInRepo, cacheRepo, cfg.Cache.TradeInTTL, logger)
	orderService := services.NewOrderService(txManager, orderRepo, historyRepo, userRepo, tradeInService, logger)

	// Контроллеры
	orderCtrl := controllers.NewOrderController(orderService, logger)
	tradeInCtrl := controllers.NewTradeInController(tradeInService, logger)
	reportCtrl := controllers.NewReportController(orderService, logger)

	secure := api.Group("", authMW.Auth)

	registerOrderRoutes(secure, orderCtrl, reportCtrl, authMW)
	registerTradeInRoutes(secure, tradeInCtrl, authMW)
}
