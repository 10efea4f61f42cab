package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/services"
	apperrors "music-shop/pkg/errors"
	"music-shop/pkg/utils"
)

type TradeInController struct {
	tradeInService services.TradeInServiceInterface
	logger         *zap.Logger
}

func NewTradeInController(tradeInService services.TradeInServiceInterface, logger *zap.Logger) *TradeInController {
	return &TradeInController{tradeInService: tradeInService, logger: logger}
}

func (c *TradeInController) GetCatalog(ctx echo.Context) error {
	lp := utils.ParseListParams(ctx.Request().URL.Query())

	list, total, err := c.tradeInService.GetCatalogEntries(ctx.Request().Context(), uint64(lp.Limit), uint64(lp.Offset))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessListResponse(ctx, list, total, lp.Limit, lp.Offset)
}

func (c *TradeInController) CreateCatalogEntry(ctx echo.Context) error {
	var payload dto.CreateTradeInCatalogDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	entry, err := c.tradeInService.CreateCatalogEntry(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, entry, http.StatusCreated)
}

func (c *TradeInController) ActivateCatalogEntry(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректный id записи: %s", ctx.Param("id")), c.logger)
	}

	if err := c.tradeInService.ActivateCatalogEntry(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": id}, http.StatusOK)
}

func (c *TradeInController) GetConditions(ctx echo.Context) error {
	conditions, err := c.tradeInService.GetConditions(ctx.Request().Context())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, conditions, http.StatusOK)
}

func (c *TradeInController) CreateCondition(ctx echo.Context) error {
	var payload dto.CreateTradeInConditionDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	condition, err := c.tradeInService.CreateCondition(ctx.Request().Context(), payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, condition, http.StatusCreated)
}

// GetQuote — предварительный расчёт скидки для корзины. Доступен
// любому авторизованному пользователю, состояние не меняет.
func (c *TradeInController) GetQuote(ctx echo.Context) error {
	var payload dto.QuoteRequestDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	quote, err := c.tradeInService.GetQuote(ctx.Request().Context(), payload.Items)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, quote, http.StatusOK)
}
