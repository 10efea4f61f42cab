package controllers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/entities"
	"music-shop/internal/services"
	"music-shop/pkg/constants"
	apperrors "music-shop/pkg/errors"
	"music-shop/pkg/utils"
)

type OrderController struct {
	orderService services.OrderServiceInterface
	logger       *zap.Logger
}

func NewOrderController(orderService services.OrderServiceInterface, logger *zap.Logger) *OrderController {
	return &OrderController{orderService: orderService, logger: logger}
}

func parseOrderID(ctx echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewInvalidInputError("некорректный id заказа: %s", ctx.Param("id"))
	}
	return id, nil
}

func (c *OrderController) CreateOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	clientID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CreateOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.orderService.CreateOrder(reqCtx, clientID, payload)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, order, http.StatusCreated)
}

func (c *OrderController) FindOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	order, err := c.orderService.GetOrder(reqCtx, orderID, actorID, actorRole)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, order, http.StatusOK)
}

func (c *OrderController) GetMyOrders(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	clientID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	lp := utils.ParseListParams(ctx.Request().URL.Query())

	list, total, err := c.orderService.GetClientOrders(reqCtx, clientID, lp)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessListResponse(ctx, list, total, lp.Limit, lp.Offset)
}

func (c *OrderController) queue(ctx echo.Context, role constants.AssignableRole) error {
	lp := utils.ParseListParams(ctx.Request().URL.Query())
	list, total, err := c.orderService.GetQueue(ctx.Request().Context(), role, lp)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessListResponse(ctx, list, total, lp.Limit, lp.Offset)
}

func (c *OrderController) assigned(ctx echo.Context, role constants.AssignableRole) error {
	reqCtx := ctx.Request().Context()

	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	lp := utils.ParseListParams(ctx.Request().URL.Query())

	list, total, err := c.orderService.GetAssignedOrders(reqCtx, role, actorID, lp)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessListResponse(ctx, list, total, lp.Limit, lp.Offset)
}

func (c *OrderController) GetManagerQueue(ctx echo.Context) error {
	return c.queue(ctx, constants.AssignManager)
}

func (c *OrderController) GetManagerOrders(ctx echo.Context) error {
	return c.assigned(ctx, constants.AssignManager)
}

func (c *OrderController) GetCourierQueue(ctx echo.Context) error {
	return c.queue(ctx, constants.AssignCourier)
}

func (c *OrderController) GetCourierOrders(ctx echo.Context) error {
	return c.assigned(ctx, constants.AssignCourier)
}

func (c *OrderController) take(ctx echo.Context, role constants.AssignableRole) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.TakeOrder(reqCtx, orderID, actorID, role); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) ManagerTake(ctx echo.Context) error {
	return c.take(ctx, constants.AssignManager)
}

func (c *OrderController) CourierTake(ctx echo.Context) error {
	return c.take(ctx, constants.AssignCourier)
}

func (c *OrderController) MarkReady(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.MarkReady(reqCtx, orderID, actorID, actorRole); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) FinishOrder(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.FinishOrder(reqCtx, orderID, actorID, actorRole); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

// PatchStatus — клиентский PATCH статуса (фактически — самоотмена).
func (c *OrderController) PatchStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	clientID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.ClientStatusPatchDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.ClientCancel(reqCtx, orderID, clientID, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) StaffCancel(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.CancelOrderDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.StaffCancel(reqCtx, orderID, actorID, actorRole, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) AdminSetStatus(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.AdminStatusDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.AdminSetStatus(reqCtx, orderID, actorID, actorRole, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) AdminAssign(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.AssignDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.AdminAssign(reqCtx, orderID, actorID, actorRole, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) AdminUnassign(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorID, err := utils.GetUserIDFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	actorRole, err := utils.GetUserRoleFromCtx(reqCtx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	var payload dto.UnassignDTO
	if err := ctx.Bind(&payload); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewInvalidInputError("некорректное тело запроса"), c.logger)
	}
	if err := ctx.Validate(&payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	if err := c.orderService.AdminUnassign(reqCtx, orderID, actorID, actorRole, payload); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, map[string]uint64{"id": orderID}, http.StatusOK)
}

func (c *OrderController) GetHistory(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	orderID, err := parseOrderID(ctx)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	history, err := c.orderService.GetOrderHistory(reqCtx, orderID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, history, http.StatusOK)
}

// parseAdminFilter собирает фильтры админского списка из query-строки.
func parseAdminFilter(query url.Values) (entities.AdminOrderFilter, error) {
	var filter entities.AdminOrderFilter
	var err error

	if filter.StatusID, err = utils.ParseOptionalUint64(query.Get("statusId")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный statusId")
	}
	if filter.ClientID, err = utils.ParseOptionalUint64(query.Get("clientId")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный clientId")
	}
	if filter.ManagerID, err = utils.ParseOptionalUint64(query.Get("managerId")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный managerId")
	}
	if filter.CourierID, err = utils.ParseOptionalUint64(query.Get("courierId")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный courierId")
	}
	if filter.DateFrom, err = utils.ParseOptionalDate(query.Get("dateFrom")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный dateFrom")
	}
	if filter.DateTo, err = utils.ParseOptionalDateEnd(query.Get("dateTo")); err != nil {
		return filter, apperrors.NewInvalidInputError("некорректный dateTo")
	}
	filter.Query = query.Get("q")

	return filter, nil
}

func (c *OrderController) GetAdminOrders(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter, err := parseAdminFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	lp := utils.ParseListParams(ctx.Request().URL.Query())

	list, total, err := c.orderService.GetAdminOrders(reqCtx, filter, lp)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessListResponse(ctx, list, total, lp.Limit, lp.Offset)
}

func (c *OrderController) GetAdminCounters(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter, err := parseAdminFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	counters, err := c.orderService.GetAdminCounters(reqCtx, filter)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, counters, http.StatusOK)
}
