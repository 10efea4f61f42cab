package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/services"
	"music-shop/pkg/utils"
)

// ReportController — выгрузка админского списка заказов в XLSX.
// Фильтры те же, что у GET /api/orders/admin.
type ReportController struct {
	orderService services.OrderServiceInterface
	logger       *zap.Logger
}

func NewReportController(orderService services.OrderServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{orderService: orderService, logger: logger}
}

// Выгружаем всё одним листом; пагинация для экспорта не имеет смысла.
const exportLimit = 100000

func (c *ReportController) ExportOrders(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	filter, err := parseAdminFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	lp := utils.ParseListParams(ctx.Request().URL.Query())
	lp.Limit = exportLimit
	lp.Offset = 0

	orders, total, err := c.orderService.GetAdminOrders(reqCtx, filter, lp)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	c.logger.Debug("экспорт заказов в XLSX", zap.Uint64("total", total))

	return c.respondWithXLSX(ctx, orders)
}

var exportHeaders = []string{
	"№", "Статус", "Клиент", "Менеджер", "Курьер",
	"Сумма позиций", "Скидка trade-in", "Итого",
	"Адрес доставки", "Телефон", "Создан", "Обновлён",
}

func orderToRow(order dto.OrderDTO) []interface{} {
	var manager, courier string
	if order.Manager != nil {
		manager = order.Manager.Fio
	}
	if order.Courier != nil {
		courier = order.Courier.Fio
	}
	return []interface{}{
		order.ID, order.Status.Name, order.Client.Fio, manager, courier,
		order.ItemsTotal, order.TotalDiscount, order.Total,
		order.DeliveryAddress, order.DeliveryPhone, order.CreatedAt, order.UpdatedAt,
	}
}

func (c *ReportController) respondWithXLSX(ctx echo.Context, orders []dto.OrderDTO) error {
	f := excelize.NewFile()
	sheet := "Заказы"
	f.SetSheetName("Sheet1", sheet)
	f.SetSheetRow(sheet, "A1", &exportHeaders)
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellStyle(sheet, "A1", "L1", style)

	for i, order := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := orderToRow(order)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetColWidth(sheet, "B", "E", 20)
	f.SetColWidth(sheet, "I", "I", 40)
	f.SetColWidth(sheet, "J", "L", 20)

	fileName := fmt.Sprintf("orders_%s_%s.xlsx", time.Now().Format("2006-01-02"), uuid.NewString()[:8])
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
