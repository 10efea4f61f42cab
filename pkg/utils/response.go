package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "music-shop/pkg/errors"
)

// HTTPResponse — единый конверт ответа API.
// Успех:  {"success": true,  "data": ...}
// Ошибка: {"success": false, "message": "...", "details": "..."}
type HTTPResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Details string      `json:"details,omitempty"`
}

// ListData — тело списочных ответов: страница плюс общее количество
// для пагинации на стороне UI.
type ListData struct {
	List       interface{} `json:"list"`
	TotalCount uint64      `json:"totalCount"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

func SuccessResponse(ctx echo.Context, data interface{}, code int) error {
	return ctx.JSON(code, &HTTPResponse{Success: true, Data: data})
}

func SuccessListResponse(ctx echo.Context, list interface{}, total uint64, limit, offset int) error {
	return ctx.JSON(http.StatusOK, &HTTPResponse{
		Success: true,
		Data:    &ListData{List: list, TotalCount: total, Limit: limit, Offset: offset},
	})
}

// ErrorResponse переводит доменные ошибки в стабильные HTTP-коды.
// Conflict и InvalidInput различимы для UI: первый — «обновите и
// повторите», второй — «исправьте форму».
func ErrorResponse(ctx echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Error("HTTP Error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
			)
		}
		return ctx.JSON(httpErr.Code, &HTTPResponse{Success: false, Message: httpErr.Message, Details: httpErr.Details})
	}

	var invalidInput *apperrors.InvalidInputError
	if errors.As(err, &invalidInput) {
		return ctx.JSON(http.StatusBadRequest, &HTTPResponse{Success: false, Message: invalidInput.Message})
	}

	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		return ctx.JSON(http.StatusConflict, &HTTPResponse{Success: false, Message: conflict.Message})
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("Поле '%s' не прошло проверку '%s'", e.Field(), e.Tag()))
		}
		return ctx.JSON(http.StatusBadRequest, &HTTPResponse{
			Success: false,
			Message: "Ошибка валидации",
			Details: strings.Join(msgs, "; "),
		})
	}

	for sentinel, statusCode := range apperrors.ErrorList {
		if errors.Is(err, sentinel) {
			return ctx.JSON(statusCode, &HTTPResponse{Success: false, Message: sentinel.Error()})
		}
	}

	logger.Error("Unexpected Error", zap.Error(err))
	return ctx.JSON(http.StatusInternalServerError, &HTTPResponse{
		Success: false,
		Message: "Внутренняя ошибка сервера",
	})
}
