package dto

import (
	"github.com/aarondl/null/v8"
)

type StatusDTO struct {
	ID   uint64 `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type DeliveryDTO struct {
	Name    string `json:"name" validate:"required,min=2"`
	Phone   string `json:"phone" validate:"required,phone_number"`
	Address string `json:"address" validate:"required,min=5"`
	Comment string `json:"comment" validate:"omitempty,max=1000"`
}

type CreateOrderItemDTO struct {
	ProductID   uint64 `json:"productId" validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice   int64  `json:"unitPrice" validate:"required,gt=0"`
}

type CreateTradeInSelectionDTO struct {
	ProductID     uint64 `json:"productId" validate:"required"`
	ConditionCode string `json:"conditionCode" validate:"required,condition_code"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderDTO — payload оформления заказа. Позиции и цены собирает
// корзина на витрине, сервер пересчитывает и замораживает итоги сам.
type CreateOrderDTO struct {
	Items        []CreateOrderItemDTO        `json:"items" validate:"required,min=1,dive"`
	TradeInItems []CreateTradeInSelectionDTO `json:"tradeInItems" validate:"omitempty,dive"`
	Delivery     DeliveryDTO                 `json:"delivery" validate:"required"`
}

type OrderItemDTO struct {
	ProductID   uint64 `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
}

type OrderTradeInItemDTO struct {
	ProductID     uint64 `json:"productId"`
	ConditionCode string `json:"conditionCode"`
	Quantity      int    `json:"quantity"`
	UnitDiscount  int64  `json:"unitDiscount"`
}

type OrderDTO struct {
	ID            uint64        `json:"id"`
	Status        StatusDTO     `json:"status"`
	Client        ShortUserDTO  `json:"client"`
	Manager       *ShortUserDTO `json:"manager"`
	Courier       *ShortUserDTO `json:"courier"`
	ItemsTotal    int64         `json:"itemsTotal"`
	TotalDiscount int64         `json:"totalDiscount"`
	Total         int64         `json:"total"`

	DeliveryName    string      `json:"deliveryName"`
	DeliveryPhone   string      `json:"deliveryPhone"`
	DeliveryAddress string      `json:"deliveryAddress"`
	ClientComment   null.String `json:"clientComment"`
	InternalComment null.String `json:"internalComment,omitempty"`

	Items        []OrderItemDTO        `json:"items,omitempty"`
	TradeInItems []OrderTradeInItemDTO `json:"tradeInItems,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CancelOrderDTO struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// ClientStatusPatchDTO — единственный допустимый переход со стороны
// клиента — самоотмена.
type ClientStatusPatchDTO struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

type AdminStatusDTO struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=1000"`
}

type AssignDTO struct {
	Role   string `json:"role" validate:"required,oneof=manager courier"`
	UserID uint64 `json:"userId" validate:"required"`
}

type UnassignDTO struct {
	Role string `json:"role" validate:"required,oneof=manager courier"`
	Note string `json:"note" validate:"required,min=3"`
}

type OrderHistoryEntryDTO struct {
	ChangedAt string       `json:"changedAt"`
	EventType string       `json:"eventType"`
	OldStatus null.String  `json:"oldStatus"`
	NewStatus null.String  `json:"newStatus"`
	ChangedBy ShortUserDTO `json:"changedBy"`
	Note      null.String  `json:"note"`
}

type CounterItemDTO struct {
	Key   string `json:"key"`
	Name  string `json:"name,omitempty"`
	Count uint64 `json:"count"`
}

type OrderCountersDTO struct {
	ByStatus  []CounterItemDTO `json:"byStatus"`
	ByManager []CounterItemDTO `json:"byManager"`
	ByCourier []CounterItemDTO `json:"byCourier"`
}
