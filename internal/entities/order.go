package entities

import "time"

// Order — строка таблицы orders вместе с присоединёнными справочными
// полями. Суммы хранятся в целых рублях и фиксируются при оформлении:
// последующие изменения каталога на размещённый заказ не влияют.
type Order struct {
	ID            uint64
	ClientID      uint64
	ManagerID     *uint64
	CourierID     *uint64
	StatusID      uint64
	StatusCode    string
	ItemsTotal    int64
	TotalDiscount int64
	Total         int64

	DeliveryName    string
	DeliveryPhone   string
	DeliveryAddress string
	ClientComment   *string
	InternalComment *string

	CreatedAt time.Time
	UpdatedAt time.Time

	Items        []OrderItem
	TradeInItems []OrderTradeInItem
}

type OrderItem struct {
	ID          uint64
	OrderID     uint64
	ProductID   uint64
	ProductName string
	Quantity    int
	UnitPrice   int64
}

type OrderTradeInItem struct {
	ID            uint64
	OrderID       uint64
	ProductID     uint64
	ConditionCode string
	Quantity      int
	UnitDiscount  int64
}

// AdminOrderFilter — фильтры админского списка заказов. Счётчики-фасеты
// считаются по тому же набору фильтров, что и список.
type AdminOrderFilter struct {
	StatusID  *uint64
	ClientID  *uint64
	ManagerID *uint64
	CourierID *uint64
	DateFrom  *time.Time
	DateTo    *time.Time
	Query     string
}
