package entities

import "time"

// TradeInCatalogEntry — конфигурация trade-in по товару.
// BaseDiscountAmount — потолок выплаты в рублях, не зависящий от
// состояния инструмента. Активной может быть не больше одной записи
// на товар.
type TradeInCatalogEntry struct {
	ID                 uint64
	ProductID          uint64
	ReferencePrice     int64
	BaseDiscountAmount int64
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TradeInCondition — справочник состояний. Percent — множитель к потолку
// выплаты, 0–1000: допускаются бонусные состояния выше 100%.
type TradeInCondition struct {
	ID        uint64
	Code      string
	Name      string
	Percent   int
	CreatedAt time.Time
	UpdatedAt time.Time
}
