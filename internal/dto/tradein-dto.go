package dto

type TradeInCatalogDTO struct {
	ID                 uint64 `json:"id"`
	ProductID          uint64 `json:"productId"`
	ReferencePrice     int64  `json:"referencePrice"`
	BaseDiscountAmount int64  `json:"baseDiscountAmount"`
	IsActive           bool   `json:"isActive"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

type CreateTradeInCatalogDTO struct {
	ProductID          uint64 `json:"productId" validate:"required"`
	ReferencePrice     int64  `json:"referencePrice" validate:"required,gt=0"`
	BaseDiscountAmount int64  `json:"baseDiscountAmount" validate:"required,gt=0"`
	IsActive           bool   `json:"isActive"`
}

type TradeInConditionDTO struct {
	ID      uint64 `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

type CreateTradeInConditionDTO struct {
	Code    string `json:"code" validate:"required,condition_code"`
	Name    string `json:"name" validate:"required,min=2"`
	Percent int    `json:"percent" validate:"gte=0,lte=1000"`
}

// QuoteRequestDTO — предварительный расчёт скидки для корзины.
type QuoteRequestDTO struct {
	Items []CreateTradeInSelectionDTO `json:"items" validate:"required,min=1,dive"`
}

type QuoteLineDTO struct {
	ProductID     uint64 `json:"productId"`
	ConditionCode string `json:"conditionCode"`
	Quantity      int    `json:"quantity"`
	UnitDiscount  int64  `json:"unitDiscount"`
	LineDiscount  int64  `json:"lineDiscount"`
}

type QuoteDTO struct {
	Lines         []QuoteLineDTO `json:"lines"`
	TotalDiscount int64          `json:"totalDiscount"`
}
