package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"music-shop/internal/entities"
)

func TestComputeUnitDiscount(t *testing.T) {
	entry := &entities.TradeInCatalogEntry{BaseDiscountAmount: 200}

	assert.Equal(t, int64(150), ComputeUnitDiscount(entry, &entities.TradeInCondition{Percent: 75}))
	// 200 * 33 / 100 = 66 — округление к ближайшему целому.
	assert.Equal(t, int64(66), ComputeUnitDiscount(entry, &entities.TradeInCondition{Percent: 33}))
	// Половина округляется вверх: 150 * 33 / 100 = 49.5 → 50.
	assert.Equal(t, int64(50), ComputeUnitDiscount(
		&entities.TradeInCatalogEntry{BaseDiscountAmount: 150},
		&entities.TradeInCondition{Percent: 33}))
	// Бонусные состояния >100% допустимы.
	assert.Equal(t, int64(220), ComputeUnitDiscount(entry, &entities.TradeInCondition{Percent: 110}))
}

func TestComputeUnitDiscount_MissingInputs(t *testing.T) {
	entry := &entities.TradeInCatalogEntry{BaseDiscountAmount: 200}
	condition := &entities.TradeInCondition{Percent: 75}

	// Отсутствующая конфигурация — это скидка 0, а не ошибка.
	assert.Equal(t, int64(0), ComputeUnitDiscount(nil, condition))
	assert.Equal(t, int64(0), ComputeUnitDiscount(entry, nil))
	assert.Equal(t, int64(0), ComputeUnitDiscount(
		&entities.TradeInCatalogEntry{BaseDiscountAmount: 0}, condition))
	assert.Equal(t, int64(0), ComputeUnitDiscount(entry, &entities.TradeInCondition{Percent: 0}))
}

func TestComputeLineDiscount(t *testing.T) {
	assert.Equal(t, int64(300), ComputeLineDiscount(150, 2))
	assert.Equal(t, int64(0), ComputeLineDiscount(150, 0))
	assert.Equal(t, int64(0), ComputeLineDiscount(0, 5))
	assert.Equal(t, int64(0), ComputeLineDiscount(-10, 5))
}

func TestComputeOrderDiscount(t *testing.T) {
	lines := []DiscountLine{
		{UnitDiscount: 150, Quantity: 2},
		{UnitDiscount: 66, Quantity: 1},
	}
	assert.Equal(t, int64(366), ComputeOrderDiscount(lines))
	assert.Equal(t, int64(0), ComputeOrderDiscount(nil))
}
