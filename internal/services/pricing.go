package services

import "music-shop/internal/entities"

// Расчёт trade-in скидки. Единственное место с политикой округления:
// до ближайшего целого рубля, половина — вверх.

type DiscountLine struct {
	UnitDiscount int64
	Quantity     int
}

// ComputeUnitDiscount — потолок выплаты, масштабированный процентом
// состояния. Отсутствующая конфигурация — это скидка 0, а не ошибка:
// оформление заказа из-за неё не блокируется.
func ComputeUnitDiscount(entry *entities.TradeInCatalogEntry, condition *entities.TradeInCondition) int64 {
	if entry == nil || condition == nil {
		return 0
	}
	if entry.BaseDiscountAmount <= 0 || condition.Percent <= 0 {
		return 0
	}
	return (entry.BaseDiscountAmount*int64(condition.Percent) + 50) / 100
}

func ComputeLineDiscount(unitDiscount int64, quantity int) int64 {
	if unitDiscount <= 0 || quantity <= 0 {
		return 0
	}
	return unitDiscount * int64(quantity)
}

// ComputeOrderDiscount — сумма по строкам. Значение фиксируется в заказе
// при оформлении; пересчёт по обновлённому каталогу размещённые заказы
// не меняет.
func ComputeOrderDiscount(lines []DiscountLine) int64 {
	var total int64
	for _, line := range lines {
		total += ComputeLineDiscount(line.UnitDiscount, line.Quantity)
	}
	return total
}
