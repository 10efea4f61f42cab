package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedCondition struct {
	Code    string
	Name    string
	Percent int
}

var defaultConditions = []seedCondition{
	{Code: "LIKE_NEW", Name: "Как новый", Percent: 90},
	{Code: "GOOD", Name: "Хорошее состояние", Percent: 70},
	{Code: "FAIR", Name: "Удовлетворительное", Percent: 50},
	{Code: "POOR", Name: "Сильный износ", Percent: 25},
}

func seedTradeInConditions(ctx context.Context, db *pgxpool.Pool) error {
	for _, c := range defaultConditions {
		tag, err := db.Exec(ctx, `
			INSERT INTO trade_in_conditions (code, name, percent)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING`,
			c.Code, c.Name, c.Percent)
		if err != nil {
			return fmt.Errorf("ошибка создания состояния %s: %w", c.Code, err)
		}
		if tag.RowsAffected() > 0 {
			log.Printf("  - создано состояние %s (%d%%)", c.Code, c.Percent)
		}
	}
	return nil
}
