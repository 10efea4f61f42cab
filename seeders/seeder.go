package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedAll наполняет справочники и тестовых пользователей. Повторный
// запуск безопасен: существующие записи не трогаются.
func SeedAll(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("запуск наполнения базы...")

	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("ошибка наполнения пользователей: %v", err)
	}
	if err := seedTradeInConditions(ctx, db); err != nil {
		log.Fatalf("ошибка наполнения состояний trade-in: %v", err)
	}

	log.Println("наполнение базы завершено")
}
