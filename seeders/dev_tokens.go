package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"music-shop/pkg/service"
)

// PrintDevTokens печатает access-токены стандартных пользователей, чтобы
// не собирать их руками при локальной разработке. В production не зовётся.
func PrintDevTokens(db *pgxpool.Pool, jwtSvc service.JWTService) error {
	ctx := context.Background()
	log.Println("dev-токены стандартных пользователей:")

	for _, u := range defaultUsers {
		var (
			id   uint64
			role string
		)
		err := db.QueryRow(ctx, "SELECT id, role FROM users WHERE phone = $1", u.Phone).Scan(&id, &role)
		if err != nil {
			return fmt.Errorf("пользователь %s не найден: %w", u.Phone, err)
		}

		accessToken, _, err := jwtSvc.GenerateTokens(id, role)
		if err != nil {
			return fmt.Errorf("ошибка генерации токена для %s: %w", u.Phone, err)
		}
		log.Printf("  - %s (%s): %s", u.Fio, role, accessToken)
	}
	return nil
}
