package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"music-shop/pkg/constants"
	"music-shop/pkg/utils"
)

type seedUser struct {
	Fio      string
	Phone    string
	Role     string
	Password string
}

var defaultUsers = []seedUser{
	{Fio: "Администратор магазина", Phone: "+992900000001", Role: constants.RoleAdmin, Password: "admin123"},
	{Fio: "Менеджер Первый", Phone: "+992900000002", Role: constants.RoleManager, Password: "manager123"},
	{Fio: "Менеджер Второй", Phone: "+992900000003", Role: constants.RoleManager, Password: "manager123"},
	{Fio: "Курьер Первый", Phone: "+992900000004", Role: constants.RoleCourier, Password: "courier123"},
	{Fio: "Тестовый Клиент", Phone: "+992900000005", Role: constants.RoleClient, Password: "client123"},
}

func seedUsers(ctx context.Context, db *pgxpool.Pool) error {
	for _, u := range defaultUsers {
		var existingID uint64
		err := db.QueryRow(ctx, "SELECT id FROM users WHERE phone = $1", u.Phone).Scan(&existingID)
		if err == nil {
			log.Printf("  - пользователь %s уже существует, пропускаем", u.Phone)
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("ошибка проверки пользователя %s: %w", u.Phone, err)
		}

		hash, err := utils.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("ошибка хеширования пароля для %s: %w", u.Phone, err)
		}

		_, err = db.Exec(ctx,
			"INSERT INTO users (fio, phone, role, password_hash) VALUES ($1, $2, $3, $4)",
			u.Fio, u.Phone, u.Role, hash)
		if err != nil {
			return fmt.Errorf("ошибка создания пользователя %s: %w", u.Phone, err)
		}
		log.Printf("  - создан пользователь %s (%s)", u.Fio, u.Role)
	}
	return nil
}
