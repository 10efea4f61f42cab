package repositories

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"music-shop/pkg/database/postgresql"
)

var testPool *pgxpool.Pool

// TestMain подключается к тестовой БД, если задан TEST_DATABASE_URL,
// и применяет миграции. Без переменной интеграционные тесты скипаются.
func TestMain(m *testing.M) {
	testDbUrl := os.Getenv("TEST_DATABASE_URL")
	if testDbUrl != "" {
		if err := postgresql.RunMigrations(testDbUrl); err != nil {
			log.Fatalf("не удалось применить миграции к тестовой БД: %v", err)
		}
		var err error
		testPool, err = pgxpool.New(context.Background(), testDbUrl)
		if err != nil {
			log.Fatalf("не удалось подключиться к тестовой БД: %v", err)
		}
		defer testPool.Close()
	}

	os.Exit(m.Run())
}

func requireTestDB(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан, интеграционный тест пропущен")
	}
}

// cleanupTables очищает данные между тестами; справочник statuses
// наполняется миграцией и не трогается.
func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE TABLE order_history, order_trade_in_items, order_items, orders,
			trade_in_catalog, trade_in_conditions, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err, "не удалось очистить таблицы")
}

func seedUser(t *testing.T, pool *pgxpool.Pool, fio, role string) uint64 {
	t.Helper()
	var id uint64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (fio, role) VALUES ($1, $2) RETURNING id`, fio, role).Scan(&id)
	require.NoError(t, err)
	return id
}
