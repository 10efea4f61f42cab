package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"music-shop/internal/entities"
)

type OrderHistoryRepositoryInterface interface {
	// CreateInTx пишет запись журнала в той же транзакции, что и мутация
	// заказа. Отдельно от транзакции журнал не пополняется.
	CreateInTx(ctx context.Context, tx pgx.Tx, history *entities.OrderHistory) error
	FindByOrderID(ctx context.Context, orderID uint64) ([]entities.OrderHistoryItem, error)
}

type OrderHistoryRepository struct {
	storage *pgxpool.Pool
}

func NewOrderHistoryRepository(storage *pgxpool.Pool) OrderHistoryRepositoryInterface {
	return &OrderHistoryRepository{storage: storage}
}

func (r *OrderHistoryRepository) CreateInTx(ctx context.Context, tx pgx.Tx, history *entities.OrderHistory) error {
	query := `
		INSERT INTO order_history (order_id, user_id, user_role, event_type, old_status_id, new_status_id, note)
		VALUES ($1, $2, $3, $4,
			(SELECT id FROM statuses WHERE code = $5),
			(SELECT id FROM statuses WHERE code = $6),
			$7)`
	_, err := tx.Exec(ctx, query,
		history.OrderID, history.UserID, history.UserRole, history.EventType,
		history.OldStatusCode, history.NewStatusCode, history.Note)
	return err
}

func (r *OrderHistoryRepository) FindByOrderID(ctx context.Context, orderID uint64) ([]entities.OrderHistoryItem, error) {
	query := `
		SELECT
			h.id, h.order_id, h.user_id, h.user_role, h.event_type,
			olds.code AS old_status_code,
			news.code AS new_status_code,
			h.note, u.fio AS actor_fio, h.created_at
		FROM order_history h
		LEFT JOIN users u ON h.user_id = u.id
		LEFT JOIN statuses olds ON h.old_status_id = olds.id
		LEFT JOIN statuses news ON h.new_status_id = news.id
		WHERE h.order_id = $1
		ORDER BY h.created_at ASC, h.id ASC`

	rows, err := r.storage.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]entities.OrderHistoryItem, 0)
	for rows.Next() {
		var h entities.OrderHistoryItem
		if err := rows.Scan(
			&h.ID, &h.OrderID, &h.UserID, &h.UserRole, &h.EventType,
			&h.OldStatusCode, &h.NewStatusCode,
			&h.Note, &h.ActorFio, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
