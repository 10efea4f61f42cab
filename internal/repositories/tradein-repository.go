package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"music-shop/internal/entities"
	apperrors "music-shop/pkg/errors"
)

const (
	tradeInCatalogTable  = "trade_in_catalog"
	tradeInCatalogFields = "id, product_id, reference_price, base_discount_amount, is_active, created_at, updated_at"

	tradeInConditionTable  = "trade_in_conditions"
	tradeInConditionFields = "id, code, name, percent, created_at, updated_at"
)

type TradeInRepositoryInterface interface {
	GetCatalogEntries(ctx context.Context, limit, offset uint64) ([]entities.TradeInCatalogEntry, uint64, error)
	FindActiveCatalogEntry(ctx context.Context, productID uint64) (*entities.TradeInCatalogEntry, error)
	CreateCatalogEntry(ctx context.Context, tx pgx.Tx, entry *entities.TradeInCatalogEntry) (uint64, error)
	// ActivateCatalogEntryInTx атомарно гасит прежнюю активную запись
	// по тому же товару и включает указанную. Две активные записи на
	// один товар невозможны.
	ActivateCatalogEntryInTx(ctx context.Context, tx pgx.Tx, id uint64) error
	DeactivateOthersInTx(ctx context.Context, tx pgx.Tx, productID, keepID uint64) error
	FindCatalogEntryInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.TradeInCatalogEntry, error)

	GetConditions(ctx context.Context) ([]entities.TradeInCondition, error)
	FindConditionByCode(ctx context.Context, code string) (*entities.TradeInCondition, error)
	CreateCondition(ctx context.Context, condition *entities.TradeInCondition) (uint64, error)
}

type TradeInRepository struct {
	storage *pgxpool.Pool
}

func NewTradeInRepository(storage *pgxpool.Pool) TradeInRepositoryInterface {
	return &TradeInRepository{storage: storage}
}

func scanCatalogEntry(row pgx.Row) (*entities.TradeInCatalogEntry, error) {
	var e entities.TradeInCatalogEntry
	err := row.Scan(&e.ID, &e.ProductID, &e.ReferencePrice, &e.BaseDiscountAmount, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *TradeInRepository) GetCatalogEntries(ctx context.Context, limit, offset uint64) ([]entities.TradeInCatalogEntry, uint64, error) {
	var total uint64
	if err := r.storage.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", tradeInCatalogTable)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей trade-in: %w", err)
	}
	if total == 0 {
		return []entities.TradeInCatalogEntry{}, 0, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY product_id, id LIMIT $1 OFFSET $2",
		tradeInCatalogFields, tradeInCatalogTable)
	rows, err := r.storage.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := make([]entities.TradeInCatalogEntry, 0)
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	return entries, total, rows.Err()
}

func (r *TradeInRepository) FindActiveCatalogEntry(ctx context.Context, productID uint64) (*entities.TradeInCatalogEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE product_id = $1 AND is_active LIMIT 1",
		tradeInCatalogFields, tradeInCatalogTable)
	entry, err := scanCatalogEntry(r.storage.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *TradeInRepository) FindCatalogEntryInTx(ctx context.Context, tx pgx.Tx, id uint64) (*entities.TradeInCatalogEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", tradeInCatalogFields, tradeInCatalogTable)
	entry, err := scanCatalogEntry(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

func (r *TradeInRepository) CreateCatalogEntry(ctx context.Context, tx pgx.Tx, entry *entities.TradeInCatalogEntry) (uint64, error) {
	var newID uint64
	query := fmt.Sprintf(`
		INSERT INTO %s (product_id, reference_price, base_discount_amount, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW()) RETURNING id`, tradeInCatalogTable)
	if err := tx.QueryRow(ctx, query, entry.ProductID, entry.ReferencePrice, entry.BaseDiscountAmount).Scan(&newID); err != nil {
		return 0, fmt.Errorf("ошибка записи в 'trade_in_catalog': %w", err)
	}
	return newID, nil
}

func (r *TradeInRepository) DeactivateOthersInTx(ctx context.Context, tx pgx.Tx, productID, keepID uint64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = FALSE, updated_at = NOW()
		WHERE product_id = $1 AND id <> $2 AND is_active`, tradeInCatalogTable)
	_, err := tx.Exec(ctx, query, productID, keepID)
	return err
}

func (r *TradeInRepository) ActivateCatalogEntryInTx(ctx context.Context, tx pgx.Tx, id uint64) error {
	query := fmt.Sprintf(`UPDATE %s SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, tradeInCatalogTable)
	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewConflictError("для этого товара уже есть активная запись trade-in")
		}
		return fmt.Errorf("ошибка активации записи trade-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanCondition(row pgx.Row) (*entities.TradeInCondition, error) {
	var c entities.TradeInCondition
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Percent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *TradeInRepository) GetConditions(ctx context.Context) ([]entities.TradeInCondition, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY percent DESC", tradeInConditionFields, tradeInConditionTable)
	rows, err := r.storage.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conditions := make([]entities.TradeInCondition, 0)
	for rows.Next() {
		condition, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, *condition)
	}
	return conditions, rows.Err()
}

func (r *TradeInRepository) FindConditionByCode(ctx context.Context, code string) (*entities.TradeInCondition, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE code = $1", tradeInConditionFields, tradeInConditionTable)
	condition, err := scanCondition(r.storage.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return condition, nil
}

func (r *TradeInRepository) CreateCondition(ctx context.Context, condition *entities.TradeInCondition) (uint64, error) {
	var newID uint64
	query := fmt.Sprintf(`
		INSERT INTO %s (code, name, percent, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id`, tradeInConditionTable)
	err := r.storage.QueryRow(ctx, query, condition.Code, condition.Name, condition.Percent).Scan(&newID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, apperrors.NewConflictError("состояние с кодом %s уже существует", condition.Code)
		}
		return 0, fmt.Errorf("ошибка записи в 'trade_in_conditions': %w", err)
	}
	return newID, nil
}
