package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-shop/internal/entities"
	apperrors "music-shop/pkg/errors"
)

func createCatalogEntry(t *testing.T, repo TradeInRepositoryInterface, productID uint64, amount int64) uint64 {
	t.Helper()
	txManager := NewTxManager(testPool)
	var id uint64
	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		newID, err := repo.CreateCatalogEntry(context.Background(), tx, &entities.TradeInCatalogEntry{
			ProductID:          productID,
			ReferencePrice:     amount * 2,
			BaseDiscountAmount: amount,
		})
		id = newID
		return err
	})
	require.NoError(t, err)
	return id
}

func activateEntry(t *testing.T, repo TradeInRepositoryInterface, productID, id uint64) {
	t.Helper()
	txManager := NewTxManager(testPool)
	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		if err := repo.DeactivateOthersInTx(context.Background(), tx, productID, id); err != nil {
			return err
		}
		return repo.ActivateCatalogEntryInTx(context.Background(), tx, id)
	})
	require.NoError(t, err)
}

// Активация новой записи гасит прежнюю: двух активных записей на один
// товар не бывает.
func TestTradeInRepository_ActivationExclusivity(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	repo := NewTradeInRepository(testPool)
	const productID = 7

	firstID := createCatalogEntry(t, repo, productID, 200)
	activateEntry(t, repo, productID, firstID)

	active, err := repo.FindActiveCatalogEntry(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, firstID, active.ID)

	secondID := createCatalogEntry(t, repo, productID, 300)
	activateEntry(t, repo, productID, secondID)

	active, err = repo.FindActiveCatalogEntry(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, secondID, active.ID)
	assert.Equal(t, int64(300), active.BaseDiscountAmount)

	var activeCount int
	err = testPool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM trade_in_catalog WHERE product_id = $1 AND is_active`, productID).Scan(&activeCount)
	require.NoError(t, err)
	assert.Equal(t, 1, activeCount)
}

// Активация без предварительной деактивации упирается в частичный
// уникальный индекс и отдаёт конфликт, а не общую ошибку.
func TestTradeInRepository_Activate_SecondActiveConflict(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	repo := NewTradeInRepository(testPool)
	txManager := NewTxManager(testPool)
	const productID = 9

	firstID := createCatalogEntry(t, repo, productID, 200)
	activateEntry(t, repo, productID, firstID)
	secondID := createCatalogEntry(t, repo, productID, 300)

	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		return repo.ActivateCatalogEntryInTx(context.Background(), tx, secondID)
	})
	var conflictErr *apperrors.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	active, err := repo.FindActiveCatalogEntry(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, firstID, active.ID)
}

func TestTradeInRepository_FindActiveCatalogEntry_NotFound(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	repo := NewTradeInRepository(testPool)

	_, err := repo.FindActiveCatalogEntry(context.Background(), 12345)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Неактивная запись активной не считается.
	createCatalogEntry(t, repo, 12345, 100)
	_, err = repo.FindActiveCatalogEntry(context.Background(), 12345)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTradeInRepository_Conditions(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	repo := NewTradeInRepository(testPool)

	_, err := repo.CreateCondition(context.Background(), &entities.TradeInCondition{
		Code: "LIKE_NEW", Name: "Как новый", Percent: 90,
	})
	require.NoError(t, err)
	_, err = repo.CreateCondition(context.Background(), &entities.TradeInCondition{
		Code: "FAIR", Name: "Удовлетворительное", Percent: 50,
	})
	require.NoError(t, err)

	// Дубликат кода — конфликт.
	_, err = repo.CreateCondition(context.Background(), &entities.TradeInCondition{
		Code: "LIKE_NEW", Name: "Дубликат", Percent: 80,
	})
	require.Error(t, err)
	var conflict *apperrors.ConflictError
	assert.ErrorAs(t, err, &conflict)

	conditions, err := repo.GetConditions(context.Background())
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	assert.Equal(t, "LIKE_NEW", conditions[0].Code)

	found, err := repo.FindConditionByCode(context.Background(), "FAIR")
	require.NoError(t, err)
	assert.Equal(t, 50, found.Percent)

	_, err = repo.FindConditionByCode(context.Background(), "MISSING")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
