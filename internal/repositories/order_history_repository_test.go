package repositories

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"music-shop/internal/entities"
	"music-shop/pkg/constants"
	"music-shop/pkg/utils"
)

func TestOrderHistoryRepository_AppendAndList(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)

	orderRepo := NewOrderRepository(testPool, zap.NewNop())
	historyRepo := NewOrderHistoryRepository(testPool)
	txManager := NewTxManager(testPool)

	orderID := createTestOrder(t, orderRepo, clientID)

	appendEntry := func(h *entities.OrderHistory) {
		t.Helper()
		err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
			return historyRepo.CreateInTx(context.Background(), tx, h)
		})
		require.NoError(t, err)
	}

	appendEntry(&entities.OrderHistory{
		OrderID:       orderID,
		UserID:        &clientID,
		UserRole:      constants.RoleClient,
		EventType:     entities.HistoryEventCreated,
		NewStatusCode: utils.StringPtr(constants.StatusNew),
	})
	appendEntry(&entities.OrderHistory{
		OrderID:       orderID,
		UserID:        &managerID,
		UserRole:      constants.RoleManager,
		EventType:     entities.HistoryEventStatusChange,
		OldStatusCode: utils.StringPtr(constants.StatusNew),
		NewStatusCode: utils.StringPtr(constants.StatusPreparing),
	})
	appendEntry(&entities.OrderHistory{
		OrderID:   orderID,
		UserID:    &managerID,
		UserRole:  constants.RoleManager,
		EventType: entities.HistoryEventUnassigned,
		Note:      utils.StringPtr("менеджер снят с заказа"),
	})

	items, err := historyRepo.FindByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Журнал отдаётся от старых записей к новым.
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.Before(items[i-1].CreatedAt),
			"записи журнала должны идти в неубывающем порядке времени")
	}

	assert.Equal(t, entities.HistoryEventCreated, items[0].EventType)
	assert.False(t, items[0].OldStatusCode.Valid)
	assert.Equal(t, constants.StatusNew, items[0].NewStatusCode.String)
	assert.Equal(t, "Клиент", items[0].ActorFio.String)

	assert.Equal(t, constants.StatusNew, items[1].OldStatusCode.String)
	assert.Equal(t, constants.StatusPreparing, items[1].NewStatusCode.String)

	assert.Equal(t, "менеджер снят с заказа", items[2].Note.String)
	assert.False(t, items[2].OldStatusCode.Valid)
	assert.False(t, items[2].NewStatusCode.Valid)

	// Журнал чужого заказа пуст.
	other, err := historyRepo.FindByOrderID(context.Background(), 99999)
	require.NoError(t, err)
	assert.Empty(t, other)
}
