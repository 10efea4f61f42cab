package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"music-shop/internal/entities"
	"music-shop/pkg/constants"
	apperrors "music-shop/pkg/errors"
	"music-shop/pkg/utils"
)

func newTestOrder(clientID uint64) *entities.Order {
	return &entities.Order{
		ClientID:        clientID,
		StatusCode:      constants.StatusNew,
		ItemsTotal:      1000,
		TotalDiscount:   300,
		Total:           700,
		DeliveryName:    "Тестовый Клиент",
		DeliveryPhone:   "+992900000005",
		DeliveryAddress: "г. Душанбе, ул. Рудаки, 1",
		Items: []entities.OrderItem{
			{ProductID: 1, ProductName: "Гитара акустическая", Quantity: 2, UnitPrice: 400},
			{ProductID: 2, ProductName: "Комплект струн", Quantity: 1, UnitPrice: 200},
		},
		TradeInItems: []entities.OrderTradeInItem{
			{ProductID: 1, ConditionCode: "GOOD", Quantity: 2, UnitDiscount: 150},
		},
	}
}

func createTestOrder(t *testing.T, repo OrderRepositoryInterface, clientID uint64) uint64 {
	t.Helper()
	txManager := NewTxManager(testPool)
	var orderID uint64
	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		id, err := repo.CreateOrderInTx(context.Background(), tx, newTestOrder(clientID))
		orderID = id
		return err
	})
	require.NoError(t, err)
	return orderID
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Тестовый Клиент", constants.RoleClient)
	repo := NewOrderRepository(testPool, zap.NewNop())

	orderID := createTestOrder(t, repo, clientID)

	order, err := repo.FindOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusNew, order.Status.Code)
	assert.Equal(t, int64(1000), order.ItemsTotal)
	assert.Equal(t, int64(300), order.TotalDiscount)
	assert.Equal(t, int64(700), order.Total)
	assert.Equal(t, clientID, order.Client.ID)
	assert.Nil(t, order.Manager)
	assert.Nil(t, order.Courier)

	items, tradeInItems, err := repo.FindOrderItems(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Len(t, tradeInItems, 1)
	assert.Equal(t, "GOOD", tradeInItems[0].ConditionCode)

	_, err = repo.FindOrder(context.Background(), 99999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Два менеджера одновременно берут один заказ: побеждает ровно один.
func TestOrderRepository_TakeOrder_Concurrent(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerA := seedUser(t, testPool, "Менеджер А", constants.RoleManager)
	managerB := seedUser(t, testPool, "Менеджер Б", constants.RoleManager)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)
	orderID := createTestOrder(t, repo, clientID)

	results := make([]bool, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, managerID := range []uint64{managerA, managerB} {
		wg.Add(1)
		go func(idx int, actorID uint64) {
			defer wg.Done()
			errs[idx] = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
				taken, err := repo.TakeOrderInTx(context.Background(), tx, orderID, actorID,
					constants.AssignManager, constants.StatusNew, constants.StatusPreparing)
				results[idx] = taken
				return err
			})
		}(i, managerID)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.NotEqual(t, results[0], results[1], "из двух взятий должно победить ровно одно")

	state, err := repo.FindOrderState(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPreparing, state.StatusCode)
	require.NotNil(t, state.ManagerID)
}

func TestOrderRepository_TakeOrder_WrongStatus(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	courierID := seedUser(t, testPool, "Курьер", constants.RoleCourier)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)
	orderID := createTestOrder(t, repo, clientID)

	// Заказ ещё NEW: курьер взять не может.
	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		taken, err := repo.TakeOrderInTx(context.Background(), tx, orderID, courierID,
			constants.AssignCourier, constants.StatusReady, constants.StatusDelivering)
		require.NoError(t, err)
		assert.False(t, taken)
		return nil
	})
	require.NoError(t, err)

	state, err := repo.FindOrderState(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusNew, state.StatusCode)
	assert.Nil(t, state.CourierID)
}

func TestOrderRepository_ChangeStatus(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)
	otherID := seedUser(t, testPool, "Чужой менеджер", constants.RoleManager)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)
	orderID := createTestOrder(t, repo, clientID)

	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		taken, err := repo.TakeOrderInTx(context.Background(), tx, orderID, managerID,
			constants.AssignManager, constants.StatusNew, constants.StatusPreparing)
		require.NoError(t, err)
		require.True(t, taken)
		return nil
	})
	require.NoError(t, err)

	// Чужой менеджер не проходит проверку исполнителя.
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		_, changed, err := repo.ChangeStatusInTx(context.Background(), tx, orderID,
			[]string{constants.StatusPreparing}, constants.StatusReady, &otherID, nil)
		require.NoError(t, err)
		assert.False(t, changed)
		return nil
	})
	require.NoError(t, err)

	// Назначенный менеджер переводит заказ; возвращается прежний статус.
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		oldStatus, changed, err := repo.ChangeStatusInTx(context.Background(), tx, orderID,
			[]string{constants.StatusPreparing}, constants.StatusReady, &managerID, nil)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, constants.StatusPreparing, oldStatus)
		return nil
	})
	require.NoError(t, err)

	// Повторный перевод из того же статуса — ноль строк.
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		_, changed, err := repo.ChangeStatusInTx(context.Background(), tx, orderID,
			[]string{constants.StatusPreparing}, constants.StatusReady, nil, nil)
		require.NoError(t, err)
		assert.False(t, changed)
		return nil
	})
	require.NoError(t, err)
}

// Отмена конкурирует со взятием курьером за один и тот же заказ в READY:
// проверка исходного статуса должна идти по актуальной версии строки,
// иначе отмена пройдёт по устаревшему снимку уже после взятия.
func TestOrderRepository_ChangeStatus_ConcurrentWithTake(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)
	courierID := seedUser(t, testPool, "Курьер", constants.RoleCourier)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)
	orderID := createTestOrder(t, repo, clientID)

	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		taken, err := repo.TakeOrderInTx(context.Background(), tx, orderID, managerID,
			constants.AssignManager, constants.StatusNew, constants.StatusPreparing)
		require.NoError(t, err)
		require.True(t, taken)
		_, changed, err := repo.ChangeStatusInTx(context.Background(), tx, orderID,
			[]string{constants.StatusPreparing}, constants.StatusReady, &managerID, nil)
		require.NoError(t, err)
		require.True(t, changed)
		return nil
	})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		errs      [2]error
		taken     bool
		canceled  bool
		oldStatus string
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
			ok, err := repo.TakeOrderInTx(context.Background(), tx, orderID, courierID,
				constants.AssignCourier, constants.StatusReady, constants.StatusDelivering)
			taken = ok
			return err
		})
	}()
	go func() {
		defer wg.Done()
		errs[1] = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
			old, ok, err := repo.ChangeStatusInTx(context.Background(), tx, orderID,
				constants.CancelableStatuses, constants.StatusCanceled, nil, nil)
			oldStatus, canceled = old, ok
			return err
		})
	}()
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	require.NotEqual(t, taken, canceled, "победить должна ровно одна операция")

	state, err := repo.FindOrderState(context.Background(), orderID)
	require.NoError(t, err)
	if canceled {
		assert.Equal(t, constants.StatusReady, oldStatus)
		assert.Equal(t, constants.StatusCanceled, state.StatusCode)
	} else {
		assert.Equal(t, constants.StatusDelivering, state.StatusCode)
	}
}

func TestOrderRepository_SetAssignee(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)
	courierID := seedUser(t, testPool, "Курьер", constants.RoleCourier)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)
	orderID := createTestOrder(t, repo, clientID)

	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		updated, err := repo.SetAssigneeInTx(context.Background(), tx, orderID, constants.AssignManager, &managerID)
		require.NoError(t, err)
		require.True(t, updated)
		updated, err = repo.SetAssigneeInTx(context.Background(), tx, orderID, constants.AssignCourier, &courierID)
		require.NoError(t, err)
		require.True(t, updated)
		return nil
	})
	require.NoError(t, err)

	// Снятие курьера не трогает менеджера.
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		updated, err := repo.SetAssigneeInTx(context.Background(), tx, orderID, constants.AssignCourier, nil)
		require.NoError(t, err)
		require.True(t, updated)
		return nil
	})
	require.NoError(t, err)

	state, err := repo.FindOrderState(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, state.ManagerID)
	assert.Equal(t, managerID, *state.ManagerID)
	assert.Nil(t, state.CourierID)

	// Несуществующий заказ — ноль строк.
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		updated, err := repo.SetAssigneeInTx(context.Background(), tx, 99999, constants.AssignManager, &managerID)
		require.NoError(t, err)
		assert.False(t, updated)
		return nil
	})
	require.NoError(t, err)
}

func TestOrderRepository_Lists(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)

	firstID := createTestOrder(t, repo, clientID)
	createTestOrder(t, repo, clientID)

	lp := utils.ListParams{SortBy: "createdAt", SortDir: "desc", Limit: 10}

	// Очередь менеджера — оба заказа в NEW.
	queue, total, err := repo.GetQueue(context.Background(), constants.AssignManager, lp)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, queue, 2)

	// Менеджер берёт первый заказ: он уходит из очереди в «мои».
	err = txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		taken, err := repo.TakeOrderInTx(context.Background(), tx, firstID, managerID,
			constants.AssignManager, constants.StatusNew, constants.StatusPreparing)
		require.NoError(t, err)
		require.True(t, taken)
		return nil
	})
	require.NoError(t, err)

	queue, total, err = repo.GetQueue(context.Background(), constants.AssignManager, lp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	mine, total, err := repo.GetAssignedOrders(context.Background(), constants.AssignManager, managerID, lp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, mine, 1)
	assert.Equal(t, firstID, mine[0].ID)

	clientOrders, total, err := repo.GetClientOrders(context.Background(), clientID, lp)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, clientOrders, 2)
}

func TestOrderRepository_Lists_UnknownSortKey(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	repo := NewOrderRepository(testPool, zap.NewNop())

	lp := utils.ListParams{SortBy: "password_hash; DROP TABLE users", SortDir: "asc", Limit: 10}
	_, _, err := repo.GetClientOrders(context.Background(), clientID, lp)
	require.Error(t, err)

	var invalidInput *apperrors.InvalidInputError
	assert.ErrorAs(t, err, &invalidInput)
}

func TestOrderRepository_AdminListAndCounters(t *testing.T) {
	requireTestDB(t)
	cleanupTables(t, testPool)

	clientID := seedUser(t, testPool, "Клиент", constants.RoleClient)
	managerID := seedUser(t, testPool, "Менеджер", constants.RoleManager)

	repo := NewOrderRepository(testPool, zap.NewNop())
	txManager := NewTxManager(testPool)

	firstID := createTestOrder(t, repo, clientID)
	createTestOrder(t, repo, clientID)

	err := txManager.RunInTransaction(context.Background(), func(tx pgx.Tx) error {
		taken, err := repo.TakeOrderInTx(context.Background(), tx, firstID, managerID,
			constants.AssignManager, constants.StatusNew, constants.StatusPreparing)
		require.NoError(t, err)
		require.True(t, taken)
		return nil
	})
	require.NoError(t, err)

	lp := utils.ListParams{SortBy: "id", SortDir: "asc", Limit: 10}

	list, total, err := repo.GetAdminOrders(context.Background(), entities.AdminOrderFilter{ManagerID: &managerID}, lp)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, firstID, list[0].ID)

	counters, err := repo.GetAdminCounters(context.Background(), entities.AdminOrderFilter{})
	require.NoError(t, err)

	byStatus := map[string]uint64{}
	for _, c := range counters.ByStatus {
		byStatus[c.Key] = c.Count
	}
	assert.Equal(t, uint64(1), byStatus[constants.StatusNew])
	assert.Equal(t, uint64(1), byStatus[constants.StatusPreparing])

	require.Len(t, counters.ByManager, 1)
	assert.Equal(t, uint64(1), counters.ByManager[0].Count)
}
