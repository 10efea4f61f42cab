package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/entities"
	"music-shop/pkg/constants"
	apperrors "music-shop/pkg/errors"
	"music-shop/pkg/utils"
)

// Белый список колонок сортировки. Неизвестный ключ — ошибка,
// в SQL он не попадает.
var orderSortColumns = map[string]string{
	"id":        "o.id",
	"createdAt": "o.created_at",
	"updatedAt": "o.updated_at",
	"total":     "o.total",
	"status":    "s.code",
	"client":    "c.fio",
}

// OrderState — минимальный срез строки заказа для разбора причины
// неудавшегося условного обновления.
type OrderState struct {
	ID         uint64
	StatusCode string
	ClientID   uint64
	ManagerID  *uint64
	CourierID  *uint64
}

type OrderRepositoryInterface interface {
	CreateOrderInTx(ctx context.Context, tx pgx.Tx, order *entities.Order) (uint64, error)
	FindOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error)
	FindOrderState(ctx context.Context, id uint64) (*OrderState, error)
	FindOrderStateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*OrderState, error)

	// Условные записи: true — строка обновлена, false — предусловие
	// не выполнилось (ноль затронутых строк). Перечитывать-и-писать нельзя.
	TakeOrderInTx(ctx context.Context, tx pgx.Tx, orderID, actorID uint64, role constants.AssignableRole, fromStatus, toStatus string) (bool, error)
	ChangeStatusInTx(ctx context.Context, tx pgx.Tx, orderID uint64, fromStatuses []string, toStatus string, managerID, courierID *uint64) (string, bool, error)
	SetAssigneeInTx(ctx context.Context, tx pgx.Tx, orderID uint64, role constants.AssignableRole, userID *uint64) (bool, error)

	GetClientOrders(ctx context.Context, clientID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetQueue(ctx context.Context, role constants.AssignableRole, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAssignedOrders(ctx context.Context, role constants.AssignableRole, userID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAdminOrders(ctx context.Context, filter entities.AdminOrderFilter, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAdminCounters(ctx context.Context, filter entities.AdminOrderFilter) (*dto.OrderCountersDTO, error)
	FindOrderItems(ctx context.Context, orderID uint64) ([]dto.OrderItemDTO, []dto.OrderTradeInItemDTO, error)
}

type OrderRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewOrderRepository(storage *pgxpool.Pool, logger *zap.Logger) OrderRepositoryInterface {
	return &OrderRepository{storage: storage, logger: logger}
}

func (r *OrderRepository) CreateOrderInTx(ctx context.Context, tx pgx.Tx, order *entities.Order) (uint64, error) {
	var newOrderID uint64
	orderInsertQuery := `
		INSERT INTO orders (client_id, status_id, items_total, total_discount, total,
			delivery_name, delivery_phone, delivery_address, client_comment,
			created_at, updated_at)
		VALUES ($1, (SELECT id FROM statuses WHERE code = $2), $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`
	err := tx.QueryRow(ctx, orderInsertQuery,
		order.ClientID, order.StatusCode, order.ItemsTotal, order.TotalDiscount, order.Total,
		order.DeliveryName, order.DeliveryPhone, order.DeliveryAddress, order.ClientComment,
	).Scan(&newOrderID)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи в 'orders': %w", err)
	}

	itemInsertQuery := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, itemInsertQuery, newOrderID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice); err != nil {
			return 0, fmt.Errorf("ошибка записи в 'order_items': %w", err)
		}
	}

	tradeInInsertQuery := `
		INSERT INTO order_trade_in_items (order_id, product_id, condition_code, quantity, unit_discount)
		VALUES ($1, $2, $3, $4, $5)`
	for _, item := range order.TradeInItems {
		if _, err := tx.Exec(ctx, tradeInInsertQuery, newOrderID, item.ProductID, item.ConditionCode, item.Quantity, item.UnitDiscount); err != nil {
			return 0, fmt.Errorf("ошибка записи в 'order_trade_in_items': %w", err)
		}
	}

	return newOrderID, nil
}

const orderSelectColumns = `
	o.id, o.status_id, s.code, s.name,
	o.client_id, c.fio,
	o.manager_id, m.fio,
	o.courier_id, cr.fio,
	o.items_total, o.total_discount, o.total,
	o.delivery_name, o.delivery_phone, o.delivery_address,
	o.client_comment, o.internal_comment,
	o.created_at, o.updated_at`

const orderFromClause = `orders o
	JOIN statuses s ON o.status_id = s.id
	JOIN users c ON o.client_id = c.id
	LEFT JOIN users m ON o.manager_id = m.id
	LEFT JOIN users cr ON o.courier_id = cr.id`

func scanOrderRow(row pgx.Row) (*dto.OrderDTO, error) {
	var order dto.OrderDTO
	var managerID, courierID sql.NullInt64
	var managerFio, courierFio, clientComment, internalComment sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&order.ID, &order.Status.ID, &order.Status.Code, &order.Status.Name,
		&order.Client.ID, &order.Client.Fio,
		&managerID, &managerFio,
		&courierID, &courierFio,
		&order.ItemsTotal, &order.TotalDiscount, &order.Total,
		&order.DeliveryName, &order.DeliveryPhone, &order.DeliveryAddress,
		&clientComment, &internalComment,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		order.Manager = &dto.ShortUserDTO{ID: uint64(managerID.Int64), Fio: managerFio.String}
	}
	if courierID.Valid {
		order.Courier = &dto.ShortUserDTO{ID: uint64(courierID.Int64), Fio: courierFio.String}
	}
	if clientComment.Valid {
		order.ClientComment = null.StringFrom(clientComment.String)
	}
	if internalComment.Valid {
		order.InternalComment = null.StringFrom(internalComment.String)
	}
	order.CreatedAt = createdAt.Local().Format("2006-01-02 15:04:05")
	order.UpdatedAt = updatedAt.Local().Format("2006-01-02 15:04:05")
	return &order, nil
}

func (r *OrderRepository) FindOrder(ctx context.Context, id uint64) (*dto.OrderDTO, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE o.id = $1", orderSelectColumns, orderFromClause)
	order, err := scanOrderRow(r.storage.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
	}
	return order, nil
}

func (r *OrderRepository) FindOrderItems(ctx context.Context, orderID uint64) ([]dto.OrderItemDTO, []dto.OrderTradeInItemDTO, error) {
	rows, err := r.storage.Query(ctx,
		`SELECT product_id, product_name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	items := make([]dto.OrderItemDTO, 0)
	for rows.Next() {
		var item dto.OrderItemDTO
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	tradeRows, err := r.storage.Query(ctx,
		`SELECT product_id, condition_code, quantity, unit_discount FROM order_trade_in_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, nil, err
	}
	defer tradeRows.Close()

	tradeInItems := make([]dto.OrderTradeInItemDTO, 0)
	for tradeRows.Next() {
		var item dto.OrderTradeInItemDTO
		if err := tradeRows.Scan(&item.ProductID, &item.ConditionCode, &item.Quantity, &item.UnitDiscount); err != nil {
			return nil, nil, err
		}
		tradeInItems = append(tradeInItems, item)
	}
	return items, tradeInItems, tradeRows.Err()
}

func (r *OrderRepository) FindOrderState(ctx context.Context, id uint64) (*OrderState, error) {
	return r.findOrderState(ctx, r.storage, id)
}

func (r *OrderRepository) FindOrderStateInTx(ctx context.Context, tx pgx.Tx, id uint64) (*OrderState, error) {
	return r.findOrderState(ctx, tx, id)
}

func (r *OrderRepository) findOrderState(ctx context.Context, db querier, id uint64) (*OrderState, error) {
	var state OrderState
	var managerID, courierID sql.NullInt64
	query := `
		SELECT o.id, s.code, o.client_id, o.manager_id, o.courier_id
		FROM orders o JOIN statuses s ON o.status_id = s.id
		WHERE o.id = $1`
	err := db.QueryRow(ctx, query, id).Scan(&state.ID, &state.StatusCode, &state.ClientID, &managerID, &courierID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения состояния заказа: %w", err)
	}
	if managerID.Valid {
		v := uint64(managerID.Int64)
		state.ManagerID = &v
	}
	if courierID.Valid {
		v := uint64(courierID.Int64)
		state.CourierID = &v
	}
	return &state, nil
}

func assigneeColumn(role constants.AssignableRole) string {
	if role == constants.AssignCourier {
		return "courier_id"
	}
	return "manager_id"
}

// TakeOrderInTx — атомарный «взять заказ»: статус и пустой исполнитель
// проверяются в самом UPDATE. Из двух параллельных взятий побеждает
// ровно одно.
func (r *OrderRepository) TakeOrderInTx(ctx context.Context, tx pgx.Tx, orderID, actorID uint64, role constants.AssignableRole, fromStatus, toStatus string) (bool, error) {
	col := assigneeColumn(role)
	query := fmt.Sprintf(`
		UPDATE orders
		SET %s = $2, status_id = (SELECT id FROM statuses WHERE code = $3), updated_at = NOW()
		WHERE id = $1
		  AND %s IS NULL
		  AND status_id = (SELECT id FROM statuses WHERE code = $4)`, col, col)
	tag, err := tx.Exec(ctx, query, orderID, actorID, toStatus, fromStatus)
	if err != nil {
		return false, fmt.Errorf("ошибка взятия заказа: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ChangeStatusInTx — условная смена статуса. Необязательные managerID и
// courierID добавляют проверку «актор и есть назначенный исполнитель».
// Возвращает прежний код статуса для записи в журнал.
// Справочник statuses соединяется по o.status_id самой обновляемой строки:
// при конкурентном обновлении условие перепроверяется по её актуальной
// версии, а не по снимку на начало statement'а.
func (r *OrderRepository) ChangeStatusInTx(ctx context.Context, tx pgx.Tx, orderID uint64, fromStatuses []string, toStatus string, managerID, courierID *uint64) (string, bool, error) {
	query := `
		UPDATE orders o
		SET status_id = (SELECT id FROM statuses WHERE code = $2), updated_at = NOW()
		FROM statuses ps
		WHERE o.id = $1 AND ps.id = o.status_id
		  AND ps.code = ANY($3)`
	args := []interface{}{orderID, toStatus, fromStatuses}
	if managerID != nil {
		args = append(args, *managerID)
		query += fmt.Sprintf(" AND o.manager_id = $%d", len(args))
	}
	if courierID != nil {
		args = append(args, *courierID)
		query += fmt.Sprintf(" AND o.courier_id = $%d", len(args))
	}
	query += " RETURNING ps.code"

	var oldStatus string
	err := tx.QueryRow(ctx, query, args...).Scan(&oldStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка смены статуса заказа: %w", err)
	}
	return oldStatus, true, nil
}

// SetAssigneeInTx — административное назначение/снятие, статус не проверяется.
// userID == nil снимает исполнителя; второй исполнитель не затрагивается.
func (r *OrderRepository) SetAssigneeInTx(ctx context.Context, tx pgx.Tx, orderID uint64, role constants.AssignableRole, userID *uint64) (bool, error) {
	col := assigneeColumn(role)
	query := fmt.Sprintf(`UPDATE orders SET %s = $2, updated_at = NOW() WHERE id = $1`, col)
	tag, err := tx.Exec(ctx, query, orderID, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка назначения исполнителя: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OrderRepository) resolveSort(lp utils.ListParams) (string, error) {
	col, ok := orderSortColumns[lp.SortBy]
	if !ok {
		return "", apperrors.NewInvalidInputError("недопустимый ключ сортировки: %s", lp.SortBy)
	}
	dir := "DESC"
	if lp.SortDir == "asc" {
		dir = "ASC"
	}
	return col + " " + dir, nil
}

func (r *OrderRepository) listOrders(ctx context.Context, cond sq.Sqlizer, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	orderBy, err := r.resolveSort(lp)
	if err != nil {
		return nil, 0, err
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From(orderFromClause).
		Where(cond).PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	if err := r.storage.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта заказов: %w", err)
	}
	if total == 0 {
		return []dto.OrderDTO{}, 0, nil
	}

	query, args, err := sq.Select(orderSelectColumns).From(orderFromClause).
		Where(cond).
		OrderBy(orderBy, "o.id DESC").
		Limit(uint64(lp.Limit)).Offset(uint64(lp.Offset)).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка заказов: %w", err)
	}
	defer rows.Close()

	orders := make([]dto.OrderDTO, 0)
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования заказа в списке: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, total, rows.Err()
}

func hideClosedCond(cond sq.And, lp utils.ListParams) sq.And {
	if lp.HideClosed {
		cond = append(cond, sq.NotEq{"s.code": constants.FinalStatuses})
	}
	return cond
}

func (r *OrderRepository) GetClientOrders(ctx context.Context, clientID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	cond := hideClosedCond(sq.And{sq.Eq{"o.client_id": clientID}}, lp)
	return r.listOrders(ctx, cond, lp)
}

// GetQueue — заказы, доступные роли для взятия: NEW без менеджера
// для менеджеров, READY без курьера для курьеров.
func (r *OrderRepository) GetQueue(ctx context.Context, role constants.AssignableRole, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	status := constants.StatusNew
	col := "o.manager_id"
	if role == constants.AssignCourier {
		status = constants.StatusReady
		col = "o.courier_id"
	}
	cond := sq.And{sq.Eq{"s.code": status}, sq.Eq{col: nil}}
	return r.listOrders(ctx, cond, lp)
}

func (r *OrderRepository) GetAssignedOrders(ctx context.Context, role constants.AssignableRole, userID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	col := "o." + assigneeColumn(role)
	cond := hideClosedCond(sq.And{sq.Eq{col: userID}}, lp)
	return r.listOrders(ctx, cond, lp)
}

func adminFilterCond(filter entities.AdminOrderFilter) sq.And {
	cond := sq.And{}
	if filter.StatusID != nil {
		cond = append(cond, sq.Eq{"o.status_id": *filter.StatusID})
	}
	if filter.ClientID != nil {
		cond = append(cond, sq.Eq{"o.client_id": *filter.ClientID})
	}
	if filter.ManagerID != nil {
		cond = append(cond, sq.Eq{"o.manager_id": *filter.ManagerID})
	}
	if filter.CourierID != nil {
		cond = append(cond, sq.Eq{"o.courier_id": *filter.CourierID})
	}
	if filter.DateFrom != nil {
		cond = append(cond, sq.GtOrEq{"o.created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		cond = append(cond, sq.LtOrEq{"o.created_at": *filter.DateTo})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		cond = append(cond, sq.Or{
			sq.ILike{"o.delivery_name": pattern},
			sq.ILike{"o.delivery_phone": pattern},
			sq.ILike{"o.delivery_address": pattern},
			sq.ILike{"c.fio": pattern},
			sq.Expr("CAST(o.id AS TEXT) LIKE ?", pattern),
		})
	}
	if len(cond) == 0 {
		cond = append(cond, sq.Expr("TRUE"))
	}
	return cond
}

func (r *OrderRepository) GetAdminOrders(ctx context.Context, filter entities.AdminOrderFilter, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	cond := hideClosedCond(adminFilterCond(filter), lp)
	return r.listOrders(ctx, cond, lp)
}

// GetAdminCounters — агрегаты по тем же фильтрам, что и список: фасеты
// в UI не расходятся с видимыми строками.
func (r *OrderRepository) GetAdminCounters(ctx context.Context, filter entities.AdminOrderFilter) (*dto.OrderCountersDTO, error) {
	cond := adminFilterCond(filter)
	counters := &dto.OrderCountersDTO{
		ByStatus:  make([]dto.CounterItemDTO, 0),
		ByManager: make([]dto.CounterItemDTO, 0),
		ByCourier: make([]dto.CounterItemDTO, 0),
	}

	byStatus, err := r.countBy(ctx, cond, "s.code", "s.name")
	if err != nil {
		return nil, err
	}
	counters.ByStatus = byStatus

	byManager, err := r.countBy(ctx, cond, "CAST(o.manager_id AS TEXT)", "m.fio")
	if err != nil {
		return nil, err
	}
	counters.ByManager = byManager

	byCourier, err := r.countBy(ctx, cond, "CAST(o.courier_id AS TEXT)", "cr.fio")
	if err != nil {
		return nil, err
	}
	counters.ByCourier = byCourier

	return counters, nil
}

func (r *OrderRepository) countBy(ctx context.Context, cond sq.Sqlizer, keyExpr, nameExpr string) ([]dto.CounterItemDTO, error) {
	query, args, err := sq.Select(keyExpr, nameExpr, "COUNT(*)").
		From(orderFromClause).
		Where(cond).
		GroupBy(keyExpr, nameExpr).
		OrderBy("COUNT(*) DESC").
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта агрегатов: %w", err)
	}
	defer rows.Close()

	items := make([]dto.CounterItemDTO, 0)
	for rows.Next() {
		var key, name sql.NullString
		var count uint64
		if err := rows.Scan(&key, &name, &count); err != nil {
			return nil, err
		}
		if !key.Valid {
			// Строки без назначенного исполнителя в фасет не попадают.
			continue
		}
		items = append(items, dto.CounterItemDTO{Key: key.String, Name: name.String, Count: count})
	}
	return items, rows.Err()
}
