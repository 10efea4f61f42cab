package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/entities"
	"music-shop/internal/repositories"
	"music-shop/pkg/constants"
	apperrors "music-shop/pkg/errors"
	"music-shop/pkg/utils"
)

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, clientID uint64, data dto.CreateOrderDTO) (*dto.OrderDTO, error)
	GetOrder(ctx context.Context, orderID, actorID uint64, actorRole string) (*dto.OrderDTO, error)
	GetOrderHistory(ctx context.Context, orderID uint64) ([]dto.OrderHistoryEntryDTO, error)

	TakeOrder(ctx context.Context, orderID, actorID uint64, role constants.AssignableRole) error
	MarkReady(ctx context.Context, orderID, actorID uint64, actorRole string) error
	FinishOrder(ctx context.Context, orderID, actorID uint64, actorRole string) error
	ClientCancel(ctx context.Context, orderID, clientID uint64, data dto.ClientStatusPatchDTO) error
	StaffCancel(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.CancelOrderDTO) error
	AdminSetStatus(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.AdminStatusDTO) error
	AdminAssign(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.AssignDTO) error
	AdminUnassign(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.UnassignDTO) error

	GetClientOrders(ctx context.Context, clientID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetQueue(ctx context.Context, role constants.AssignableRole, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAssignedOrders(ctx context.Context, role constants.AssignableRole, actorID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAdminOrders(ctx context.Context, filter entities.AdminOrderFilter, lp utils.ListParams) ([]dto.OrderDTO, uint64, error)
	GetAdminCounters(ctx context.Context, filter entities.AdminOrderFilter) (*dto.OrderCountersDTO, error)
}

type OrderService struct {
	txManager      repositories.TxManagerInterface
	orderRepo      repositories.OrderRepositoryInterface
	historyRepo    repositories.OrderHistoryRepositoryInterface
	userRepo       repositories.UserRepositoryInterface
	tradeInService TradeInServiceInterface
	logger         *zap.Logger
}

func NewOrderService(
	txManager repositories.TxManagerInterface,
	orderRepo repositories.OrderRepositoryInterface,
	historyRepo repositories.OrderHistoryRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	tradeInService TradeInServiceInterface,
	logger *zap.Logger,
) OrderServiceInterface {
	return &OrderService{
		txManager:      txManager,
		orderRepo:      orderRepo,
		historyRepo:    historyRepo,
		userRepo:       userRepo,
		tradeInService: tradeInService,
		logger:         logger,
	}
}

// CreateOrder пересчитывает итоги на сервере и замораживает их в строке
// заказа: цены и скидки позиций снэпшотятся, дальнейшие правки каталога
// размещённый заказ не трогают.
func (s *OrderService) CreateOrder(ctx context.Context, clientID uint64, data dto.CreateOrderDTO) (*dto.OrderDTO, error) {
	var itemsTotal int64
	items := make([]entities.OrderItem, 0, len(data.Items))
	for _, item := range data.Items {
		itemsTotal += item.UnitPrice * int64(item.Quantity)
		items = append(items, entities.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	var totalDiscount int64
	tradeInItems := make([]entities.OrderTradeInItem, 0, len(data.TradeInItems))
	if len(data.TradeInItems) > 0 {
		quote, err := s.tradeInService.GetQuote(ctx, data.TradeInItems)
		if err != nil {
			return nil, err
		}
		totalDiscount = quote.TotalDiscount
		for _, line := range quote.Lines {
			tradeInItems = append(tradeInItems, entities.OrderTradeInItem{
				ProductID:     line.ProductID,
				ConditionCode: line.ConditionCode,
				Quantity:      line.Quantity,
				UnitDiscount:  line.UnitDiscount,
			})
		}
	}

	// Скидка не может превышать половину суммы покупки. Проверяем на
	// сервере: корзина на витрине — не авторитет.
	if totalDiscount*2 > itemsTotal {
		return nil, apperrors.NewInvalidInputError(
			"скидка trade-in (%d) превышает 50%% суммы заказа (%d)", totalDiscount, itemsTotal)
	}

	order := &entities.Order{
		ClientID:        clientID,
		StatusCode:      constants.StatusNew,
		ItemsTotal:      itemsTotal,
		TotalDiscount:   totalDiscount,
		Total:           itemsTotal - totalDiscount,
		DeliveryName:    data.Delivery.Name,
		DeliveryPhone:   data.Delivery.Phone,
		DeliveryAddress: data.Delivery.Address,
		Items:           items,
		TradeInItems:    tradeInItems,
	}
	if data.Delivery.Comment != "" {
		order.ClientComment = utils.StringPtr(data.Delivery.Comment)
	}

	var newOrderID uint64
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		id, err := s.orderRepo.CreateOrderInTx(ctx, tx, order)
		if err != nil {
			return err
		}
		newOrderID = id
		return s.historyRepo.CreateInTx(ctx, tx, &entities.OrderHistory{
			OrderID:       newOrderID,
			UserID:        &clientID,
			UserRole:      constants.RoleClient,
			EventType:     entities.HistoryEventCreated,
			NewStatusCode: utils.StringPtr(constants.StatusNew),
		})
	})
	if err != nil {
		s.logger.Error("не удалось создать заказ", zap.Uint64("clientId", clientID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("заказ создан",
		zap.Uint64("orderId", newOrderID),
		zap.Uint64("clientId", clientID),
		zap.Int64("total", order.Total))

	return s.findOrderWithItems(ctx, newOrderID)
}

func (s *OrderService) findOrderWithItems(ctx context.Context, orderID uint64) (*dto.OrderDTO, error) {
	order, err := s.orderRepo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, tradeInItems, err := s.orderRepo.FindOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.TradeInItems = tradeInItems
	return order, nil
}

// GetOrder — деталка. Клиент видит только собственные заказы и без
// внутреннего комментария; персонал — любые.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID uint64, actorRole string) (*dto.OrderDTO, error) {
	order, err := s.findOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actorRole == constants.RoleClient {
		if order.Client.ID != actorID {
			return nil, apperrors.ErrForbidden
		}
		order.InternalComment = null.String{}
	}
	return order, nil
}

func (s *OrderService) GetOrderHistory(ctx context.Context, orderID uint64) ([]dto.OrderHistoryEntryDTO, error) {
	if _, err := s.orderRepo.FindOrderState(ctx, orderID); err != nil {
		return nil, err
	}
	items, err := s.historyRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	result := make([]dto.OrderHistoryEntryDTO, 0, len(items))
	for _, h := range items {
		entry := dto.OrderHistoryEntryDTO{
			ChangedAt: h.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			EventType: h.EventType,
			OldStatus: null.NewString(h.OldStatusCode.String, h.OldStatusCode.Valid),
			NewStatus: null.NewString(h.NewStatusCode.String, h.NewStatusCode.Valid),
			Note:      null.NewString(h.Note.String, h.Note.Valid),
			ChangedBy: dto.ShortUserDTO{Role: h.UserRole},
		}
		if h.UserID.Valid {
			entry.ChangedBy.ID = uint64(h.UserID.Int64)
		}
		if h.ActorFio.Valid {
			entry.ChangedBy.Fio = h.ActorFio.String
		}
		result = append(result, entry)
	}
	return result, nil
}

func takeTransition(role constants.AssignableRole) (from, to, actorRole string) {
	if role == constants.AssignCourier {
		return constants.StatusReady, constants.StatusDelivering, constants.RoleCourier
	}
	return constants.StatusNew, constants.StatusPreparing, constants.RoleManager
}

// TakeOrder — эксклюзивное взятие заказа. Предусловия (статус, пустой
// исполнитель) проверяются в самом UPDATE: из двух одновременных взятий
// побеждает ровно одно, второе получает конфликт.
func (s *OrderService) TakeOrder(ctx context.Context, orderID, actorID uint64, role constants.AssignableRole) error {
	fromStatus, toStatus, actorRole := takeTransition(role)

	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		taken, err := s.orderRepo.TakeOrderInTx(ctx, tx, orderID, actorID, role, fromStatus, toStatus)
		if err != nil {
			return err
		}
		if !taken {
			return s.explainTakeFailure(ctx, tx, orderID, role, fromStatus)
		}
		return s.historyRepo.CreateInTx(ctx, tx, &entities.OrderHistory{
			OrderID:       orderID,
			UserID:        &actorID,
			UserRole:      actorRole,
			EventType:     entities.HistoryEventStatusChange,
			OldStatusCode: utils.StringPtr(fromStatus),
			NewStatusCode: utils.StringPtr(toStatus),
		})
	})
}

// explainTakeFailure различает NotFound и Conflict после нулевого
// условного обновления. Чтение идёт в той же транзакции, уже после
// неудавшейся записи, так что гонку оно не возвращает.
func (s *OrderService) explainTakeFailure(ctx context.Context, tx pgx.Tx, orderID uint64, role constants.AssignableRole, fromStatus string) error {
	state, err := s.orderRepo.FindOrderStateInTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if state.StatusCode != fromStatus {
		return apperrors.NewConflictError("заказ в статусе %s, взятие невозможно", state.StatusCode)
	}
	return apperrors.NewConflictError("заказ уже взят другим сотрудником")
}

// MarkReady — PREPARING → READY. Выполняет назначенный менеджер;
// админ проходит без проверки исполнителя.
func (s *OrderService) MarkReady(ctx context.Context, orderID, actorID uint64, actorRole string) error {
	var managerGuard *uint64
	if actorRole != constants.RoleAdmin {
		managerGuard = &actorID
	}
	return s.changeStatus(ctx, changeStatusRequest{
		orderID:      orderID,
		actorID:      actorID,
		actorRole:    actorRole,
		fromStatuses: []string{constants.StatusPreparing},
		toStatus:     constants.StatusReady,
		managerID:    managerGuard,
	})
}

// FinishOrder — DELIVERING → FINISHED силами назначенного курьера.
func (s *OrderService) FinishOrder(ctx context.Context, orderID, actorID uint64, actorRole string) error {
	var courierGuard *uint64
	if actorRole != constants.RoleAdmin {
		courierGuard = &actorID
	}
	return s.changeStatus(ctx, changeStatusRequest{
		orderID:      orderID,
		actorID:      actorID,
		actorRole:    actorRole,
		fromStatuses: []string{constants.StatusDelivering},
		toStatus:     constants.StatusFinished,
		courierID:    courierGuard,
	})
}

// ClientCancel — единственный переход, доступный клиенту: самоотмена
// до передачи в доставку. Владение заказом проверяется в транзакции.
func (s *OrderService) ClientCancel(ctx context.Context, orderID, clientID uint64, data dto.ClientStatusPatchDTO) error {
	if strings.ToUpper(data.Status) != constants.StatusCanceled {
		return apperrors.NewInvalidInputError("клиенту доступна только отмена заказа")
	}

	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		state, err := s.orderRepo.FindOrderStateInTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if state.ClientID != clientID {
			return apperrors.ErrForbidden
		}

		oldStatus, changed, err := s.orderRepo.ChangeStatusInTx(
			ctx, tx, orderID, constants.CancelableStatuses, constants.StatusCanceled, nil, nil)
		if err != nil {
			return err
		}
		if !changed {
			return apperrors.NewConflictError("заказ в статусе %s уже нельзя отменить", state.StatusCode)
		}

		history := &entities.OrderHistory{
			OrderID:       orderID,
			UserID:        &clientID,
			UserRole:      constants.RoleClient,
			EventType:     entities.HistoryEventStatusChange,
			OldStatusCode: utils.StringPtr(oldStatus),
			NewStatusCode: utils.StringPtr(constants.StatusCanceled),
		}
		if data.Reason != "" {
			history.Note = utils.StringPtr(data.Reason)
		}
		return s.historyRepo.CreateInTx(ctx, tx, history)
	})
}

// StaffCancel — отмена менеджером или админом; причина обязательна
// и уходит в журнал.
func (s *OrderService) StaffCancel(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.CancelOrderDTO) error {
	return s.changeStatus(ctx, changeStatusRequest{
		orderID:      orderID,
		actorID:      actorID,
		actorRole:    actorRole,
		fromStatuses: constants.CancelableStatuses,
		toStatus:     constants.StatusCanceled,
		note:         data.Reason,
	})
}

// AdminSetStatus — прямой перевод в любой известный статус из любого
// нефинального. Таблица переходов здесь не применяется: это ручной
// админский override, он всегда фиксируется в журнале.
func (s *OrderService) AdminSetStatus(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.AdminStatusDTO) error {
	target := strings.ToUpper(data.Status)
	if !constants.IsKnownStatus(target) {
		return apperrors.NewInvalidInputError("неизвестный статус: %s", data.Status)
	}
	return s.changeStatus(ctx, changeStatusRequest{
		orderID:      orderID,
		actorID:      actorID,
		actorRole:    actorRole,
		fromStatuses: constants.ActiveStatuses,
		toStatus:     target,
		note:         data.Note,
	})
}

type changeStatusRequest struct {
	orderID      uint64
	actorID      uint64
	actorRole    string
	fromStatuses []string
	toStatus     string
	managerID    *uint64
	courierID    *uint64
	note         string
}

func (s *OrderService) changeStatus(ctx context.Context, req changeStatusRequest) error {
	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		oldStatus, changed, err := s.orderRepo.ChangeStatusInTx(
			ctx, tx, req.orderID, req.fromStatuses, req.toStatus, req.managerID, req.courierID)
		if err != nil {
			return err
		}
		if !changed {
			return s.explainChangeFailure(ctx, tx, req)
		}

		history := &entities.OrderHistory{
			OrderID:       req.orderID,
			UserID:        &req.actorID,
			UserRole:      req.actorRole,
			EventType:     entities.HistoryEventStatusChange,
			OldStatusCode: utils.StringPtr(oldStatus),
			NewStatusCode: utils.StringPtr(req.toStatus),
		}
		if req.note != "" {
			history.Note = utils.StringPtr(req.note)
		}
		return s.historyRepo.CreateInTx(ctx, tx, history)
	})
}

// explainChangeFailure выясняет причину нулевого условного обновления:
// нет заказа, не тот статус или не тот исполнитель.
func (s *OrderService) explainChangeFailure(ctx context.Context, tx pgx.Tx, req changeStatusRequest) error {
	state, err := s.orderRepo.FindOrderStateInTx(ctx, tx, req.orderID)
	if err != nil {
		return err
	}
	for _, from := range req.fromStatuses {
		if state.StatusCode == from {
			// Статус подходил — значит, не прошла проверка исполнителя.
			return apperrors.ErrForbidden
		}
	}
	return apperrors.NewConflictError(
		"переход из статуса %s в %s невозможен", state.StatusCode, req.toStatus)
}

// AdminAssign назначает менеджера или курьера в обход статусной
// машины. Пользователь должен существовать и иметь подходящую роль.
func (s *OrderService) AdminAssign(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.AssignDTO) error {
	role, ok := constants.ParseAssignableRole(data.Role)
	if !ok {
		return apperrors.NewInvalidInputError("недопустимая роль назначения: %s", data.Role)
	}

	user, err := s.userRepo.FindUserByID(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewInvalidInputError("пользователь %d не найден", data.UserID)
		}
		return err
	}
	if !roleMatchesAssignment(user.Role, role) {
		return apperrors.NewInvalidInputError(
			"пользователь %d имеет роль %s и не может быть назначен как %s", user.ID, user.Role, data.Role)
	}

	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		updated, err := s.orderRepo.SetAssigneeInTx(ctx, tx, orderID, role, &data.UserID)
		if err != nil {
			return err
		}
		if !updated {
			return apperrors.ErrNotFound
		}
		return s.historyRepo.CreateInTx(ctx, tx, &entities.OrderHistory{
			OrderID:   orderID,
			UserID:    &actorID,
			UserRole:  actorRole,
			EventType: entities.HistoryEventAssigned,
			Note:      utils.StringPtr(fmt.Sprintf("назначен %s: %s", data.Role, user.Fio)),
		})
	})
}

// AdminUnassign снимает исполнителя; причина обязательна. Второй
// исполнитель (менеджер при снятии курьера и наоборот) не трогается.
func (s *OrderService) AdminUnassign(ctx context.Context, orderID, actorID uint64, actorRole string, data dto.UnassignDTO) error {
	role, ok := constants.ParseAssignableRole(data.Role)
	if !ok {
		return apperrors.NewInvalidInputError("недопустимая роль назначения: %s", data.Role)
	}

	return s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		updated, err := s.orderRepo.SetAssigneeInTx(ctx, tx, orderID, role, nil)
		if err != nil {
			return err
		}
		if !updated {
			return apperrors.ErrNotFound
		}
		return s.historyRepo.CreateInTx(ctx, tx, &entities.OrderHistory{
			OrderID:   orderID,
			UserID:    &actorID,
			UserRole:  actorRole,
			EventType: entities.HistoryEventUnassigned,
			Note:      utils.StringPtr(data.Note),
		})
	})
}

func roleMatchesAssignment(userRole string, role constants.AssignableRole) bool {
	switch role {
	case constants.AssignManager:
		return userRole == constants.RoleManager
	case constants.AssignCourier:
		return userRole == constants.RoleCourier
	}
	return false
}

func (s *OrderService) GetClientOrders(ctx context.Context, clientID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	return s.orderRepo.GetClientOrders(ctx, clientID, lp)
}

func (s *OrderService) GetQueue(ctx context.Context, role constants.AssignableRole, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	return s.orderRepo.GetQueue(ctx, role, lp)
}

func (s *OrderService) GetAssignedOrders(ctx context.Context, role constants.AssignableRole, actorID uint64, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	return s.orderRepo.GetAssignedOrders(ctx, role, actorID, lp)
}

func (s *OrderService) GetAdminOrders(ctx context.Context, filter entities.AdminOrderFilter, lp utils.ListParams) ([]dto.OrderDTO, uint64, error) {
	return s.orderRepo.GetAdminOrders(ctx, filter, lp)
}

func (s *OrderService) GetAdminCounters(ctx context.Context, filter entities.AdminOrderFilter) (*dto.OrderCountersDTO, error) {
	return s.orderRepo.GetAdminCounters(ctx, filter)
}
