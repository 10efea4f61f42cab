package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"music-shop/internal/dto"
	"music-shop/internal/entities"
	"music-shop/internal/repositories"
	apperrors "music-shop/pkg/errors"
)

const (
	cacheKeyConditions    = "trade_in:conditions"
	cacheKeyCatalogFormat = "trade_in:catalog:%d"
)

type TradeInServiceInterface interface {
	GetCatalogEntries(ctx context.Context, limit, offset uint64) ([]dto.TradeInCatalogDTO, uint64, error)
	CreateCatalogEntry(ctx context.Context, data dto.CreateTradeInCatalogDTO) (*dto.TradeInCatalogDTO, error)
	ActivateCatalogEntry(ctx context.Context, id uint64) error
	GetConditions(ctx context.Context) ([]dto.TradeInConditionDTO, error)
	CreateCondition(ctx context.Context, data dto.CreateTradeInConditionDTO) (*dto.TradeInConditionDTO, error)
	GetQuote(ctx context.Context, items []dto.CreateTradeInSelectionDTO) (*dto.QuoteDTO, error)
}

type TradeInService struct {
	txManager   repositories.TxManagerInterface
	tradeInRepo repositories.TradeInRepositoryInterface
	cacheRepo   repositories.CacheRepositoryInterface
	cacheTTL    time.Duration
	logger      *zap.Logger
}

func NewTradeInService(
	txManager repositories.TxManagerInterface,
	tradeInRepo repositories.TradeInRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	cacheTTL time.Duration,
	logger *zap.Logger,
) TradeInServiceInterface {
	return &TradeInService{
		txManager:   txManager,
		tradeInRepo: tradeInRepo,
		cacheRepo:   cacheRepo,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func catalogEntryToDTO(e *entities.TradeInCatalogEntry) dto.TradeInCatalogDTO {
	return dto.TradeInCatalogDTO{
		ID:                 e.ID,
		ProductID:          e.ProductID,
		ReferencePrice:     e.ReferencePrice,
		BaseDiscountAmount: e.BaseDiscountAmount,
		IsActive:           e.IsActive,
		CreatedAt:          e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		UpdatedAt:          e.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
	}
}

func conditionToDTO(c *entities.TradeInCondition) dto.TradeInConditionDTO {
	return dto.TradeInConditionDTO{ID: c.ID, Code: c.Code, Name: c.Name, Percent: c.Percent}
}

func (s *TradeInService) GetCatalogEntries(ctx context.Context, limit, offset uint64) ([]dto.TradeInCatalogDTO, uint64, error) {
	entries, total, err := s.tradeInRepo.GetCatalogEntries(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.TradeInCatalogDTO, 0, len(entries))
	for i := range entries {
		result = append(result, catalogEntryToDTO(&entries[i]))
	}
	return result, total, nil
}

func (s *TradeInService) CreateCatalogEntry(ctx context.Context, data dto.CreateTradeInCatalogDTO) (*dto.TradeInCatalogDTO, error) {
	now := time.Now()
	entry := &entities.TradeInCatalogEntry{
		ProductID:          data.ProductID,
		ReferencePrice:     data.ReferencePrice,
		BaseDiscountAmount: data.BaseDiscountAmount,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		newID, err := s.tradeInRepo.CreateCatalogEntry(ctx, tx, entry)
		if err != nil {
			return err
		}
		entry.ID = newID
		if data.IsActive {
			if err := s.tradeInRepo.DeactivateOthersInTx(ctx, tx, entry.ProductID, newID); err != nil {
				return err
			}
			if err := s.tradeInRepo.ActivateCatalogEntryInTx(ctx, tx, newID); err != nil {
				return err
			}
			entry.IsActive = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCatalogCache(ctx, entry.ProductID)

	result := catalogEntryToDTO(entry)
	return &result, nil
}

// ActivateCatalogEntry включает запись и в той же транзакции гасит
// прежнюю активную запись того же товара.
func (s *TradeInService) ActivateCatalogEntry(ctx context.Context, id uint64) error {
	var productID uint64
	err := s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		entry, err := s.tradeInRepo.FindCatalogEntryInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		productID = entry.ProductID
		if err := s.tradeInRepo.DeactivateOthersInTx(ctx, tx, entry.ProductID, id); err != nil {
			return err
		}
		return s.tradeInRepo.ActivateCatalogEntryInTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateCatalogCache(ctx, productID)
	return nil
}

func (s *TradeInService) GetConditions(ctx context.Context) ([]dto.TradeInConditionDTO, error) {
	conditions, err := s.loadConditions(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]dto.TradeInConditionDTO, 0, len(conditions))
	for i := range conditions {
		result = append(result, conditionToDTO(&conditions[i]))
	}
	return result, nil
}

func (s *TradeInService) CreateCondition(ctx context.Context, data dto.CreateTradeInConditionDTO) (*dto.TradeInConditionDTO, error) {
	condition := &entities.TradeInCondition{
		Code:    data.Code,
		Name:    data.Name,
		Percent: data.Percent,
	}
	newID, err := s.tradeInRepo.CreateCondition(ctx, condition)
	if err != nil {
		return nil, err
	}
	condition.ID = newID

	if err := s.cacheRepo.Delete(ctx, cacheKeyConditions); err != nil {
		s.logger.Warn("не удалось сбросить кэш состояний trade-in", zap.Error(err))
	}

	result := conditionToDTO(condition)
	return &result, nil
}

// GetQuote — предварительный расчёт для корзины. Тот же движок
// используется при оформлении заказа, поэтому витрина и сервер
// не расходятся в суммах.
func (s *TradeInService) GetQuote(ctx context.Context, items []dto.CreateTradeInSelectionDTO) (*dto.QuoteDTO, error) {
	quote := &dto.QuoteDTO{Lines: make([]dto.QuoteLineDTO, 0, len(items))}
	lines := make([]DiscountLine, 0, len(items))

	for _, item := range items {
		unitDiscount, err := s.lookupUnitDiscount(ctx, item.ProductID, item.ConditionCode)
		if err != nil {
			return nil, err
		}
		lineDiscount := ComputeLineDiscount(unitDiscount, item.Quantity)
		quote.Lines = append(quote.Lines, dto.QuoteLineDTO{
			ProductID:     item.ProductID,
			ConditionCode: item.ConditionCode,
			Quantity:      item.Quantity,
			UnitDiscount:  unitDiscount,
			LineDiscount:  lineDiscount,
		})
		lines = append(lines, DiscountLine{UnitDiscount: unitDiscount, Quantity: item.Quantity})
	}

	quote.TotalDiscount = ComputeOrderDiscount(lines)
	return quote, nil
}

// lookupUnitDiscount возвращает 0 для товара без активной конфигурации
// или неизвестного состояния: оформление не блокируется.
func (s *TradeInService) lookupUnitDiscount(ctx context.Context, productID uint64, conditionCode string) (int64, error) {
	entry, err := s.findActiveEntry(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	conditions, err := s.loadConditions(ctx)
	if err != nil {
		return 0, err
	}
	var condition *entities.TradeInCondition
	for i := range conditions {
		if conditions[i].Code == conditionCode {
			condition = &conditions[i]
			break
		}
	}
	if condition == nil {
		// Кэшированный список мог не успеть обновиться после добавления
		// нового состояния.
		condition, err = s.tradeInRepo.FindConditionByCode(ctx, conditionCode)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return 0, err
		}
	}

	return ComputeUnitDiscount(entry, condition), nil
}

func (s *TradeInService) findActiveEntry(ctx context.Context, productID uint64) (*entities.TradeInCatalogEntry, error) {
	key := fmt.Sprintf(cacheKeyCatalogFormat, productID)
	var cached entities.TradeInCatalogEntry
	found, err := s.cacheRepo.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("ошибка чтения кэша trade-in", zap.Error(err))
	} else if found {
		return &cached, nil
	}

	entry, err := s.tradeInRepo.FindActiveCatalogEntry(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.cacheRepo.Set(ctx, key, entry, s.cacheTTL); err != nil {
		s.logger.Warn("не удалось записать кэш trade-in", zap.Error(err))
	}
	return entry, nil
}

func (s *TradeInService) loadConditions(ctx context.Context) ([]entities.TradeInCondition, error) {
	var cached []entities.TradeInCondition
	found, err := s.cacheRepo.Get(ctx, cacheKeyConditions, &cached)
	if err != nil {
		s.logger.Warn("ошибка чтения кэша состояний trade-in", zap.Error(err))
	} else if found {
		return cached, nil
	}

	conditions, err := s.tradeInRepo.GetConditions(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cacheRepo.Set(ctx, cacheKeyConditions, conditions, s.cacheTTL); err != nil {
		s.logger.Warn("не удалось записать кэш состояний trade-in", zap.Error(err))
	}
	return conditions, nil
}

func (s *TradeInService) invalidateCatalogCache(ctx context.Context, productID uint64) {
	key := fmt.Sprintf(cacheKeyCatalogFormat, productID)
	if err := s.cacheRepo.Delete(ctx, key); err != nil {
		s.logger.Warn("не удалось сбросить кэш каталога trade-in", zap.Error(err))
	}
}
