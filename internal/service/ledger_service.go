package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/lock"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/units"
	"go.uber.org/zap"
)

// LedgerService records inventory transactions and derives stock from them.
// Stock is never stored; every read sums the ledger.
type LedgerService struct {
	txManager    repository.TxManager
	stackRepo    *repository.StackRepository
	locationRepo *repository.LocationRepository
	txRepo       *repository.TransactionRepository
	locker       lock.Locker
	logger       *zap.Logger
}

func NewLedgerService(
	txManager repository.TxManager,
	stackRepo *repository.StackRepository,
	locationRepo *repository.LocationRepository,
	txRepo *repository.TransactionRepository,
	locker lock.Locker,
	logger *zap.Logger,
) *LedgerService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &LedgerService{
		txManager:    txManager,
		stackRepo:    stackRepo,
		locationRepo: locationRepo,
		txRepo:       txRepo,
		locker:       locker,
		logger:       logger,
	}
}

// CurrentStock returns the net quantity of a stack, at one location when locationID is set
func (s *LedgerService) CurrentStock(ctx context.Context, stackID uuid.UUID, locationID *uuid.UUID) (*domain.StockLevelDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}

	stack, err := s.stackRepo.GetByID(ctx, stackID)
	if err != nil {
		return nil, notFound(err, ErrStackNotFound)
	}
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			return nil, notFound(err, ErrLocationNotFound)
		}
	}

	bales, err := s.txRepo.CurrentStock(ctx, stackID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock: %w", err)
	}

	weight := mapper.StackWeight(stack)
	return &domain.StockLevelDTO{
		StackID:    stackID,
		LocationID: locationID,
		Bales:      bales,
		Tons:       units.BalesToTons(bales, weight),
		Display:    units.FormatDualUnits(bales, weight),
	}, nil
}

// CheckSufficiency returns an *domain.InsufficientStockError when the stack holds fewer than
// requested bales at the location
func (s *LedgerService) CheckSufficiency(ctx context.Context, stackID, locationID uuid.UUID, requested float64) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	return s.checkSufficiency(ctx, stackID, locationID, requested)
}

func (s *LedgerService) checkSufficiency(ctx context.Context, stackID, locationID uuid.UUID, requested float64) error {
	available, err := s.txRepo.CurrentStock(ctx, stackID, &locationID)
	if err != nil {
		return fmt.Errorf("failed to compute stock: %w", err)
	}
	if requested > available {
		return &domain.InsufficientStockError{Available: available, Requested: requested}
	}
	return nil
}

// withStockGuard runs fn in one DB transaction with the stack row locked. When a distributed
// locker is configured, the (org, stack, location) key is held for the whole transaction.
func (s *LedgerService) withStockGuard(ctx context.Context, orgID string, stackID uuid.UUID, locationID *uuid.UUID, fn func(txCtx context.Context) error) error {
	release, err := s.locker.Acquire(ctx, lock.StockKey(orgID, stackID, locationID))
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return ErrBusy
		}
		return fmt.Errorf("failed to acquire stock lock: %w", err)
	}
	defer release()

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.stackRepo.GetByIDForUpdate(txCtx, stackID); err != nil {
			return notFound(err, ErrStackNotFound)
		}
		return fn(txCtx)
	})
}

// normalizedEntry is a transaction request converted to bales and $/ton
type normalizedEntry struct {
	stack  *domain.Stack
	amount float64
	price  float64
}

func (s *LedgerService) normalize(ctx context.Context, txType domain.TransactionType, stackID uuid.UUID, locationID *uuid.UUID, amount float64, unit string, price float64, priceUnit domain.PriceUnit) (*normalizedEntry, error) {
	if !txType.IsValid() {
		return nil, validationError("unknown transaction type %q", txType)
	}
	if !validQuantity(amount) {
		return nil, validationError("amount must be greater than zero")
	}
	if !validPrice(price) {
		return nil, validationError("price must not be negative")
	}
	amountUnit, err := units.ParseAmountUnit(unit)
	if err != nil {
		return nil, validationError("%v", err)
	}
	pUnit, err := units.ParsePriceUnit(string(priceUnit), units.PriceUnitTon)
	if err != nil {
		return nil, validationError("%v", err)
	}
	if txType == domain.TransactionTypeSale && locationID == nil {
		return nil, ErrSaleLocationRequired
	}

	stack, err := s.stackRepo.GetByID(ctx, stackID)
	if err != nil {
		return nil, notFound(err, ErrStackNotFound)
	}
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			return nil, notFound(err, ErrLocationNotFound)
		}
	}

	weight := mapper.StackWeight(stack)
	bales := units.ToBales(amount, amountUnit, weight)
	if bales <= 0 {
		return nil, validationError("amount is less than one bale")
	}
	return &normalizedEntry{
		stack:  stack,
		amount: bales,
		price:  units.NormalizePrice(price, pUnit, weight),
	}, nil
}

// RecordTransaction stores a ledger entry in bales and $/ton. Sales are checked against the
// stock at their source location and written under the stock guard.
func (s *LedgerService) RecordTransaction(ctx context.Context, req *domain.CreateTransactionRequest) (*domain.TransactionDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInventoryWrite)
	if err != nil {
		return nil, err
	}

	entry, err := s.normalize(ctx, req.Type, req.StackID, req.LocationID, req.Amount, req.Unit, req.Price, req.PriceUnit)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		BaseModel:  domain.BaseModel{OrgID: user.OrgID},
		Type:       req.Type,
		StackID:    &entry.stack.ID,
		LocationID: req.LocationID,
		Amount:     entry.amount,
		Unit:       string(units.AmountUnitBales),
		Price:      entry.price,
		Entity:     req.Entity,
		UserID:     user.UserID,
	}

	if req.Type == domain.TransactionTypeSale {
		err = s.withStockGuard(ctx, user.OrgID, entry.stack.ID, req.LocationID, func(txCtx context.Context) error {
			if err := s.checkSufficiency(txCtx, entry.stack.ID, *req.LocationID, entry.amount); err != nil {
				return err
			}
			return s.txRepo.Create(txCtx, tx)
		})
	} else {
		err = s.txRepo.Create(ctx, tx)
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrBusy) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.logger.Info("transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("stack_id", entry.stack.ID.String()),
		zap.Float64("bales", tx.Amount),
		zap.String("org_id", user.OrgID))

	tx.Stack = entry.stack
	return s.reload(ctx, tx)
}

// UpdateTransaction re-normalizes an entry. Stock is not rechecked.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id uuid.UUID, req *domain.UpdateTransactionRequest) (*domain.TransactionDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionInventoryWrite); err != nil {
		return nil, err
	}

	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}

	entry, err := s.normalize(ctx, req.Type, req.StackID, req.LocationID, req.Amount, req.Unit, req.Price, req.PriceUnit)
	if err != nil {
		return nil, err
	}

	tx.Type = req.Type
	tx.StackID = &entry.stack.ID
	tx.LocationID = req.LocationID
	tx.Amount = entry.amount
	tx.Unit = string(units.AmountUnitBales)
	tx.Price = entry.price
	tx.Entity = req.Entity
	tx.Stack = nil
	tx.Location = nil

	if err := s.txRepo.Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return s.reload(ctx, tx)
}

// DeleteTransaction removes a ledger entry
func (s *LedgerService) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if _, err := requirePermission(ctx, domain.PermissionInventoryWrite); err != nil {
		return err
	}
	if err := s.txRepo.Delete(ctx, id); err != nil {
		return notFound(err, ErrTransactionNotFound)
	}
	return nil
}

// GetTransaction returns a single entry, including orphaned ones
func (s *LedgerService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.TransactionDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound)
	}
	dto := mapper.ToTransactionDTO(tx)
	return &dto, nil
}

// ListTransactions returns a page of entries, most recent first
func (s *LedgerService) ListTransactions(ctx context.Context, filters *domain.TransactionFilters, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	page, pageSize = repository.NormalizePage(page, pageSize)

	txs, total, err := s.txRepo.List(ctx, filters, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	dtos := make([]domain.TransactionDTO, len(txs))
	for i := range txs {
		dtos[i] = mapper.ToTransactionDTO(&txs[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *LedgerService) reload(ctx context.Context, tx *domain.Transaction) (*domain.TransactionDTO, error) {
	loaded, err := s.txRepo.GetByID(ctx, tx.ID)
	if err != nil {
		dto := mapper.ToTransactionDTO(tx)
		return &dto, nil
	}
	dto := mapper.ToTransactionDTO(loaded)
	return &dto, nil
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
