package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/units"
	"go.uber.org/zap"
)

type StackService struct {
	txManager    repository.TxManager
	stackRepo    *repository.StackRepository
	locationRepo *repository.LocationRepository
	txRepo       *repository.TransactionRepository
	logger       *zap.Logger
}

func NewStackService(
	txManager repository.TxManager,
	stackRepo *repository.StackRepository,
	locationRepo *repository.LocationRepository,
	txRepo *repository.TransactionRepository,
	logger *zap.Logger,
) *StackService {
	return &StackService{
		txManager:    txManager,
		stackRepo:    stackRepo,
		locationRepo: locationRepo,
		txRepo:       txRepo,
		logger:       logger,
	}
}

// Create adds a stack, normalizing its bale size and base price
func (s *StackService) Create(ctx context.Context, req *domain.CreateStackRequest) (*domain.StackDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInventoryWrite)
	if err != nil {
		return nil, err
	}

	stack := &domain.Stack{
		BaseModel: domain.BaseModel{OrgID: user.OrgID},
		UserID:    user.UserID,
	}
	if err := applyStackFields(stack, req.Name, req.Commodity, req.BaleSize, req.Quality, req.BasePrice, req.WeightPerBale, req.PriceUnit); err != nil {
		return nil, err
	}

	if err := s.stackRepo.Create(ctx, stack); err != nil {
		return nil, fmt.Errorf("failed to create stack: %w", err)
	}

	s.logger.Info("stack created",
		zap.String("stack_id", stack.ID.String()),
		zap.String("commodity", stack.Commodity),
		zap.String("org_id", user.OrgID))

	dto := mapper.ToStackDTO(stack, 0)
	return &dto, nil
}

// Update replaces a stack's attributes. Ledger history is left as recorded.
func (s *StackService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateStackRequest) (*domain.StackDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionInventoryWrite); err != nil {
		return nil, err
	}

	stack, err := s.stackRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStackNotFound)
	}
	if err := applyStackFields(stack, req.Name, req.Commodity, req.BaleSize, req.Quality, req.BasePrice, req.WeightPerBale, req.PriceUnit); err != nil {
		return nil, err
	}
	if err := s.stackRepo.Update(ctx, stack); err != nil {
		return nil, fmt.Errorf("failed to update stack: %w", err)
	}
	return s.GetByID(ctx, id)
}

func applyStackFields(stack *domain.Stack, name, commodity, baleSize, quality string, basePrice float64, weight *float64, priceUnit domain.PriceUnit) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(commodity) == "" {
		return validationError("name and commodity are required")
	}
	if !validPrice(basePrice) {
		return validationError("base price must not be negative")
	}
	if weight != nil && !validQuantity(*weight) {
		return validationError("weight per bale must be greater than zero")
	}
	unit, err := units.ParsePriceUnit(string(priceUnit), units.PriceUnitBale)
	if err != nil {
		return validationError("%v", err)
	}

	stack.Name = strings.TrimSpace(name)
	stack.Commodity = strings.TrimSpace(commodity)
	stack.BaleSize = units.NormalizeBaleSize(baleSize)
	stack.Quality = strings.TrimSpace(quality)
	stack.BasePrice = basePrice
	stack.WeightPerBale = weight
	stack.PriceUnit = domain.PriceUnit(unit)
	return nil
}

// GetByID returns the stack with its current stock and per-location breakdown
func (s *StackService) GetByID(ctx context.Context, id uuid.UUID) (*domain.StackDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	stack, err := s.stackRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStackNotFound)
	}

	idx, err := s.stockIndex(ctx)
	if err != nil {
		return nil, err
	}
	dto := idx.stackDTO(stack)
	return &dto, nil
}

// List returns the org's stacks with current stock
func (s *StackService) List(ctx context.Context) ([]domain.StackDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	stacks, err := s.stackRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	idx, err := s.stockIndex(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.StackDTO, len(stacks))
	for i := range stacks {
		dtos[i] = idx.stackDTO(&stacks[i])
	}
	return dtos, nil
}

// Delete removes the stack. Its transactions and tickets keep their rows with stack_id cleared.
func (s *StackService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := requirePermission(ctx, domain.PermissionStacksDelete)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.stackRepo.Delete(txCtx, id)
	})
	if err != nil {
		return notFound(err, ErrStackNotFound)
	}
	s.logger.Info("stack deleted", zap.String("stack_id", id.String()), zap.String("org_id", user.OrgID))
	return nil
}

// stockIndex groups the org's net stock by stack and by location
type stockIndex struct {
	byStack     map[uuid.UUID][]repository.StockRow
	byLocation  map[uuid.UUID][]repository.StockRow
	locations   map[uuid.UUID]domain.Location
	stackTotals map[uuid.UUID]float64
}

func (s *StackService) stockIndex(ctx context.Context) (*stockIndex, error) {
	return buildStockIndex(ctx, s.txRepo, s.locationRepo)
}

func buildStockIndex(ctx context.Context, txRepo *repository.TransactionRepository, locationRepo *repository.LocationRepository) (*stockIndex, error) {
	rows, err := txRepo.StockByStackAndLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock: %w", err)
	}
	locations, err := locationRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	idx := &stockIndex{
		byStack:     make(map[uuid.UUID][]repository.StockRow),
		byLocation:  make(map[uuid.UUID][]repository.StockRow),
		locations:   make(map[uuid.UUID]domain.Location, len(locations)),
		stackTotals: make(map[uuid.UUID]float64),
	}
	for _, l := range locations {
		idx.locations[l.ID] = l
	}
	for _, row := range rows {
		if row.StackID == nil {
			continue
		}
		idx.byStack[*row.StackID] = append(idx.byStack[*row.StackID], row)
		idx.stackTotals[*row.StackID] += row.Bales
		if row.LocationID != nil {
			idx.byLocation[*row.LocationID] = append(idx.byLocation[*row.LocationID], row)
		}
	}
	return idx, nil
}

func (idx *stockIndex) stackDTO(stack *domain.Stack) domain.StackDTO {
	dto := mapper.ToStackDTO(stack, idx.stackTotals[stack.ID])
	weight := dto.ResolvedWeight
	for _, row := range idx.byStack[stack.ID] {
		if row.LocationID == nil || row.Bales == 0 {
			continue
		}
		loc, ok := idx.locations[*row.LocationID]
		if !ok {
			continue
		}
		dto.Locations = append(dto.Locations, domain.StackLocationStockDTO{
			LocationID:   loc.ID,
			LocationName: loc.Name,
			Bales:        row.Bales,
			Tons:         units.BalesToTons(row.Bales, weight),
		})
	}
	return dto
}
