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

type LocationService struct {
	txManager    repository.TxManager
	locationRepo *repository.LocationRepository
	stackRepo    *repository.StackRepository
	txRepo       *repository.TransactionRepository
	logger       *zap.Logger
}

func NewLocationService(
	txManager repository.TxManager,
	locationRepo *repository.LocationRepository,
	stackRepo *repository.StackRepository,
	txRepo *repository.TransactionRepository,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		txManager:    txManager,
		locationRepo: locationRepo,
		stackRepo:    stackRepo,
		txRepo:       txRepo,
		logger:       logger,
	}
}

// Create adds a storage location. Capacity defaults to bales.
func (s *LocationService) Create(ctx context.Context, req *domain.CreateLocationRequest) (*domain.LocationDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInventoryWrite)
	if err != nil {
		return nil, err
	}
	location := &domain.Location{
		BaseModel: domain.BaseModel{OrgID: user.OrgID},
		UserID:    user.UserID,
	}
	if err := applyLocationFields(location, req.Name, req.Capacity, req.CapacityUnit); err != nil {
		return nil, err
	}
	if err := s.locationRepo.Create(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	s.logger.Info("location created",
		zap.String("location_id", location.ID.String()),
		zap.String("org_id", user.OrgID))

	dto := mapper.ToLocationDTO(location)
	return &dto, nil
}

// Update replaces a location's name and capacity
func (s *LocationService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLocationRequest) (*domain.LocationDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionInventoryWrite); err != nil {
		return nil, err
	}
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrLocationNotFound)
	}
	if err := applyLocationFields(location, req.Name, req.Capacity, req.CapacityUnit); err != nil {
		return nil, err
	}
	if err := s.locationRepo.Update(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to update location: %w", err)
	}
	return s.GetByID(ctx, id)
}

func applyLocationFields(location *domain.Location, name string, capacity float64, unit domain.CapacityUnit) error {
	if strings.TrimSpace(name) == "" {
		return validationError("name is required")
	}
	if !validPrice(capacity) {
		return validationError("capacity must not be negative")
	}
	switch unit {
	case "":
		unit = domain.CapacityUnitBales
	case domain.CapacityUnitBales, domain.CapacityUnitTons:
	default:
		return validationError("unknown capacity unit %q", unit)
	}
	location.Name = strings.TrimSpace(name)
	location.Capacity = capacity
	location.CapacityUnit = unit
	return nil
}

// GetByID returns the location with the stacks held there and its capacity usage
func (s *LocationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LocationDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrLocationNotFound)
	}
	idx, stacks, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}
	dto := locationDTO(location, idx, stacks, true)
	return &dto, nil
}

// List returns all locations with current usage, without the per-stack breakdown
func (s *LocationService) List(ctx context.Context) ([]domain.LocationDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	locations, err := s.locationRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	idx, stacks, err := s.inventory(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.LocationDTO, len(locations))
	for i := range locations {
		dtos[i] = locationDTO(&locations[i], idx, stacks, false)
	}
	return dtos, nil
}

// Delete removes a location that no transaction references
func (s *LocationService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := requirePermission(ctx, domain.PermissionLocationsDelete)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.locationRepo.GetByID(txCtx, id); err != nil {
			return notFound(err, ErrLocationNotFound)
		}
		count, err := s.locationRepo.CountTransactions(txCtx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrLocationHasHistory
		}
		return s.locationRepo.Delete(txCtx, id)
	})
	if err != nil {
		return notFound(err, ErrLocationNotFound)
	}
	s.logger.Info("location deleted", zap.String("location_id", id.String()), zap.String("org_id", user.OrgID))
	return nil
}

func (s *LocationService) inventory(ctx context.Context) (*stockIndex, map[uuid.UUID]domain.Stack, error) {
	idx, err := buildStockIndex(ctx, s.txRepo, s.locationRepo)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.stackRepo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list stacks: %w", err)
	}
	stacks := make(map[uuid.UUID]domain.Stack, len(list))
	for _, st := range list {
		stacks[st.ID] = st
	}
	return idx, stacks, nil
}

func locationDTO(location *domain.Location, idx *stockIndex, stacks map[uuid.UUID]domain.Stack, withStacks bool) domain.LocationDTO {
	dto := mapper.ToLocationDTO(location)
	for _, row := range idx.byLocation[location.ID] {
		stack, ok := stacks[*row.StackID]
		if !ok {
			continue
		}
		tons := units.BalesToTons(row.Bales, mapper.StackWeight(&stack))
		dto.CurrentStock += row.Bales
		dto.CurrentStockTons += tons
		if withStacks && row.Bales != 0 {
			dto.Stacks = append(dto.Stacks, domain.LocationStackDTO{
				StackID:   stack.ID,
				StackName: stack.Name,
				Commodity: stack.Commodity,
				Bales:     row.Bales,
				Tons:      tons,
			})
		}
	}
	dto.UsagePercent = mapper.UsagePercent(location.Capacity, location.CapacityUnit, dto.CurrentStock, dto.CurrentStockTons)
	return dto
}
