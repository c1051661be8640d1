package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(ctx context.Context, location *domain.Location) error {
	return GetDB(ctx, r.db).Create(location).Error
}

func (r *LocationRepository) Update(ctx context.Context, location *domain.Location) error {
	return GetDB(ctx, r.db).Save(location).Error
}

func (r *LocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	var location domain.Location
	if err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Where("id = ?", id)).First(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) List(ctx context.Context) ([]domain.Location, error) {
	var locations []domain.Location
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db)).Order("name ASC").Find(&locations).Error
	return locations, err
}

// CountTransactions reports how many ledger entries reference the location
func (r *LocationRepository) CountTransactions(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})).
		Where("location_id = ?", id).
		Count(&count).Error
	return count, err
}

// Delete removes the location and clears ticket references to it. Call inside RunInTx.
func (r *LocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := ApplyOrgFilter(ctx, db.Model(&domain.Ticket{})).
		Where("location_id = ?", id).Update("location_id", nil).Error; err != nil {
		return err
	}
	if err := ApplyOrgFilter(ctx, db.Model(&domain.Ticket{})).
		Where("destination_id = ?", id).Update("destination_id", nil).Error; err != nil {
		return err
	}
	result := ApplyOrgFilter(ctx, db.Where("id = ?", id)).Delete(&domain.Location{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
