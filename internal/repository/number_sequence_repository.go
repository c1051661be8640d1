package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository keeps per-org counters, one row per (org, name)
type NumberSequenceRepository struct {
	db *gorm.DB
}

func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// GetNextNumber atomically increments and returns the named counter for an org.
// The row is locked with SELECT FOR UPDATE; a missing row starts the sequence at 1.
// Inside an outer transaction the increment runs in a savepoint and commits with it.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, orgID, name string) (int, error) {
	var next int

	err := GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ? AND name = ?", orgID, name).
			First(&seq)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			seq = domain.NumberSequence{
				OrgID:        orgID,
				Name:         name,
				LastSequence: 1,
			}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			next = 1
		case result.Error != nil:
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		default:
			next = seq.LastSequence + 1
			if err := tx.Model(&seq).Updates(map[string]interface{}{
				"last_sequence": next,
				"updated_at":    time.Now().UTC(),
			}).Error; err != nil {
				return fmt.Errorf("failed to update number sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// GetCurrentSequence returns the last issued value, or 0 if none was issued
func (r *NumberSequenceRepository) GetCurrentSequence(ctx context.Context, orgID, name string) (int, error) {
	var seq domain.NumberSequence
	result := GetDB(ctx, r.db).Where("org_id = ? AND name = ?", orgID, name).First(&seq)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}
	return seq.LastSequence, nil
}

// SetSequence raises the counter to value. Used when seeding from existing data;
// the counter never moves backwards.
func (r *NumberSequenceRepository) SetSequence(ctx context.Context, orgID, name string, value int) error {
	return GetDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("org_id = ? AND name = ?", orgID, name).
			First(&seq)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			seq = domain.NumberSequence{OrgID: orgID, Name: name, LastSequence: value}
			return tx.Create(&seq).Error
		case result.Error != nil:
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		case value > seq.LastSequence:
			return tx.Model(&seq).Updates(map[string]interface{}{
				"last_sequence": value,
				"updated_at":    time.Now().UTC(),
			}).Error
		}
		return nil
	})
}
