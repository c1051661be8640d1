package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PreferenceRepository stores per (user, org) key/value settings
type PreferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the stored value, or "" and no error when nothing is stored
func (r *PreferenceRepository) Get(ctx context.Context, userID, orgID, key string) (string, error) {
	var pref domain.UserPreference
	err := GetDB(ctx, r.db).
		Where("user_id = ? AND org_id = ? AND preference_key = ?", userID, orgID, key).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pref.PreferenceValue, nil
}

// Upsert writes the value, replacing any earlier one
func (r *PreferenceRepository) Upsert(ctx context.Context, userID, orgID, key, value string) error {
	pref := domain.UserPreference{
		UserID:          userID,
		OrgID:           orgID,
		PreferenceKey:   key,
		PreferenceValue: value,
		UpdatedAt:       time.Now().UTC(),
	}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "org_id"}, {Name: "preference_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference_value", "updated_at"}),
	}).Create(&pref).Error
}
