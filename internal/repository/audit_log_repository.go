package repository

import (
	"context"
	"time"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
)

// AuditLogRepository handles audit log data access
type AuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a new audit log entry (append-only)
func (r *AuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// List retrieves the org's audit logs with pagination and optional filters
func (r *AuditLogRepository) List(ctx context.Context, filter *domain.AuditLogFilters, page, pageSize int) ([]domain.AuditLog, int64, error) {
	var logs []domain.AuditLog
	var total int64

	query := r.applyFilters(ApplyOrgFilter(ctx, r.db.WithContext(ctx).Model(&domain.AuditLog{})), filter)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = NormalizePage(page, pageSize)
	err := query.
		Order("performed_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// DeleteOlderThan removes entries across all orgs older than before. Used by the retention job.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("performed_at < ?", before).
		Delete(&domain.AuditLog{})
	return result.RowsAffected, result.Error
}

func (r *AuditLogRepository) applyFilters(query *gorm.DB, filter *domain.AuditLogFilters) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.From != nil {
		query = query.Where("performed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("performed_at <= ?", *filter.To)
	}
	return query
}
