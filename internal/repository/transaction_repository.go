package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// stockExpr nets inflows against sales. Moves and adjustments do not change stock.
var stockExpr = fmt.Sprintf(
	"COALESCE(SUM(CASE WHEN type IN ('%s', '%s') THEN amount WHEN type = '%s' THEN -amount ELSE 0 END), 0)",
	domain.TransactionTypeProduction, domain.TransactionTypePurchase, domain.TransactionTypeSale,
)

// StockRow is the net bale count for one stack at one location
type StockRow struct {
	StackID    *uuid.UUID
	LocationID *uuid.UUID
	Bales      float64
}

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(tx).Error
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(tx).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db)).
		Preload("Stack").
		Preload("Location").
		Where("id = ?", id).
		First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Where("id = ?", id)).Delete(&domain.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns a page of entries, most recent first
func (r *TransactionRepository) List(ctx context.Context, filters *domain.TransactionFilters, page, pageSize int) ([]domain.Transaction, int64, error) {
	var txs []domain.Transaction
	var total int64

	query := r.applyFilters(ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = NormalizePage(page, pageSize)
	err := query.
		Preload("Stack").
		Preload("Location").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}

// ListAll returns every matching entry with its stack loaded, for reports
func (r *TransactionRepository) ListAll(ctx context.Context, filters *domain.TransactionFilters) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	query := r.applyFilters(ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})), filters)
	err := query.Preload("Stack").Order("created_at ASC").Find(&txs).Error
	return txs, err
}

// Recent returns the latest entries
func (r *TransactionRepository) Recent(ctx context.Context, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db)).
		Preload("Stack").
		Preload("Location").
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepository) applyFilters(query *gorm.DB, filters *domain.TransactionFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.StackID != nil {
		query = query.Where("stack_id = ?", *filters.StackID)
	}
	if filters.LocationID != nil {
		query = query.Where("location_id = ?", *filters.LocationID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", *filters.To)
	}
	return query
}

// CurrentStock derives the net bales of a stack, at one location when locationID is set
func (r *TransactionRepository) CurrentStock(ctx context.Context, stackID uuid.UUID, locationID *uuid.UUID) (float64, error) {
	query := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})).
		Select(stockExpr).
		Where("stack_id = ?", stackID)
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var sum sql.NullFloat64
	if err := query.Row().Scan(&sum); err != nil {
		return 0, err
	}
	return sum.Float64, nil
}

// StockByStackAndLocation returns net bales grouped by (stack, location) for the org
func (r *TransactionRepository) StockByStackAndLocation(ctx context.Context) ([]StockRow, error) {
	var rows []StockRow
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})).
		Select("stack_id, location_id, " + stockExpr + " AS bales").
		Where("stack_id IS NOT NULL").
		Group("stack_id, location_id").
		Scan(&rows).Error
	return rows, err
}

// SumAmount totals the bales of one transaction type since a point in time
func (r *TransactionRepository) SumAmount(ctx context.Context, txType domain.TransactionType, since time.Time) (float64, error) {
	var sum sql.NullFloat64
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Transaction{})).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND created_at >= ?", txType, since).
		Row().Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum.Float64, nil
}
