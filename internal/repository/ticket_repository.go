package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(ticket).Error
}

func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(ticket).Error
}

func (r *TicketRepository) preload(db *gorm.DB) *gorm.DB {
	return db.Preload("Stack").Preload("Location").Preload("Destination")
}

func (r *TicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.preload(ApplyOrgFilter(ctx, GetDB(ctx, r.db))).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByIDForUpdate locks the ticket row so concurrent approvals of the same ticket serialize
func (r *TicketRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("id = ?", id).
		First(&ticket).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByIDsForUpdate returns the org's tickets among ids, locked for the surrounding transaction
func (r *TicketRepository) ListByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("id IN ?", ids).
		Order("number ASC").
		Find(&tickets).Error
	return tickets, err
}

// List returns tickets newest first. driverID limits the result to one creator when set.
func (r *TicketRepository) List(ctx context.Context, filters *domain.TicketFilters, driverID string, limit int) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	query := r.preload(ApplyOrgFilter(ctx, GetDB(ctx, r.db)))
	if filters != nil {
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.Type != nil {
			query = query.Where("type = ?", *filters.Type)
		}
	}
	if driverID != "" {
		query = query.Where("driver_id = ?", driverID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Order("created_at DESC").Find(&tickets).Error
	return tickets, err
}

// ListByInvoice returns the tickets billed on an invoice in ticket order
func (r *TicketRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	err := r.preload(ApplyOrgFilter(ctx, GetDB(ctx, r.db))).
		Where("invoice_id = ?", invoiceID).
		Order("number ASC").
		Find(&tickets).Error
	return tickets, err
}

// MarkInvoiced moves the given tickets to invoiced and links them to the invoice
func (r *TicketRepository) MarkInvoiced(ctx context.Context, ids []uuid.UUID, invoiceID uuid.UUID) error {
	return ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Ticket{})).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     domain.TicketStatusInvoiced,
			"invoice_id": invoiceID,
		}).Error
}

func (r *TicketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Where("id = ?", id)).Delete(&domain.Ticket{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
