package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceWithCount is an invoice row plus the number of tickets billed on it
type InvoiceWithCount struct {
	domain.Invoice
	TicketCount int
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(invoice).Error
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(invoice).Error
}

func (r *InvoiceRepository) withTickets(db *gorm.DB) *gorm.DB {
	return db.Preload("Tickets", func(db *gorm.DB) *gorm.DB {
		return db.Order("number ASC")
	}).Preload("Tickets.Stack")
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.withTickets(ApplyOrgFilter(ctx, GetDB(ctx, r.db))).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByIDForUpdate locks the invoice row for a status change
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"})).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByShareToken looks an invoice up by its share token alone. It is the only
// unscoped read in the repository and backs the public invoice page.
func (r *InvoiceRepository) GetByShareToken(ctx context.Context, token string) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.withTickets(GetDB(ctx, r.db)).Where("share_token = ?", token).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List returns a page of invoices, newest first, with ticket counts
func (r *InvoiceRepository) List(ctx context.Context, status *domain.InvoiceStatus, page, pageSize int) ([]InvoiceWithCount, int64, error) {
	var total int64
	base := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Invoice{}))
	if status != nil {
		base = base.Where("status = ?", *status)
	}
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = NormalizePage(page, pageSize)
	var invoices []domain.Invoice
	if err := base.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	counts, err := r.ticketCounts(ctx, invoices)
	if err != nil {
		return nil, 0, err
	}
	out := make([]InvoiceWithCount, len(invoices))
	for i, inv := range invoices {
		out[i] = InvoiceWithCount{Invoice: inv, TicketCount: counts[inv.ID]}
	}
	return out, total, nil
}

func (r *InvoiceRepository) ticketCounts(ctx context.Context, invoices []domain.Invoice) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(invoices))
	if len(invoices) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}

	var rows []struct {
		InvoiceID uuid.UUID
		Count     int
	}
	err := ApplyOrgFilter(ctx, GetDB(ctx, r.db).Model(&domain.Ticket{})).
		Select("invoice_id, COUNT(*) AS count").
		Where("invoice_id IN ?", ids).
		Group("invoice_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.InvoiceID] = row.Count
	}
	return counts, nil
}
