package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/export"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/storage"
	"github.com/jakecourtright/HayFlow/internal/units"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// invoiceTransitions lists the allowed status edges. Paid is terminal.
var invoiceTransitions = map[domain.InvoiceStatus][]domain.InvoiceStatus{
	domain.InvoiceStatusDraft: {domain.InvoiceStatusSent},
	domain.InvoiceStatusSent:  {domain.InvoiceStatusPaid, domain.InvoiceStatusDraft},
}

// CanTransitionInvoice reports whether an invoice may move from one status to another
func CanTransitionInvoice(from, to domain.InvoiceStatus) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvoiceTotal prices an invoice from its tickets. Per-ton pricing uses the scale weight,
// so tickets without net lbs contribute nothing. A nil price yields zero.
func InvoiceTotal(price *decimal.Decimal, unit domain.PriceUnit, tickets []domain.Ticket) decimal.Decimal {
	if price == nil {
		return decimal.Zero
	}
	bales, netLbs := mapper.TicketTotals(tickets)
	var total decimal.Decimal
	if unit == domain.PriceUnit(units.PriceUnitBale) {
		total = price.Mul(decimal.NewFromFloat(bales))
	} else {
		total = price.Mul(decimal.NewFromFloat(netLbs)).Div(decimal.NewFromFloat(units.LbsPerTon))
	}
	return total.Round(2)
}

type InvoiceService struct {
	txManager   repository.TxManager
	invoiceRepo *repository.InvoiceRepository
	ticketRepo  *repository.TicketRepository
	sequences   *NumberSequenceService
	archive     storage.Storage
	hub         *realtime.Hub
	logger      *zap.Logger
}

func NewInvoiceService(
	txManager repository.TxManager,
	invoiceRepo *repository.InvoiceRepository,
	ticketRepo *repository.TicketRepository,
	sequences *NumberSequenceService,
	archive storage.Storage,
	hub *realtime.Hub,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		txManager:   txManager,
		invoiceRepo: invoiceRepo,
		ticketRepo:  ticketRepo,
		sequences:   sequences,
		archive:     archive,
		hub:         hub,
		logger:      logger,
	}
}

// Compile bills a set of approved tickets on a new draft invoice. Either every ticket is
// invoiced or none is.
func (s *InvoiceService) Compile(ctx context.Context, req *domain.CompileInvoiceRequest) (*domain.InvoiceDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInvoicesManage)
	if err != nil {
		return nil, err
	}

	var invoice *domain.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		invoice, err = s.compile(txCtx, user, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice compiled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("tickets", len(invoice.Tickets)),
		zap.String("org_id", user.OrgID))

	dto, err := s.GetByID(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventInvoiceCreated, dto)
	return dto, nil
}

// compile must run inside RunInTx
func (s *InvoiceService) compile(ctx context.Context, user *auth.UserContext, req *domain.CompileInvoiceRequest) (*domain.Invoice, error) {
	ids := distinctIDs(req.TicketIDs)
	if len(ids) == 0 {
		return nil, validationError("no tickets selected")
	}
	price, unit, err := invoicePricing(req.PricePerUnit, req.PriceUnit)
	if err != nil {
		return nil, err
	}

	tickets, err := s.ticketRepo.ListByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	if len(tickets) != len(ids) {
		return nil, ErrTicketsNotApproved
	}
	for i := range tickets {
		if tickets[i].Status != domain.TicketStatusApproved {
			return nil, ErrTicketsNotApproved
		}
	}

	number, err := s.sequences.GenerateInvoiceNumber(ctx, user.OrgID)
	if err != nil {
		return nil, err
	}
	token, err := domain.NewShareToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate share token: %w", err)
	}

	invoice := &domain.Invoice{
		BaseModel:     domain.BaseModel{OrgID: user.OrgID},
		InvoiceNumber: number,
		Customer:      strings.TrimSpace(req.Customer),
		Status:        domain.InvoiceStatusDraft,
		TotalAmount:   InvoiceTotal(price, unit, tickets),
		PricePerUnit:  price,
		PriceUnit:     unit,
		Notes:         req.Notes,
		ShareToken:    token,
		CreatedBy:     user.UserID,
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	if err := s.ticketRepo.MarkInvoiced(ctx, ids, invoice.ID); err != nil {
		return nil, fmt.Errorf("failed to link tickets: %w", err)
	}
	invoice.Tickets = tickets
	return invoice, nil
}

func invoicePricing(price *float64, priceUnit domain.PriceUnit) (*decimal.Decimal, domain.PriceUnit, error) {
	unit, err := units.ParsePriceUnit(string(priceUnit), units.PriceUnitTon)
	if err != nil {
		return nil, "", validationError("%v", err)
	}
	if price == nil {
		return nil, domain.PriceUnit(unit), nil
	}
	if !validPrice(*price) {
		return nil, "", validationError("price must not be negative")
	}
	d := decimal.NewFromFloat(*price).Round(2)
	return &d, domain.PriceUnit(unit), nil
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Update edits customer, notes and pricing and recomputes the total from the linked tickets
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateInvoiceRequest) (*domain.InvoiceDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInvoicesManage)
	if err != nil {
		return nil, err
	}
	price, unit, err := invoicePricing(req.PricePerUnit, req.PriceUnit)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		if invoice.Status == domain.InvoiceStatusPaid {
			return ErrInvoicePaid
		}
		tickets, err := s.ticketRepo.ListByInvoice(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load invoice tickets: %w", err)
		}

		invoice.Customer = strings.TrimSpace(req.Customer)
		invoice.Notes = req.Notes
		invoice.PricePerUnit = price
		invoice.PriceUnit = unit
		invoice.TotalAmount = InvoiceTotal(price, unit, tickets)
		return s.invoiceRepo.Update(txCtx, invoice)
	})
	if err != nil {
		return nil, err
	}

	dto, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventInvoiceUpdated, dto)
	return dto, nil
}

// UpdateStatus moves an invoice along draft -> sent -> paid (or back from sent to draft).
// Setting the current status again is a no-op. Sending archives an XLSX snapshot.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.InvoiceDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionInvoicesManage)
	if err != nil {
		return nil, err
	}
	target := domain.InvoiceStatus(strings.ToLower(strings.TrimSpace(status)))
	if !target.IsValid() {
		return nil, ErrUnknownInvoiceStatus
	}

	var from domain.InvoiceStatus
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		from = invoice.Status
		if from == target {
			return nil
		}
		if !CanTransitionInvoice(from, target) {
			return fmt.Errorf("%w: cannot move invoice from %s to %s", ErrInvalidStateTransition, from, target)
		}
		invoice.Status = target
		return s.invoiceRepo.Update(txCtx, invoice)
	})
	if err != nil {
		return nil, err
	}

	if from != target {
		s.logger.Info("invoice status changed",
			zap.String("invoice_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(target)),
			zap.String("org_id", user.OrgID))
		if target == domain.InvoiceStatusSent {
			s.archiveSnapshot(ctx, id)
		}
	}

	dto, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if from != target {
		s.hub.Publish(user.OrgID, realtime.EventInvoiceStatus, dto)
	}
	return dto, nil
}

// archiveSnapshot stores the invoice workbook and records its path. Failures are logged only.
func (s *InvoiceService) archiveSnapshot(ctx context.Context, id uuid.UUID) {
	if s.archive == nil {
		return
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load invoice for archive", zap.String("invoice_id", id.String()), zap.Error(err))
		return
	}
	public := mapper.ToPublicInvoiceDTO(invoice)
	data, err := export.InvoiceWorkbook(&public)
	if err != nil {
		s.logger.Warn("failed to render invoice archive", zap.String("invoice_id", id.String()), zap.Error(err))
		return
	}

	key := storage.InvoiceArchiveKey(invoice.OrgID, invoice.InvoiceNumber, time.Now().UTC().Format("20060102T150405"))
	path, err := s.archive.Put(ctx, key, export.ContentType, data)
	if err != nil {
		s.logger.Warn("failed to archive invoice", zap.String("invoice_id", id.String()), zap.Error(err))
		return
	}

	invoice.ArchivePath = path
	invoice.Tickets = nil
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		s.logger.Warn("failed to record invoice archive path", zap.String("invoice_id", id.String()), zap.Error(err))
		return
	}
	s.logger.Info("invoice archived", zap.String("invoice_id", id.String()), zap.String("path", path))
}

// GetByID returns the invoice with its tickets
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	if _, err := requirePermission(ctx, domain.PermissionInvoicesManage); err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	dto := mapper.ToInvoiceDTO(invoice, len(invoice.Tickets))
	return &dto, nil
}

// List returns a page of invoices, newest first, with ticket counts
func (s *InvoiceService) List(ctx context.Context, status *domain.InvoiceStatus, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := requirePermission(ctx, domain.PermissionInvoicesManage); err != nil {
		return nil, err
	}
	if status != nil && !status.IsValid() {
		return nil, ErrUnknownInvoiceStatus
	}
	page, pageSize = repository.NormalizePage(page, pageSize)

	invoices, total, err := s.invoiceRepo.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i].Invoice, invoices[i].TicketCount)
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Export renders the invoice as an XLSX workbook and returns it with a file name
func (s *InvoiceService) Export(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if _, err := requirePermission(ctx, domain.PermissionInvoicesManage); err != nil {
		return nil, "", err
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", notFound(err, ErrInvoiceNotFound)
	}
	public := mapper.ToPublicInvoiceDTO(invoice)
	data, err := export.InvoiceWorkbook(&public)
	if err != nil {
		return nil, "", fmt.Errorf("failed to export invoice: %w", err)
	}
	return data, invoice.InvoiceNumber + ".xlsx", nil
}

// GetPublicInvoice serves the customer-facing view. It needs no identity: possession of the
// token is the only credential. Malformed and unknown tokens look the same to the caller.
func (s *InvoiceService) GetPublicInvoice(ctx context.Context, token string) (*domain.PublicInvoiceDTO, error) {
	if !domain.IsShareTokenFormat(token) {
		return nil, ErrInvoiceNotFound
	}
	invoice, err := s.invoiceRepo.GetByShareToken(ctx, strings.ToLower(token))
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	dto := mapper.ToPublicInvoiceDTO(invoice)
	return &dto, nil
}

// ShareURL returns the public link for an invoice token under baseURL
func ShareURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/invoice/" + token
}
