package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"go.uber.org/zap"
)

// QuickSaleService runs the "Create Sale & Invoice" shortcut: ticket, approval and draft
// invoice in one transaction
type QuickSaleService struct {
	ledger   *LedgerService
	tickets  *TicketService
	invoices *InvoiceService
	hub      *realtime.Hub
	logger   *zap.Logger
}

func NewQuickSaleService(ledger *LedgerService, tickets *TicketService, invoices *InvoiceService, hub *realtime.Hub, logger *zap.Logger) *QuickSaleService {
	return &QuickSaleService{
		ledger:   ledger,
		tickets:  tickets,
		invoices: invoices,
		hub:      hub,
		logger:   logger,
	}
}

// Create records a sale ticket, approves it and compiles its invoice in one transaction
func (s *QuickSaleService) Create(ctx context.Context, req *domain.QuickSaleRequest) (*domain.QuickSaleResponse, error) {
	user, err := requirePermission(ctx,
		domain.PermissionTicketsCreate,
		domain.PermissionTicketsManage,
		domain.PermissionInvoicesManage,
	)
	if err != nil {
		return nil, err
	}
	if req.Customer == "" {
		return nil, validationError("customer is required")
	}

	locationID := req.LocationID
	var invoice *domain.Invoice
	var ticket *domain.Ticket
	err = s.ledger.withStockGuard(ctx, user.OrgID, req.StackID, &locationID, func(txCtx context.Context) error {
		created, err := s.tickets.create(txCtx, user, &domain.CreateTicketRequest{
			Type:       domain.TicketTypeSale,
			StackID:    req.StackID,
			LocationID: &locationID,
			Amount:     req.Amount,
			NetLbs:     req.NetLbs,
			Customer:   req.Customer,
			Notes:      req.Notes,
		})
		if err != nil {
			return err
		}
		if ticket, err = s.tickets.approve(txCtx, user, created.ID); err != nil {
			return err
		}
		invoice, err = s.invoices.compile(txCtx, user, &domain.CompileInvoiceRequest{
			TicketIDs:    []uuid.UUID{created.ID},
			Customer:     req.Customer,
			Notes:        req.Notes,
			PricePerUnit: req.PricePerUnit,
			PriceUnit:    req.PriceUnit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quick sale recorded",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("org_id", user.OrgID))

	ticketDTO, err := s.tickets.reload(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	invoiceDTO, err := s.invoices.GetByID(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventTicketApproved, ticketDTO)
	s.hub.Publish(user.OrgID, realtime.EventInvoiceCreated, invoiceDTO)
	return &domain.QuickSaleResponse{Ticket: *ticketDTO, Invoice: *invoiceDTO}, nil
}
