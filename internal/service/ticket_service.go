package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/units"
	"go.uber.org/zap"
)

// recentInvoiceLimit bounds the invoices shown in the dispatch queue
const recentInvoiceLimit = 10

// TicketService handles the driver ticket lifecycle: pending, then approved or rejected.
// Approval writes the sale to the ledger.
type TicketService struct {
	txManager    repository.TxManager
	ticketRepo   *repository.TicketRepository
	stackRepo    *repository.StackRepository
	locationRepo *repository.LocationRepository
	txRepo       *repository.TransactionRepository
	invoiceRepo  *repository.InvoiceRepository
	ledger       *LedgerService
	sequences    *NumberSequenceService
	hub          *realtime.Hub
	logger       *zap.Logger
}

func NewTicketService(
	txManager repository.TxManager,
	ticketRepo *repository.TicketRepository,
	stackRepo *repository.StackRepository,
	locationRepo *repository.LocationRepository,
	txRepo *repository.TransactionRepository,
	invoiceRepo *repository.InvoiceRepository,
	ledger *LedgerService,
	sequences *NumberSequenceService,
	hub *realtime.Hub,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		txManager:    txManager,
		ticketRepo:   ticketRepo,
		stackRepo:    stackRepo,
		locationRepo: locationRepo,
		txRepo:       txRepo,
		invoiceRepo:  invoiceRepo,
		ledger:       ledger,
		sequences:    sequences,
		hub:          hub,
		logger:       logger,
	}
}

// Create submits a pending ticket. A sale must name a source location and fit the stock there.
func (s *TicketService) Create(ctx context.Context, req *domain.CreateTicketRequest) (*domain.TicketDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionTicketsCreate)
	if err != nil {
		return nil, err
	}

	var ticket *domain.Ticket
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		ticket, err = s.create(txCtx, user, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID.String()),
		zap.Int("number", ticket.Number),
		zap.String("type", string(ticket.Type)),
		zap.String("org_id", user.OrgID))

	dto, err := s.reload(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventTicketCreated, dto)
	return dto, nil
}

// create validates and inserts a ticket. It must run inside RunInTx.
func (s *TicketService) create(ctx context.Context, user *auth.UserContext, req *domain.CreateTicketRequest) (*domain.Ticket, error) {
	ticketType := req.Type
	if ticketType == "" {
		ticketType = domain.TicketTypeSale
	}
	if ticketType != domain.TicketTypeSale && ticketType != domain.TicketTypeBarnToBarn {
		return nil, validationError("unknown ticket type %q", ticketType)
	}
	if !validQuantity(req.Amount) {
		return nil, validationError("amount must be greater than zero")
	}
	if req.NetLbs != nil && !validPrice(*req.NetLbs) {
		return nil, validationError("net weight must not be negative")
	}

	if _, err := s.stackRepo.GetByID(ctx, req.StackID); err != nil {
		return nil, notFound(err, ErrStackNotFound)
	}

	destinationID := req.DestinationID
	if ticketType == domain.TicketTypeBarnToBarn {
		if req.LocationID == nil || req.DestinationID == nil || *req.LocationID == *req.DestinationID {
			return nil, ErrTransferLocations
		}
		if _, err := s.locationRepo.GetByID(ctx, *req.DestinationID); err != nil {
			return nil, notFound(err, ErrLocationNotFound)
		}
	} else {
		if req.LocationID == nil {
			return nil, ErrSaleLocationRequired
		}
		destinationID = nil
	}
	if req.LocationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *req.LocationID); err != nil {
			return nil, notFound(err, ErrLocationNotFound)
		}
	}

	if ticketType == domain.TicketTypeSale {
		if err := s.ledger.checkSufficiency(ctx, req.StackID, *req.LocationID, req.Amount); err != nil {
			return nil, err
		}
	}

	number, err := s.sequences.NextTicketNumber(ctx, user.OrgID)
	if err != nil {
		return nil, err
	}

	stackID := req.StackID
	ticket := &domain.Ticket{
		BaseModel:     domain.BaseModel{OrgID: user.OrgID},
		Number:        number,
		Type:          ticketType,
		StackID:       &stackID,
		LocationID:    req.LocationID,
		DestinationID: destinationID,
		Amount:        req.Amount,
		NetLbs:        req.NetLbs,
		Customer:      strings.TrimSpace(req.Customer),
		Notes:         req.Notes,
		Status:        domain.TicketStatusPending,
		DriverID:      user.UserID,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

// Approve writes one sale transaction for the ticket and marks it approved.
// Sale tickets are checked against the stock at their source location; transfers are not.
func (s *TicketService) Approve(ctx context.Context, id uuid.UUID) (*domain.TicketDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionTicketsManage)
	if err != nil {
		return nil, err
	}

	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if err := approvable(ticket); err != nil {
		return nil, err
	}

	err = s.ledger.withStockGuard(ctx, user.OrgID, *ticket.StackID, ticket.LocationID, func(txCtx context.Context) error {
		_, err := s.approve(txCtx, user, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket approved",
		zap.String("ticket_id", id.String()),
		zap.String("org_id", user.OrgID),
		zap.String("approved_by", user.UserID))

	dto, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventTicketApproved, dto)
	s.hub.Publish(user.OrgID, realtime.EventStockChanged, map[string]interface{}{"stackId": ticket.StackID})
	return dto, nil
}

func approvable(ticket *domain.Ticket) error {
	if ticket.Status != domain.TicketStatusPending {
		return ErrTicketNotPending
	}
	if ticket.StackID == nil {
		return validationError("ticket stack no longer exists")
	}
	if ticket.LocationID == nil {
		return ErrSaleLocationRequired
	}
	return nil
}

// approve re-reads the ticket under a row lock and applies the approval. The caller holds the
// stock guard for the ticket's stack and location.
func (s *TicketService) approve(ctx context.Context, user *auth.UserContext, id uuid.UUID) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if err := approvable(ticket); err != nil {
		return nil, err
	}

	// Barn-to-barn tickets are approved without a sufficiency check.
	if ticket.Type == domain.TicketTypeSale {
		if err := s.ledger.checkSufficiency(ctx, *ticket.StackID, *ticket.LocationID, ticket.Amount); err != nil {
			return nil, err
		}
	}

	entity := ticket.Customer
	if entity == "" {
		entity = ticket.Label()
	}
	tx := &domain.Transaction{
		BaseModel:  domain.BaseModel{OrgID: user.OrgID},
		Type:       domain.TransactionTypeSale,
		StackID:    ticket.StackID,
		LocationID: ticket.LocationID,
		Amount:     ticket.Amount,
		Unit:       string(units.AmountUnitBales),
		Price:      0,
		Entity:     entity,
		UserID:     user.UserID,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record ticket sale: %w", err)
	}

	ticket.TransactionID = &tx.ID
	ticket.Status = domain.TicketStatusApproved
	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to approve ticket: %w", err)
	}
	return ticket, nil
}

// Reject closes a pending ticket without touching the ledger
func (s *TicketService) Reject(ctx context.Context, id uuid.UUID) (*domain.TicketDTO, error) {
	user, err := requirePermission(ctx, domain.PermissionTicketsManage)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ticketRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, ErrTicketNotFound)
		}
		if ticket.Status != domain.TicketStatusPending {
			return ErrTicketNotPending
		}
		ticket.Status = domain.TicketStatusRejected
		return s.ticketRepo.Update(txCtx, ticket)
	})
	if err != nil {
		return nil, err
	}

	dto, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(user.OrgID, realtime.EventTicketRejected, dto)
	return dto, nil
}

// Delete removes a pending ticket. Drivers may only delete their own.
func (s *TicketService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := requireActor(ctx)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.ticketRepo.GetByIDForUpdate(txCtx, id)
		if err != nil {
			return notFound(err, ErrTicketNotFound)
		}
		if ticket.Status != domain.TicketStatusPending {
			return fmt.Errorf("%w: only pending tickets can be deleted", ErrInvalidStateTransition)
		}
		if ticket.DriverID != user.UserID && !user.HasPermission(domain.PermissionTicketsManage) {
			return fmt.Errorf("%w: you can only delete your own tickets", ErrForbidden)
		}
		return s.ticketRepo.Delete(txCtx, id)
	})
	if err != nil {
		return notFound(err, ErrTicketNotFound)
	}

	s.hub.Publish(user.OrgID, realtime.EventTicketDeleted, map[string]interface{}{"id": id})
	return nil
}

// GetByID returns a ticket. Drivers only see their own.
func (s *TicketService) GetByID(ctx context.Context, id uuid.UUID) (*domain.TicketDTO, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	if !canSeeTicket(user, ticket) {
		return nil, ErrTicketNotFound
	}
	dto := mapper.ToTicketDTO(ticket)
	return &dto, nil
}

// canSeeTicket hides other drivers' tickets from users who cannot manage tickets
func canSeeTicket(user *auth.UserContext, ticket *domain.Ticket) bool {
	return ticket.DriverID == user.UserID ||
		user.HasPermission(domain.PermissionTicketsManage) ||
		user.HasPermission(domain.PermissionInvoicesManage)
}

// List returns tickets newest first. Callers without tickets:manage see only their own.
func (s *TicketService) List(ctx context.Context, filters *domain.TicketFilters) ([]domain.TicketDTO, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	driverID := ""
	if !user.HasPermission(domain.PermissionTicketsManage) {
		driverID = user.UserID
	}

	tickets, err := s.ticketRepo.List(ctx, filters, driverID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return ticketDTOs(tickets), nil
}

// DispatchQueue returns pending and approved tickets and the most recent invoices
func (s *TicketService) DispatchQueue(ctx context.Context) (*domain.DispatchQueueDTO, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !user.HasPermission(domain.PermissionTicketsManage) && !user.HasPermission(domain.PermissionInvoicesManage) {
		return nil, forbidden(domain.PermissionTicketsManage)
	}

	pendingStatus := domain.TicketStatusPending
	pending, err := s.ticketRepo.List(ctx, &domain.TicketFilters{Status: &pendingStatus}, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tickets: %w", err)
	}
	approvedStatus := domain.TicketStatusApproved
	approved, err := s.ticketRepo.List(ctx, &domain.TicketFilters{Status: &approvedStatus}, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved tickets: %w", err)
	}
	invoices, _, err := s.invoiceRepo.List(ctx, nil, 1, recentInvoiceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	queue := &domain.DispatchQueueDTO{
		Pending:        ticketDTOs(pending),
		Approved:       ticketDTOs(approved),
		RecentInvoices: make([]domain.InvoiceDTO, len(invoices)),
	}
	for i := range invoices {
		queue.RecentInvoices[i] = mapper.ToInvoiceDTO(&invoices[i].Invoice, invoices[i].TicketCount)
	}
	return queue, nil
}

func (s *TicketService) reload(ctx context.Context, id uuid.UUID) (*domain.TicketDTO, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}
	dto := mapper.ToTicketDTO(ticket)
	return &dto, nil
}

func ticketDTOs(tickets []domain.Ticket) []domain.TicketDTO {
	dtos := make([]domain.TicketDTO, len(tickets))
	for i := range tickets {
		dtos[i] = mapper.ToTicketDTO(&tickets[i])
	}
	return dtos
}
