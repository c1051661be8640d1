package service

import (
	"context"
	"fmt"

	"github.com/jakecourtright/HayFlow/internal/repository"
	"go.uber.org/zap"
)

// Sequence names stored in number_sequences
const (
	SequenceTicket  = "ticket"
	SequenceInvoice = "invoice"
)

// NumberSequenceService issues per-org ticket and invoice numbers.
//
// Invoice format: INV-{SEQUENCE} zero padded to four digits, e.g. "INV-0042".
// Numbers come from a locked counter row, never from counting existing invoices, so two
// concurrent compilations can not receive the same number.
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// NextTicketNumber returns the next ticket number for the org
func (s *NumberSequenceService) NextTicketNumber(ctx context.Context, orgID string) (int, error) {
	return s.next(ctx, orgID, SequenceTicket)
}

// GenerateInvoiceNumber returns the next formatted invoice number for the org
func (s *NumberSequenceService) GenerateInvoiceNumber(ctx context.Context, orgID string) (string, error) {
	seq, err := s.next(ctx, orgID, SequenceInvoice)
	if err != nil {
		return "", err
	}
	number := FormatInvoiceNumber(seq)

	s.logger.Debug("generated invoice number",
		zap.String("org_id", orgID),
		zap.String("number", number))
	return number, nil
}

// FormatInvoiceNumber renders a sequence value as an invoice number
func FormatInvoiceNumber(seq int) string {
	return fmt.Sprintf("INV-%04d", seq)
}

// CurrentSequence returns the last issued value of a named sequence, 0 when none was issued
func (s *NumberSequenceService) CurrentSequence(ctx context.Context, orgID, name string) (int, error) {
	return s.repo.GetCurrentSequence(ctx, orgID, name)
}

func (s *NumberSequenceService) next(ctx context.Context, orgID, name string) (int, error) {
	if orgID == "" {
		return 0, ErrUnauthorized
	}
	seq, err := s.repo.GetNextNumber(ctx, orgID, name)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("org_id", orgID),
			zap.String("sequence", name),
			zap.Error(err))
		return 0, fmt.Errorf("failed to generate %s number: %w", name, err)
	}
	return seq, nil
}
