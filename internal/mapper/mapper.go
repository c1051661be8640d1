package mapper

import (
	"fmt"
	"time"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/units"
)

const timeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders a timestamp the way every DTO does
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// StackWeight returns the lbs per bale for a stack, falling back to the default weight when the
// stack is unknown (e.g. its row was deleted and the reference orphaned)
func StackWeight(stack *domain.Stack) float64 {
	if stack == nil {
		return units.FallbackWeight
	}
	return units.ResolveWeight(stack.WeightPerBale, stack.BaleSize)
}

// ToStackDTO converts Stack to StackDTO. currentStock is in bales.
func ToStackDTO(stack *domain.Stack, currentStock float64) domain.StackDTO {
	weight := StackWeight(stack)
	return domain.StackDTO{
		ID:               stack.ID,
		Name:             stack.Name,
		Commodity:        stack.Commodity,
		BaleSize:         stack.BaleSize,
		Quality:          stack.Quality,
		BasePrice:        stack.BasePrice,
		PriceUnit:        stack.PriceUnit,
		WeightPerBale:    stack.WeightPerBale,
		ResolvedWeight:   weight,
		PricePerTon:      units.NormalizePrice(stack.BasePrice, units.PriceUnit(stack.PriceUnit), weight),
		CurrentStock:     currentStock,
		CurrentStockTons: units.BalesToTons(currentStock, weight),
		CreatedAt:        FormatTime(stack.CreatedAt),
		UpdatedAt:        FormatTime(stack.UpdatedAt),
	}
}

// ToLocationDTO converts Location to LocationDTO. Stock and usage are filled by the caller.
func ToLocationDTO(location *domain.Location) domain.LocationDTO {
	return domain.LocationDTO{
		ID:           location.ID,
		Name:         location.Name,
		Capacity:     location.Capacity,
		CapacityUnit: location.CapacityUnit,
		CreatedAt:    FormatTime(location.CreatedAt),
		UpdatedAt:    FormatTime(location.UpdatedAt),
	}
}

// UsagePercent returns how full a location is in its own capacity unit
func UsagePercent(capacity float64, unit domain.CapacityUnit, bales, tons float64) float64 {
	if capacity <= 0 {
		return 0
	}
	used := bales
	if unit == domain.CapacityUnitTons {
		used = tons
	}
	return used / capacity * 100
}

// ToTransactionDTO converts Transaction to TransactionDTO. Stack and Location should be preloaded.
func ToTransactionDTO(tx *domain.Transaction) domain.TransactionDTO {
	dto := domain.TransactionDTO{
		ID:         tx.ID,
		Type:       tx.Type,
		StackID:    tx.StackID,
		LocationID: tx.LocationID,
		Amount:     tx.Amount,
		Tons:       units.BalesToTons(tx.Amount, StackWeight(tx.Stack)),
		Unit:       tx.Unit,
		Price:      tx.Price,
		Entity:     tx.Entity,
		UserID:     tx.UserID,
		CreatedAt:  FormatTime(tx.CreatedAt),
	}
	if tx.Stack != nil {
		dto.StackName = tx.Stack.Name
		dto.Commodity = tx.Stack.Commodity
	}
	if tx.Location != nil {
		dto.LocationName = tx.Location.Name
	}
	return dto
}

// ToTicketDTO converts Ticket to TicketDTO
func ToTicketDTO(ticket *domain.Ticket) domain.TicketDTO {
	dto := domain.TicketDTO{
		ID:            ticket.ID,
		Number:        ticket.Number,
		Label:         ticket.Label(),
		Type:          ticket.Type,
		StackID:       ticket.StackID,
		LocationID:    ticket.LocationID,
		DestinationID: ticket.DestinationID,
		Amount:        ticket.Amount,
		NetLbs:        ticket.NetLbs,
		Customer:      ticket.Customer,
		Notes:         ticket.Notes,
		Status:        ticket.Status,
		InvoiceID:     ticket.InvoiceID,
		TransactionID: ticket.TransactionID,
		DriverID:      ticket.DriverID,
		CreatedAt:     FormatTime(ticket.CreatedAt),
	}
	if ticket.Stack != nil {
		dto.StackName = ticket.Stack.Name
		dto.Commodity = ticket.Stack.Commodity
	}
	if ticket.Location != nil {
		dto.LocationName = ticket.Location.Name
	}
	if ticket.Destination != nil {
		dto.DestinationName = ticket.Destination.Name
	}
	return dto
}

// TicketTotals sums bales and net weight over tickets. Tickets without a scale weight
// contribute nothing to the net lbs total.
func TicketTotals(tickets []domain.Ticket) (bales, netLbs float64) {
	for i := range tickets {
		bales += tickets[i].Amount
		if tickets[i].NetLbs != nil {
			netLbs += *tickets[i].NetLbs
		}
	}
	return bales, netLbs
}

// ToInvoiceDTO converts Invoice to InvoiceDTO. When the tickets are loaded they are included and
// ticketCount is taken from them.
func ToInvoiceDTO(invoice *domain.Invoice, ticketCount int) domain.InvoiceDTO {
	dto := domain.InvoiceDTO{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		Customer:      invoice.Customer,
		Status:        invoice.Status,
		TotalAmount:   invoice.TotalAmount.InexactFloat64(),
		PriceUnit:     invoice.PriceUnit,
		Notes:         invoice.Notes,
		ShareToken:    invoice.ShareToken,
		ArchivePath:   invoice.ArchivePath,
		TicketCount:   ticketCount,
		CreatedBy:     invoice.CreatedBy,
		CreatedAt:     FormatTime(invoice.CreatedAt),
		UpdatedAt:     FormatTime(invoice.UpdatedAt),
	}
	if invoice.PricePerUnit != nil {
		price := invoice.PricePerUnit.InexactFloat64()
		dto.PricePerUnit = &price
	}
	if len(invoice.Tickets) > 0 {
		dto.TicketCount = len(invoice.Tickets)
		dto.TotalBales, dto.TotalNetLbs = TicketTotals(invoice.Tickets)
		dto.Tickets = make([]domain.TicketDTO, len(invoice.Tickets))
		for i := range invoice.Tickets {
			dto.Tickets[i] = ToTicketDTO(&invoice.Tickets[i])
		}
	}
	return dto
}

// ToPublicInvoiceDTO builds the unauthenticated invoice view. It carries no ids, org or share token.
func ToPublicInvoiceDTO(invoice *domain.Invoice) domain.PublicInvoiceDTO {
	dto := domain.PublicInvoiceDTO{
		InvoiceNumber: invoice.InvoiceNumber,
		Customer:      invoice.Customer,
		Status:        invoice.Status,
		TotalAmount:   invoice.TotalAmount.InexactFloat64(),
		PriceUnit:     invoice.PriceUnit,
		Notes:         invoice.Notes,
		Lines:         make([]domain.PublicInvoiceLineDTO, 0, len(invoice.Tickets)),
		CreatedAt:     FormatTime(invoice.CreatedAt),
	}
	if invoice.PricePerUnit != nil {
		price := invoice.PricePerUnit.InexactFloat64()
		dto.PricePerUnit = &price
	}
	for i := range invoice.Tickets {
		t := &invoice.Tickets[i]
		line := domain.PublicInvoiceLineDTO{
			Label:  t.Label(),
			Date:   t.CreatedAt.UTC().Format("2006-01-02"),
			Bales:  t.Amount,
			NetLbs: t.NetLbs,
		}
		if t.Stack != nil {
			line.Commodity = t.Stack.Commodity
		}
		if t.NetLbs != nil {
			line.Tons = *t.NetLbs / units.LbsPerTon
		} else {
			line.Tons = units.BalesToTons(t.Amount, StackWeight(t.Stack))
		}
		dto.Lines = append(dto.Lines, line)
		dto.TotalTons += line.Tons
	}
	dto.TotalBales, dto.TotalNetLbs = TicketTotals(invoice.Tickets)
	return dto
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		UserID:      log.UserID,
		UserName:    log.UserName,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		Method:      log.Method,
		Path:        log.Path,
		NewValues:   log.NewValues,
		IPAddress:   log.IPAddress,
		RequestID:   log.RequestID,
		PerformedAt: FormatTime(log.PerformedAt),
	}
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
