package service

import (
	"errors"
	"fmt"

	"github.com/jakecourtright/HayFlow/internal/domain"
)

// Error categories. Handlers map these to HTTP status codes with errors.Is.
var (
	// ErrUnauthorized is returned when there is no identity or no active organization
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the identity lacks the permission for an action
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound covers both missing records and records owned by another organization
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input fails a business rule
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock is matched by *domain.InsufficientStockError
	ErrInsufficientStock = domain.ErrInsufficientStock

	// ErrInvalidStateTransition is returned when an entity is not in a state that allows the action
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrBusy is returned when another writer holds the stock lock past the wait budget
	ErrBusy = errors.New("resource busy, retry")
)

// Specific errors, each wrapping one category
var (
	ErrStackNotFound       = fmt.Errorf("stack %w", ErrNotFound)
	ErrLocationNotFound    = fmt.Errorf("location %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrTicketNotFound      = fmt.Errorf("ticket %w", ErrNotFound)
	ErrInvoiceNotFound     = fmt.Errorf("invoice %w", ErrNotFound)

	ErrSaleLocationRequired   = fmt.Errorf("%w: source location is required for sales", ErrValidation)
	ErrTransferLocations      = fmt.Errorf("%w: barn-to-barn tickets need distinct source and destination locations", ErrValidation)
	ErrTicketNotPending       = fmt.Errorf("%w: ticket is not pending", ErrInvalidStateTransition)
	ErrTicketsNotApproved     = fmt.Errorf("%w: all tickets must be approved and belong to this organization", ErrInvalidStateTransition)
	ErrInvoicePaid            = fmt.Errorf("%w: paid invoices cannot be changed", ErrInvalidStateTransition)
	ErrLocationHasHistory     = fmt.Errorf("%w: cannot delete location with transaction history", ErrInvalidStateTransition)
	ErrUnknownInvoiceStatus   = fmt.Errorf("%w: unknown invoice status", ErrValidation)
	ErrInvalidDashboardLayout = fmt.Errorf("%w: invalid dashboard layout", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbidden(permission domain.PermissionType) error {
	return fmt.Errorf("%w: missing permission %s", ErrForbidden, permission)
}
