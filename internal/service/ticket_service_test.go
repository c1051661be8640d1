package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticketFixture struct {
	svc   *testServices
	stack *domain.Stack
	barnA *domain.Location
	barnB *domain.Location
}

func newTicketFixture(t *testing.T, stockAtA float64) *ticketFixture {
	t.Helper()
	svc := setupServices(t)
	f := &ticketFixture{
		svc:   svc,
		stack: testutil.CreateStack(t, svc.db, testutil.OrgA, "Field 7", "Alfalfa", "3x4"),
		barnA: testutil.CreateLocation(t, svc.db, testutil.OrgA, "Barn A", 0),
		barnB: testutil.CreateLocation(t, svc.db, testutil.OrgA, "Barn B", 0),
	}
	if stockAtA > 0 {
		testutil.AddTransaction(t, svc.db, testutil.OrgA, domain.TransactionTypeProduction, f.stack.ID, &f.barnA.ID, stockAtA, 0)
	}
	return f
}

func (f *ticketFixture) saleTicket(t *testing.T, ctx context.Context, amount float64) *domain.TicketDTO {
	t.Helper()
	ticket, err := f.svc.tickets.Create(ctx, &domain.CreateTicketRequest{
		StackID:    f.stack.ID,
		LocationID: &f.barnA.ID,
		Amount:     amount,
		Customer:   "Valley Feed",
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketService_Create(t *testing.T) {
	f := newTicketFixture(t, 50)
	driver := testutil.DriverCtx(testutil.OrgA)

	t.Run("numbers are sequential per org", func(t *testing.T) {
		first := f.saleTicket(t, driver, 5)
		second := f.saleTicket(t, driver, 5)
		assert.Equal(t, first.Number+1, second.Number)
		assert.Equal(t, domain.TicketStatusPending, second.Status)
		assert.Equal(t, domain.TicketTypeSale, second.Type)
		assert.Equal(t, testutil.DriverUser, second.DriverID)
		assert.Equal(t, "Field 7", second.StackName)
	})

	t.Run("sale larger than stock is refused", func(t *testing.T) {
		_, err := f.svc.tickets.Create(driver, &domain.CreateTicketRequest{
			StackID:    f.stack.ID,
			LocationID: &f.barnA.ID,
			Amount:     51,
		})
		var stockErr *domain.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 50.0, stockErr.Available)
	})

	t.Run("sale needs a source location", func(t *testing.T) {
		admin := testutil.AdminCtx(testutil.OrgA)
		before, err := f.svc.tickets.List(admin, &domain.TicketFilters{})
		require.NoError(t, err)

		_, err = f.svc.tickets.Create(driver, &domain.CreateTicketRequest{
			StackID: f.stack.ID,
			Amount:  5,
		})
		assert.ErrorIs(t, err, service.ErrSaleLocationRequired)
		assert.ErrorIs(t, err, service.ErrValidation)

		after, err := f.svc.tickets.List(admin, &domain.TicketFilters{})
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("sale drops destination", func(t *testing.T) {
		ticket, err := f.svc.tickets.Create(driver, &domain.CreateTicketRequest{
			Type:          domain.TicketTypeSale,
			StackID:       f.stack.ID,
			LocationID:    &f.barnA.ID,
			DestinationID: &f.barnB.ID,
			Amount:        1,
		})
		require.NoError(t, err)
		assert.Nil(t, ticket.DestinationID)
	})

	t.Run("transfer needs two distinct locations", func(t *testing.T) {
		_, err := f.svc.tickets.Create(driver, &domain.CreateTicketRequest{
			Type:          domain.TicketTypeBarnToBarn,
			StackID:       f.stack.ID,
			LocationID:    &f.barnA.ID,
			DestinationID: &f.barnA.ID,
			Amount:        1,
		})
		assert.ErrorIs(t, err, service.ErrTransferLocations)

		_, err = f.svc.tickets.Create(driver, &domain.CreateTicketRequest{
			Type:       domain.TicketTypeBarnToBarn,
			StackID:    f.stack.ID,
			LocationID: &f.barnA.ID,
			Amount:     1,
		})
		assert.ErrorIs(t, err, service.ErrTransferLocations)
	})

	t.Run("unknown stack in another org", func(t *testing.T) {
		_, err := f.svc.tickets.Create(testutil.DriverCtx(testutil.OrgB), &domain.CreateTicketRequest{
			StackID: f.stack.ID,
			Amount:  1,
		})
		assert.ErrorIs(t, err, service.ErrStackNotFound)
	})

	t.Run("bad amount", func(t *testing.T) {
		_, err := f.svc.tickets.Create(driver, &domain.CreateTicketRequest{StackID: f.stack.ID, Amount: 0})
		assert.ErrorIs(t, err, service.ErrValidation)
	})
}

func TestTicketService_Approve(t *testing.T) {
	t.Run("writes one sale and links it", func(t *testing.T) {
		f := newTicketFixture(t, 100)
		ticket := f.saleTicket(t, testutil.DriverCtx(testutil.OrgA), 40)
		bookkeeper := testutil.BookkeeperCtx(testutil.OrgA)

		approved, err := f.svc.tickets.Approve(bookkeeper, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusApproved, approved.Status)
		require.NotNil(t, approved.TransactionID)

		tx, err := f.svc.ledger.GetTransaction(bookkeeper, *approved.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionTypeSale, tx.Type)
		assert.Equal(t, 40.0, tx.Amount)
		assert.Equal(t, "Valley Feed", tx.Entity)

		level, err := f.svc.ledger.CurrentStock(bookkeeper, f.stack.ID, &f.barnA.ID)
		require.NoError(t, err)
		assert.Equal(t, 60.0, level.Bales)

		_, err = f.svc.tickets.Approve(bookkeeper, ticket.ID)
		assert.ErrorIs(t, err, service.ErrTicketNotPending)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)

		level, err = f.svc.ledger.CurrentStock(bookkeeper, f.stack.ID, &f.barnA.ID)
		require.NoError(t, err)
		assert.Equal(t, 60.0, level.Bales)
	})

	t.Run("rechecks stock at approval", func(t *testing.T) {
		f := newTicketFixture(t, 50)
		first := f.saleTicket(t, testutil.DriverCtx(testutil.OrgA), 30)
		second := f.saleTicket(t, testutil.DriverCtx(testutil.OrgA), 30)
		admin := testutil.AdminCtx(testutil.OrgA)

		_, err := f.svc.tickets.Approve(admin, first.ID)
		require.NoError(t, err)

		_, err = f.svc.tickets.Approve(admin, second.ID)
		var stockErr *domain.InsufficientStockError
		require.True(t, errors.As(err, &stockErr))
		assert.Equal(t, 20.0, stockErr.Available)
		assert.Equal(t, 30.0, stockErr.Requested)

		still, err := f.svc.tickets.GetByID(admin, second.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusPending, still.Status)
		assert.Nil(t, still.TransactionID)
	})

	t.Run("transfer skips the stock check", func(t *testing.T) {
		f := newTicketFixture(t, 0)
		ticket, err := f.svc.tickets.Create(testutil.DriverCtx(testutil.OrgA), &domain.CreateTicketRequest{
			Type:          domain.TicketTypeBarnToBarn,
			StackID:       f.stack.ID,
			LocationID:    &f.barnA.ID,
			DestinationID: &f.barnB.ID,
			Amount:        25,
		})
		require.NoError(t, err)

		approved, err := f.svc.tickets.Approve(testutil.AdminCtx(testutil.OrgA), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusApproved, approved.Status)
		assert.NotNil(t, approved.TransactionID)
	})

	t.Run("drivers cannot approve", func(t *testing.T) {
		f := newTicketFixture(t, 10)
		ticket := f.saleTicket(t, testutil.DriverCtx(testutil.OrgA), 1)
		_, err := f.svc.tickets.Approve(testutil.DriverCtx(testutil.OrgA), ticket.ID)
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("other org cannot approve", func(t *testing.T) {
		f := newTicketFixture(t, 10)
		ticket := f.saleTicket(t, testutil.DriverCtx(testutil.OrgA), 1)
		_, err := f.svc.tickets.Approve(testutil.AdminCtx(testutil.OrgB), ticket.ID)
		assert.ErrorIs(t, err, service.ErrTicketNotFound)
	})
}

func TestTicketService_RejectAndDelete(t *testing.T) {
	f := newTicketFixture(t, 100)
	driver := testutil.DriverCtx(testutil.OrgA)
	otherDriver := testutil.Ctx("user_driver_2", testutil.OrgA, domain.RoleDriver)
	bookkeeper := testutil.BookkeeperCtx(testutil.OrgA)

	t.Run("reject leaves the ledger alone", func(t *testing.T) {
		ticket := f.saleTicket(t, driver, 10)
		rejected, err := f.svc.tickets.Reject(bookkeeper, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusRejected, rejected.Status)

		level, err := f.svc.ledger.CurrentStock(bookkeeper, f.stack.ID, &f.barnA.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, level.Bales)

		_, err = f.svc.tickets.Reject(bookkeeper, ticket.ID)
		assert.ErrorIs(t, err, service.ErrTicketNotPending)
	})

	t.Run("rejected tickets cannot be approved", func(t *testing.T) {
		ticket := f.saleTicket(t, driver, 10)
		_, err := f.svc.tickets.Reject(bookkeeper, ticket.ID)
		require.NoError(t, err)

		_, err = f.svc.tickets.Approve(bookkeeper, ticket.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStateTransition)

		got, err := f.svc.tickets.GetByID(bookkeeper, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusRejected, got.Status)
		assert.Nil(t, got.TransactionID)

		level, err := f.svc.ledger.CurrentStock(bookkeeper, f.stack.ID, &f.barnA.ID)
		require.NoError(t, err)
		assert.Equal(t, 100.0, level.Bales)
	})

	t.Run("drivers delete only their own pending tickets", func(t *testing.T) {
		ticket := f.saleTicket(t, driver, 10)
		assert.ErrorIs(t, f.svc.tickets.Delete(otherDriver, ticket.ID), service.ErrForbidden)
		require.NoError(t, f.svc.tickets.Delete(driver, ticket.ID))
		_, err := f.svc.tickets.GetByID(bookkeeper, ticket.ID)
		assert.ErrorIs(t, err, service.ErrTicketNotFound)
	})

	t.Run("approved tickets cannot be deleted", func(t *testing.T) {
		ticket := f.saleTicket(t, driver, 10)
		_, err := f.svc.tickets.Approve(bookkeeper, ticket.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, f.svc.tickets.Delete(bookkeeper, ticket.ID), service.ErrInvalidStateTransition)
	})

	t.Run("missing ticket", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.tickets.Delete(bookkeeper, uuid.New()), service.ErrTicketNotFound)
	})
}

func TestTicketService_Visibility(t *testing.T) {
	f := newTicketFixture(t, 100)
	driver := testutil.DriverCtx(testutil.OrgA)
	otherDriver := testutil.Ctx("user_driver_2", testutil.OrgA, domain.RoleDriver)

	mine := f.saleTicket(t, driver, 1)
	f.saleTicket(t, otherDriver, 1)

	list, err := f.svc.tickets.List(driver, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = f.svc.tickets.GetByID(otherDriver, mine.ID)
	assert.ErrorIs(t, err, service.ErrTicketNotFound)

	all, err := f.svc.tickets.List(testutil.BookkeeperCtx(testutil.OrgA), nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.svc.tickets.List(testutil.AdminCtx(testutil.OrgB), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTicketService_DispatchQueue(t *testing.T) {
	f := newTicketFixture(t, 100)
	driver := testutil.DriverCtx(testutil.OrgA)
	bookkeeper := testutil.BookkeeperCtx(testutil.OrgA)

	f.saleTicket(t, driver, 1)
	approved := f.saleTicket(t, driver, 2)
	_, err := f.svc.tickets.Approve(bookkeeper, approved.ID)
	require.NoError(t, err)

	queue, err := f.svc.tickets.DispatchQueue(bookkeeper)
	require.NoError(t, err)
	assert.Len(t, queue.Pending, 1)
	require.Len(t, queue.Approved, 1)
	assert.Equal(t, approved.ID, queue.Approved[0].ID)
	assert.Empty(t, queue.RecentInvoices)

	_, err = f.svc.tickets.DispatchQueue(driver)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
