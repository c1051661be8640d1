package service_test

import (
	"testing"

	"github.com/jakecourtright/HayFlow/internal/lock"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/storage"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServices struct {
	db         *gorm.DB
	archive    *storage.MemoryStorage
	ledger     *service.LedgerService
	stacks     *service.StackService
	locations  *service.LocationService
	tickets    *service.TicketService
	invoices   *service.InvoiceService
	quickSale  *service.QuickSaleService
	reports    *service.ReportService
	dashboard  *service.DashboardService
	prefs      *service.PreferenceService
	audit      *service.AuditLogService
	sequences  *service.NumberSequenceService
	auditRepo  *repository.AuditLogRepository
	ticketRepo *repository.TicketRepository
}

func setupServices(t *testing.T) *testServices {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	txManager := repository.NewTxManager(db)
	stackRepo := repository.NewStackRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	seqRepo := repository.NewNumberSequenceRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	archive := storage.NewMemoryStorage()
	sequences := service.NewNumberSequenceService(seqRepo, log)
	ledger := service.NewLedgerService(txManager, stackRepo, locationRepo, txRepo, lock.NoopLocker{}, log)
	tickets := service.NewTicketService(txManager, ticketRepo, stackRepo, locationRepo, txRepo, invoiceRepo, ledger, sequences, nil, log)
	invoices := service.NewInvoiceService(txManager, invoiceRepo, ticketRepo, sequences, archive, nil, log)

	return &testServices{
		db:         db,
		archive:    archive,
		ledger:     ledger,
		stacks:     service.NewStackService(txManager, stackRepo, locationRepo, txRepo, log),
		locations:  service.NewLocationService(txManager, locationRepo, stackRepo, txRepo, log),
		tickets:    tickets,
		invoices:   invoices,
		quickSale:  service.NewQuickSaleService(ledger, tickets, invoices, nil, log),
		reports:    service.NewReportService(stackRepo, txRepo, log),
		dashboard:  service.NewDashboardService(stackRepo, txRepo, log),
		prefs:      service.NewPreferenceService(prefRepo, log),
		audit:      service.NewAuditLogService(auditRepo, log),
		sequences:  sequences,
		auditRepo:  auditRepo,
		ticketRepo: ticketRepo,
	}
}
