package router_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/http/handler"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	"github.com/jakecourtright/HayFlow/internal/http/router"
	"github.com/jakecourtright/HayFlow/internal/lock"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/service"
	"github.com/jakecourtright/HayFlow/internal/storage"
	"github.com/jakecourtright/HayFlow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tokenTable resolves bearer tokens to fixed identities
type tokenTable map[string]*auth.UserContext

func (t tokenTable) ValidateToken(token string) (*auth.UserContext, error) {
	if u, ok := t[token]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, errors.New("unknown token")
}

var identities = tokenTable{
	"admin-a":      {UserID: testutil.AdminUser, OrgID: testutil.OrgA, Role: domain.RoleAdmin, DisplayName: "Ada"},
	"bookkeeper-a": {UserID: testutil.BookkeeperUser, OrgID: testutil.OrgA, Role: domain.RoleBookkeeper},
	"driver-a":     {UserID: testutil.DriverUser, OrgID: testutil.OrgA, Role: domain.RoleDriver},
	"admin-b":      {UserID: "user_admin_b", OrgID: testutil.OrgB, Role: domain.RoleAdmin},
	"no-org":       {UserID: "user_drifter", Role: domain.RoleAdmin},
}

type testServer struct {
	db      *gorm.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := zap.NewNop()

	txManager := repository.NewTxManager(db)
	stackRepo := repository.NewStackRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	sequences := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), log)
	ledger := service.NewLedgerService(txManager, stackRepo, locationRepo, txRepo, lock.NoopLocker{}, log)
	tickets := service.NewTicketService(txManager, ticketRepo, stackRepo, locationRepo, txRepo, invoiceRepo, ledger, sequences, nil, log)
	invoices := service.NewInvoiceService(txManager, invoiceRepo, ticketRepo, sequences, storage.NewMemoryStorage(), nil, log)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db), log)

	invoiceHandler := handler.NewInvoiceHandler(invoices, "https://hay.example.com", log)
	handlers := router.Handlers{
		Health:      handler.NewHealthHandler(db, nil, log),
		Auth:        handler.NewAuthHandler(log),
		Stacks:      handler.NewStackHandler(service.NewStackService(txManager, stackRepo, locationRepo, txRepo, log), log),
		Locations:   handler.NewLocationHandler(service.NewLocationService(txManager, locationRepo, stackRepo, txRepo, log), log),
		Ledger:      handler.NewTransactionHandler(ledger, log),
		Tickets:     handler.NewTicketHandler(tickets, log),
		Invoices:    invoiceHandler,
		QuickSale:   handler.NewQuickSaleHandler(service.NewQuickSaleService(ledger, tickets, invoices, nil, log), invoiceHandler, log),
		Reports:     handler.NewReportHandler(service.NewReportService(stackRepo, txRepo, log), service.NewDashboardService(stackRepo, txRepo, log), log),
		Preferences: handler.NewPreferenceHandler(service.NewPreferenceService(repository.NewPreferenceRepository(db), log), log),
		Audit:       handler.NewAuditHandler(auditSvc, log),
		Realtime:    handler.NewRealtimeHandler(realtime.NewHub(nil, log), log),
	}

	cfg := &config.Config{}
	cfg.App.Environment = "development"
	rt := router.NewRouter(
		cfg,
		log,
		auth.NewMiddlewareWithValidator(identities, "", log),
		middleware.NewOrgFilterMiddleware(log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		middleware.NewAuditMiddleware(nil, nil, log),
		handlers,
	)
	return &testServer{db: db, handler: rt.Setup()}
}

func (s *testServer) do(t *testing.T, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, "", http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "", http.MethodGet, "/api/v1/stacks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "forged", http.MethodGet, "/api/v1/stacks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "no-org", http.MethodGet, "/api/v1/stacks", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stacks", nil)
	req.Header.Set("Authorization", "Bearer admin-a")
	req.Header.Set(middleware.OrgHeader, testutil.OrgB)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthMe(t *testing.T) {
	s := newTestServer(t)

	me := decode[domain.MeDTO](t, s.do(t, "admin-a", http.MethodGet, "/api/v1/auth/me", ""))
	assert.Equal(t, testutil.OrgA, me.OrgID)
	assert.Equal(t, "Ada", me.DisplayName)
	assert.True(t, me.Flags.IsAdmin)
	assert.True(t, me.Flags.CanDeleteStacks)
	assert.True(t, me.Flags.CanManageUsers)

	me = decode[domain.MeDTO](t, s.do(t, "driver-a", http.MethodGet, "/api/v1/auth/me", ""))
	assert.True(t, me.Flags.IsDriver)
	assert.True(t, me.Flags.CanCreateTickets)
	assert.False(t, me.Flags.CanDeleteStacks)
	assert.False(t, me.Flags.CanManageInvoices)
	assert.NotNil(t, me.Permissions)
}

func TestStackLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "bookkeeper-a", http.MethodPost, "/api/v1/stacks", `{"name":"Lower field","commodity":"Alfalfa","baleSize":"3x4","basePrice":180,"priceUnit":"ton"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[domain.StackDTO](t, w)
	assert.Equal(t, 180.0, created.PricePerTon)
	assert.Contains(t, w.Header().Get("Location"), created.ID.String())

	path := "/api/v1/stacks/" + created.ID.String()

	got := decode[domain.StackDTO](t, s.do(t, "driver-a", http.MethodGet, path, ""))
	assert.Equal(t, "Lower field", got.Name)

	// tenant isolation
	assert.Equal(t, http.StatusNotFound, s.do(t, "admin-b", http.MethodGet, path, "").Code)
	list := decode[[]domain.StackDTO](t, s.do(t, "admin-b", http.MethodGet, "/api/v1/stacks", ""))
	assert.Empty(t, list)

	w = s.do(t, "bookkeeper-a", http.MethodPut, path, `{"name":"Upper field","commodity":"Alfalfa","baleSize":"3x4","basePrice":180,"priceUnit":"ton"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Upper field", decode[domain.StackDTO](t, w).Name)

	assert.Equal(t, http.StatusForbidden, s.do(t, "bookkeeper-a", http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, "admin-a", http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "admin-a", http.MethodGet, path, "").Code)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "admin-a", http.MethodPost, "/api/v1/stacks", `{"commodity":"Alfalfa"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "name")

	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin-a", http.MethodPost, "/api/v1/stacks", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin-a", http.MethodGet, "/api/v1/stacks/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin-a", http.MethodGet, "/api/v1/tickets?status=lost", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin-a", http.MethodGet, "/api/v1/transactions?from=yesterday", "").Code)
}

func TestInsufficientStockMapsToConflict(t *testing.T) {
	s := newTestServer(t)
	stack := testutil.CreateStack(t, s.db, testutil.OrgA, "North", "Alfalfa", "3x4")
	barn := testutil.CreateLocation(t, s.db, testutil.OrgA, "Barn", 0)
	testutil.AddTransaction(t, s.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, &barn.ID, 10, 0)

	check := func(bales string) *httptest.ResponseRecorder {
		return s.do(t, "driver-a", http.MethodPost, "/api/v1/inventory/check",
			`{"stackId":"`+stack.ID.String()+`","locationId":"`+barn.ID.String()+`","bales":`+bales+`}`)
	}
	assert.Equal(t, http.StatusNoContent, check("10").Code)

	w := check("12")
	require.Equal(t, http.StatusConflict, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrorTypeInsufficientStock, apiErr.Type)
	assert.Equal(t, 10.0, apiErr.Errors["available"])
	assert.Equal(t, 12.0, apiErr.Errors["requested"])

	w = s.do(t, "bookkeeper-a", http.MethodPost, "/api/v1/transactions",
		`{"type":"sale","stackId":"`+stack.ID.String()+`","locationId":"`+barn.ID.String()+`","amount":11}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	stock := decode[map[string]interface{}](t, s.do(t, "driver-a", http.MethodGet,
		"/api/v1/inventory/stock?stackId="+stack.ID.String()+"&locationId="+barn.ID.String(), ""))
	assert.NotEmpty(t, stock)
}

func TestQuickSaleAndPublicInvoice(t *testing.T) {
	s := newTestServer(t)
	stack := testutil.CreateStack(t, s.db, testutil.OrgA, "North", "Alfalfa", "3x4")
	barn := testutil.CreateLocation(t, s.db, testutil.OrgA, "Barn", 0)
	testutil.AddTransaction(t, s.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, &barn.ID, 40, 0)

	w := s.do(t, "bookkeeper-a", http.MethodPost, "/api/v1/sales/quick",
		`{"stackId":"`+stack.ID.String()+`","locationId":"`+barn.ID.String()+`","amount":12,"customer":"Miller Dairy","pricePerUnit":8,"priceUnit":"bale"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode[domain.QuickSaleResponse](t, w)
	assert.Equal(t, domain.TicketStatusInvoiced, sale.Ticket.Status)
	require.NotEmpty(t, sale.Invoice.ShareToken)
	assert.Equal(t, "https://hay.example.com/invoice/"+sale.Invoice.ShareToken, sale.Invoice.ShareURL)

	// the public link needs no credentials
	w = s.do(t, "", http.MethodGet, "/api/v1/public/invoices/"+sale.Invoice.ShareToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	public := decode[domain.PublicInvoiceDTO](t, w)
	assert.Equal(t, sale.Invoice.InvoiceNumber, public.InvoiceNumber)
	require.Len(t, public.Lines, 1)
	assert.Equal(t, 12.0, public.Lines[0].Bales)

	assert.Equal(t, http.StatusNotFound, s.do(t, "", http.MethodGet, "/api/v1/public/invoices/not-a-token", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "", http.MethodGet, "/api/v1/public/invoices/"+strings.Repeat("a", len(sale.Invoice.ShareToken)), "").Code)

	// invoices stay private to their org
	invoicePath := "/api/v1/invoices/" + sale.Invoice.ID.String()
	assert.Equal(t, http.StatusNotFound, s.do(t, "admin-b", http.MethodGet, invoicePath, "").Code)

	w = s.do(t, "bookkeeper-a", http.MethodGet, invoicePath+"/export.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), sale.Invoice.InvoiceNumber)
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	stack2 := decode[domain.StackDTO](t, s.do(t, "driver-a", http.MethodGet, "/api/v1/stacks/"+stack.ID.String(), ""))
	assert.Equal(t, 28.0, stack2.CurrentStock)
}

func TestTicketRoutes(t *testing.T) {
	s := newTestServer(t)
	stack := testutil.CreateStack(t, s.db, testutil.OrgA, "North", "Alfalfa", "3x4")
	barn := testutil.CreateLocation(t, s.db, testutil.OrgA, "Barn", 0)
	testutil.AddTransaction(t, s.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, &barn.ID, 40, 0)

	w := s.do(t, "driver-a", http.MethodPost, "/api/v1/tickets",
		`{"stackId":"`+stack.ID.String()+`","locationId":"`+barn.ID.String()+`","amount":5,"customer":"Co-op"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ticket := decode[domain.TicketDTO](t, w)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)

	ticketPath := "/api/v1/tickets/" + ticket.ID.String()
	assert.Equal(t, http.StatusForbidden, s.do(t, "driver-a", http.MethodPost, ticketPath+"/approve", "").Code)

	queue := decode[domain.DispatchQueueDTO](t, s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/dispatch", ""))
	require.Len(t, queue.Pending, 1)

	w = s.do(t, "bookkeeper-a", http.MethodPost, ticketPath+"/approve", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.TicketStatusApproved, decode[domain.TicketDTO](t, w).Status)

	w = s.do(t, "bookkeeper-a", http.MethodPost, ticketPath+"/reject", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.ErrorTypeInvalidTransition, decode[domain.APIError](t, w).Type)

	w = s.do(t, "bookkeeper-a", http.MethodPost, "/api/v1/invoices", `{"ticketIds":["`+ticket.ID.String()+`"],"customer":"Co-op"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	invoice := decode[domain.InvoiceDTO](t, w)
	assert.Equal(t, 1, invoice.TicketCount)

	w = s.do(t, "bookkeeper-a", http.MethodPut, "/api/v1/invoices/"+invoice.ID.String()+"/status", `{"status":"sent"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.InvoiceStatusSent, decode[domain.InvoiceDTO](t, w).Status)

	page := decode[domain.PaginatedResponse](t, s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/invoices?status=sent", ""))
	assert.EqualValues(t, 1, page.Total)
}

func TestReportsAndPreferences(t *testing.T) {
	s := newTestServer(t)
	stack := testutil.CreateStack(t, s.db, testutil.OrgA, "North", "Alfalfa", "3x4")
	testutil.AddTransaction(t, s.db, testutil.OrgA, domain.TransactionTypeProduction, stack.ID, nil, 40, 0)

	assert.Equal(t, http.StatusOK, s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/reports", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/dashboard", "").Code)

	w := s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/reports/export.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "hayflow-report-")

	w = s.do(t, "driver-a", http.MethodGet, "/api/v1/preferences/dashboard-layout", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestAuditRouteRequiresUserManagement(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusForbidden, s.do(t, "bookkeeper-a", http.MethodGet, "/api/v1/audit", "").Code)

	w := s.do(t, "admin-a", http.MethodGet, "/api/v1/audit", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 0, decode[domain.PaginatedResponse](t, w).Total)

	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin-a", http.MethodGet, "/api/v1/audit?action=explode", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "admin-a", http.MethodGet, "/api/v1/nothing-here/"+uuid.NewString(), "").Code)
}
