package mapper_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/units"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestFormatTime(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	assert.Equal(t, "2026-03-01T11:30:00Z", mapper.FormatTime(time.Date(2026, 3, 1, 12, 30, 0, 0, oslo)))
}

func TestStackWeight(t *testing.T) {
	assert.Equal(t, units.FallbackWeight, mapper.StackWeight(nil))
	assert.Equal(t, 1200.0, mapper.StackWeight(&domain.Stack{BaleSize: "3x4"}))
	assert.Equal(t, 950.0, mapper.StackWeight(&domain.Stack{BaleSize: "3x4", WeightPerBale: floatPtr(950)}))
}

func TestToStackDTO(t *testing.T) {
	stack := &domain.Stack{
		BaseModel: domain.BaseModel{ID: uuid.New(), OrgID: "org"},
		Name:      "North",
		Commodity: "Alfalfa",
		BaleSize:  "3x4",
		BasePrice: 9,
		PriceUnit: domain.PriceUnitBale,
	}
	dto := mapper.ToStackDTO(stack, 100)
	assert.Equal(t, stack.ID, dto.ID)
	assert.InDelta(t, 15.0, dto.PricePerTon, 1e-9)
	assert.InDelta(t, 60.0, dto.CurrentStockTons, 1e-9)
	assert.Equal(t, 1200.0, dto.ResolvedWeight)
}

func TestUsagePercent(t *testing.T) {
	assert.Zero(t, mapper.UsagePercent(0, domain.CapacityUnitBales, 10, 6))
	assert.InDelta(t, 50.0, mapper.UsagePercent(20, domain.CapacityUnitBales, 10, 6), 1e-9)
	assert.InDelta(t, 30.0, mapper.UsagePercent(20, domain.CapacityUnitTons, 10, 6), 1e-9)
}

func TestToTransactionDTO_OrphanedStack(t *testing.T) {
	dto := mapper.ToTransactionDTO(&domain.Transaction{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Type:      domain.TransactionTypeSale,
		Amount:    10,
	})
	assert.Empty(t, dto.StackName)
	assert.InDelta(t, 10*units.FallbackWeight/units.LbsPerTon, dto.Tons, 1e-9)
}

func TestInvoiceMappers(t *testing.T) {
	stack := &domain.Stack{Name: "North", Commodity: "Alfalfa", BaleSize: "3x4"}
	price := decimal.NewFromFloat(150)
	invoice := &domain.Invoice{
		BaseModel:     domain.BaseModel{ID: uuid.New(), OrgID: "org_secret"},
		InvoiceNumber: "INV-0003",
		Customer:      "Miller Dairy",
		Status:        domain.InvoiceStatusSent,
		TotalAmount:   decimal.NewFromFloat(180),
		PricePerUnit:  &price,
		PriceUnit:     domain.PriceUnitTon,
		ShareToken:    "feedface",
		Tickets: []domain.Ticket{
			{Number: 7, Amount: 4, NetLbs: floatPtr(2400), Stack: stack, Status: domain.TicketStatusInvoiced},
			{Number: 8, Amount: 10, Stack: stack, Status: domain.TicketStatusInvoiced},
		},
	}

	t.Run("internal view", func(t *testing.T) {
		dto := mapper.ToInvoiceDTO(invoice, 0)
		assert.Equal(t, 2, dto.TicketCount)
		assert.Equal(t, 14.0, dto.TotalBales)
		assert.Equal(t, 2400.0, dto.TotalNetLbs)
		assert.Equal(t, "feedface", dto.ShareToken)
		require.NotNil(t, dto.PricePerUnit)
		assert.Equal(t, 150.0, *dto.PricePerUnit)
		require.Len(t, dto.Tickets, 2)
		assert.Equal(t, "Ticket #7", dto.Tickets[0].Label)
	})

	t.Run("ticket count without loaded tickets", func(t *testing.T) {
		bare := *invoice
		bare.Tickets = nil
		dto := mapper.ToInvoiceDTO(&bare, 5)
		assert.Equal(t, 5, dto.TicketCount)
		assert.Empty(t, dto.Tickets)
	})

	t.Run("public view", func(t *testing.T) {
		dto := mapper.ToPublicInvoiceDTO(invoice)
		require.Len(t, dto.Lines, 2)
		assert.Equal(t, "Alfalfa", dto.Lines[0].Commodity)
		assert.InDelta(t, 1.2, dto.Lines[0].Tons, 1e-9)
		assert.InDelta(t, 6.0, dto.Lines[1].Tons, 1e-9)
		assert.InDelta(t, 7.2, dto.TotalTons, 1e-9)
		assert.Equal(t, 14.0, dto.TotalBales)
	})
}

func TestFormatError(t *testing.T) {
	base := errors.New("boom")
	err := mapper.FormatError("stack", "update", base)
	assert.EqualError(t, err, "failed to update stack: boom")
	assert.ErrorIs(t, err, base)
}
