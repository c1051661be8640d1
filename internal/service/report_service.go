package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/export"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/units"
	"go.uber.org/zap"
)

// ReportService aggregates the ledger over a date range
type ReportService struct {
	stackRepo *repository.StackRepository
	txRepo    *repository.TransactionRepository
	logger    *zap.Logger
}

func NewReportService(stackRepo *repository.StackRepository, txRepo *repository.TransactionRepository, logger *zap.Logger) *ReportService {
	return &ReportService{stackRepo: stackRepo, txRepo: txRepo, logger: logger}
}

// Generate totals production, sales and purchases in [from, to). Money is tons times the
// stored $/ton price, using each stack's resolved weight. Stock by commodity is current stock.
func (s *ReportService) Generate(ctx context.Context, from, to *time.Time) (*domain.ReportDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, validationError("from must be before to")
	}

	txs, err := s.txRepo.ListAll(ctx, &domain.TransactionFilters{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	report := &domain.ReportDTO{From: from, To: to}
	for i := range txs {
		tx := &txs[i]
		tons := units.BalesToTons(tx.Amount, mapper.StackWeight(tx.Stack))
		switch tx.Type {
		case domain.TransactionTypeProduction:
			report.ProductionBales += tx.Amount
		case domain.TransactionTypeSale:
			report.SalesBales += tx.Amount
			report.SalesTons += tons
			report.Revenue += tons * tx.Price
		case domain.TransactionTypePurchase:
			report.PurchaseBales += tx.Amount
			report.PurchaseTons += tons
			report.Cost += tons * tx.Price
		}
	}
	report.NetPosition = report.Revenue - report.Cost

	stock, err := stockByCommodity(ctx, s.stackRepo, s.txRepo)
	if err != nil {
		return nil, err
	}
	report.StockByCommodity = stock
	return report, nil
}

// Export renders the report as an XLSX workbook
func (s *ReportService) Export(ctx context.Context, from, to *time.Time) ([]byte, error) {
	report, err := s.Generate(ctx, from, to)
	if err != nil {
		return nil, err
	}
	data, err := export.ReportWorkbook(report)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	return data, nil
}

// stockByCommodity nets current stock per commodity, sorted by commodity name
func stockByCommodity(ctx context.Context, stackRepo *repository.StackRepository, txRepo *repository.TransactionRepository) ([]domain.CommodityStockDTO, error) {
	rows, err := txRepo.StockByStackAndLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stock: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		if row.StackID != nil {
			ids = append(ids, *row.StackID)
		}
	}
	stacks, err := stackRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load stacks: %w", err)
	}

	totals := make(map[string]*domain.CommodityStockDTO)
	for _, row := range rows {
		if row.StackID == nil {
			continue
		}
		stack, ok := stacks[*row.StackID]
		if !ok {
			continue
		}
		c, ok := totals[stack.Commodity]
		if !ok {
			c = &domain.CommodityStockDTO{Commodity: stack.Commodity}
			totals[stack.Commodity] = c
		}
		c.Bales += row.Bales
		c.Tons += units.BalesToTons(row.Bales, mapper.StackWeight(&stack))
	}

	out := make([]domain.CommodityStockDTO, 0, len(totals))
	for _, c := range totals {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Commodity < out[j].Commodity })
	return out, nil
}
