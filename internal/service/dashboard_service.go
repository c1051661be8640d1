package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/mapper"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"github.com/jakecourtright/HayFlow/internal/units"
	"go.uber.org/zap"
)

const recentActivityLimit = 10

type DashboardService struct {
	stackRepo *repository.StackRepository
	txRepo    *repository.TransactionRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewDashboardService(
	stackRepo *repository.StackRepository,
	txRepo *repository.TransactionRepository,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		stackRepo: stackRepo,
		txRepo:    txRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// GetSummary returns current stock, this month's sales and moves, and recent activity
func (s *DashboardService) GetSummary(ctx context.Context) (*domain.DashboardDTO, error) {
	if _, err := requireActor(ctx); err != nil {
		return nil, err
	}

	stock, err := stockByCommodity(ctx, s.stackRepo, s.txRepo)
	if err != nil {
		return nil, err
	}
	summary := &domain.DashboardDTO{StockByCommodity: stock}
	for _, c := range stock {
		summary.TotalStockBales += c.Bales
		summary.TotalStockTons += c.Tons
	}

	monthStart := startOfMonth(s.now())
	saleType := domain.TransactionTypeSale
	sales, err := s.txRepo.ListAll(ctx, &domain.TransactionFilters{Type: &saleType, From: &monthStart})
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	for i := range sales {
		summary.SalesThisMonthBales += sales[i].Amount
		summary.SalesThisMonthRevenue += units.BalesToTons(sales[i].Amount, mapper.StackWeight(sales[i].Stack)) * sales[i].Price
	}

	summary.BalesMovedThisMonth, err = s.txRepo.SumAmount(ctx, domain.TransactionTypeMove, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to sum moves: %w", err)
	}

	recent, err := s.txRepo.Recent(ctx, recentActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	summary.RecentActivity = make([]domain.TransactionDTO, len(recent))
	for i := range recent {
		summary.RecentActivity[i] = mapper.ToTransactionDTO(&recent[i])
	}
	return summary, nil
}

func startOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
