package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/repository"
	"go.uber.org/zap"
)

// PreferenceDashboardLayout is the preference key holding the dashboard layout
const PreferenceDashboardLayout = "dashboard_layout"

// DashboardWidgets lists the known widget keys in their default order
var DashboardWidgets = []string{
	"total-stock",
	"stock-by-commodity",
	"sales-this-month",
	"bales-moved",
	"action-cards",
	"recent-activity",
}

// DefaultDashboardLayout shows every widget in the default order
func DefaultDashboardLayout() domain.DashboardLayout {
	order := make([]string, len(DashboardWidgets))
	copy(order, DashboardWidgets)
	return domain.DashboardLayout{Order: order, Hidden: []string{}}
}

type PreferenceService struct {
	repo   *repository.PreferenceRepository
	logger *zap.Logger
}

func NewPreferenceService(repo *repository.PreferenceRepository, logger *zap.Logger) *PreferenceService {
	return &PreferenceService{repo: repo, logger: logger}
}

// GetDashboardLayout returns the caller's layout, or the default when none is stored or the
// stored value no longer parses
func (s *PreferenceService) GetDashboardLayout(ctx context.Context) (*domain.DashboardLayout, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.repo.Get(ctx, user.UserID, user.OrgID, PreferenceDashboardLayout)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard layout: %w", err)
	}
	layout := DefaultDashboardLayout()
	if raw == "" {
		return &layout, nil
	}

	var stored domain.DashboardLayout
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || validateLayout(&stored) != nil {
		s.logger.Warn("ignoring unreadable dashboard layout",
			zap.String("user_id", user.UserID),
			zap.String("org_id", user.OrgID))
		return &layout, nil
	}
	if stored.Hidden == nil {
		stored.Hidden = []string{}
	}
	return &stored, nil
}

// SaveDashboardLayout stores the caller's layout
func (s *PreferenceService) SaveDashboardLayout(ctx context.Context, layout *domain.DashboardLayout) (*domain.DashboardLayout, error) {
	user, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateLayout(layout); err != nil {
		return nil, err
	}
	if layout.Hidden == nil {
		layout.Hidden = []string{}
	}

	data, err := json.Marshal(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dashboard layout: %w", err)
	}
	if err := s.repo.Upsert(ctx, user.UserID, user.OrgID, PreferenceDashboardLayout, string(data)); err != nil {
		return nil, fmt.Errorf("failed to save dashboard layout: %w", err)
	}
	return layout, nil
}

func validateLayout(layout *domain.DashboardLayout) error {
	known := make(map[string]bool, len(DashboardWidgets))
	for _, w := range DashboardWidgets {
		known[w] = true
	}
	seen := make(map[string]bool, len(layout.Order))
	for _, w := range layout.Order {
		if !known[w] {
			return fmt.Errorf("%w: unknown widget %q", ErrInvalidDashboardLayout, w)
		}
		if seen[w] {
			return fmt.Errorf("%w: widget %q listed twice", ErrInvalidDashboardLayout, w)
		}
		seen[w] = true
	}
	for _, w := range layout.Hidden {
		if !known[w] {
			return fmt.Errorf("%w: unknown widget %q", ErrInvalidDashboardLayout, w)
		}
	}
	return nil
}
