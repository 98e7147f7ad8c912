package service

import (
	"context"

	"github.com/portal-admin/internal/auth"
	"github.com/portal-admin/internal/models"
)

// StatsSource computes dashboard figures; satisfied by *storage.DashboardRepository
type StatsSource interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardService serves the admin dashboard
type DashboardService struct {
	source StatsSource
}

// NewDashboardService creates the dashboard service
func NewDashboardService(source StatsSource) *DashboardService {
	return &DashboardService{source: source}
}

// Stats returns portal-wide counts. Admins only.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if _, err := auth.Guard(ctx, auth.Admins...); err != nil {
		return nil, err
	}
	return s.source.Stats(ctx)
}
