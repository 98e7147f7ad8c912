package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/portal-admin/internal/models"
)

// DashboardRepository aggregates portal-wide counters
type DashboardRepository struct {
	db Querier
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db Querier) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Stats returns the current dashboard counters
func (r *DashboardRepository) Stats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		UsersByRole:          map[string]int64{},
		ApplicationsByStatus: map[string]int64{},
	}

	if err := r.groupCount(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role", stats.UsersByRole); err != nil {
		return nil, err
	}
	if err := r.groupCount(ctx, "SELECT status, COUNT(*) FROM applications GROUP BY status", stats.ApplicationsByStatus); err != nil {
		return nil, err
	}

	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM recharge_requests
		WHERE status = 'pending'
	`).Scan(&stats.PendingRecharges, &stats.PendingRechargeAmount)
	if err != nil {
		return nil, translateError("count pending recharges", err)
	}

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, "SELECT COALESCE(SUM(balance), 0) FROM users").Scan(&total); err != nil {
		return nil, translateError("sum balances", err)
	}
	stats.TotalBalance = total

	return stats, nil
}

func (r *DashboardRepository) groupCount(ctx context.Context, query string, into map[string]int64) error {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return translateError("dashboard counts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return translateError("dashboard counts", err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return translateError("dashboard counts", err)
	}
	return nil
}
