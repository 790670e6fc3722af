package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/repository"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

const (
	// dashboardPageSize caps the active-crisis listing.
	dashboardPageSize = 20

	// trendWindowDays is the trailing window for per-day counts.
	trendWindowDays = 14

	// historyCap bounds how much incident history feeds statistics.
	historyCap = 500
)

var openStatuses = []domain.CrisisStatus{
	domain.CrisisStatusDetected,
	domain.CrisisStatusAcknowledged,
	domain.CrisisStatusInvestigating,
}

// DashboardStatistics summarizes a workspace's incident history.
type DashboardStatistics struct {
	TotalCrises    int                           `json:"total_crises"`
	ActiveCrises   int                           `json:"active_crises"`
	ResolvedCrises int                           `json:"resolved_crises"`
	BySeverity     map[domain.CrisisSeverity]int `json:"by_severity"`
}

// DailyCount is one bucket of the detection trend.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardTrends reports operator responsiveness and detection rate.
type DashboardTrends struct {
	MeanTimeToAcknowledge time.Duration `json:"mean_time_to_acknowledge_ns"`
	MeanTimeToResolve     time.Duration `json:"mean_time_to_resolve_ns"`
	DailyCounts           []DailyCount  `json:"daily_counts"`
}

// Dashboard is the read model returned to the presentation layer.
type Dashboard struct {
	ActiveCrises []domain.Crisis     `json:"active_crises"`
	Statistics   DashboardStatistics `json:"statistics"`
	Trends       DashboardTrends     `json:"trends"`
}

// DashboardService computes crisis dashboards. Read-only.
type DashboardService struct {
	crises repository.CrisisRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs the service.
func NewDashboardService(crisisRepo repository.CrisisRepository, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{crises: crisisRepo, logger: logger, now: time.Now}
}

// GetCrisisDashboard returns active crises, summary statistics and
// trend figures for a workspace.
func (s *DashboardService) GetCrisisDashboard(ctx context.Context, workspaceID string) (*Dashboard, error) {
	if workspaceID == "" {
		return nil, apperrors.NewValidationError("workspace_id required", nil)
	}

	active, err := s.crises.ListWithFilter(ctx, repository.CrisisFilter{
		WorkspaceID: workspaceID,
		Statuses:    openStatuses,
		Limit:       dashboardPageSize,
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	history, err := s.crises.ListWithFilter(ctx, repository.CrisisFilter{
		WorkspaceID: workspaceID,
		Limit:       historyCap,
	})
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	dashboard := &Dashboard{
		ActiveCrises: active,
		Statistics:   buildStatistics(history),
		Trends:       s.buildTrends(history),
	}
	return dashboard, nil
}

func buildStatistics(history []domain.Crisis) DashboardStatistics {
	stats := DashboardStatistics{
		TotalCrises: len(history),
		BySeverity:  make(map[domain.CrisisSeverity]int),
	}
	for _, crisis := range history {
		stats.BySeverity[crisis.Severity]++
		if crisis.Status.IsOpen() {
			stats.ActiveCrises++
		} else {
			stats.ResolvedCrises++
		}
	}
	return stats
}

func (s *DashboardService) buildTrends(history []domain.Crisis) DashboardTrends {
	trends := DashboardTrends{}

	var ackTotal, resolveTotal time.Duration
	ackCount, resolveCount := 0, 0
	for _, crisis := range history {
		if crisis.ResolvedAt == nil {
			continue
		}
		resolveTotal += crisis.ResolvedAt.Sub(crisis.DetectedAt)
		resolveCount++
		if crisis.AcknowledgedAt != nil {
			ackTotal += crisis.AcknowledgedAt.Sub(crisis.DetectedAt)
			ackCount++
		}
	}
	if ackCount > 0 {
		trends.MeanTimeToAcknowledge = ackTotal / time.Duration(ackCount)
	}
	if resolveCount > 0 {
		trends.MeanTimeToResolve = resolveTotal / time.Duration(resolveCount)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	counts := make(map[string]int)
	for _, crisis := range history {
		day := crisis.DetectedAt.UTC().Truncate(24 * time.Hour)
		if today.Sub(day) < trendWindowDays*24*time.Hour {
			counts[day.Format("2006-01-02")]++
		}
	}
	for i := trendWindowDays - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		trends.DailyCounts = append(trends.DailyCounts, DailyCount{Date: date, Count: counts[date]})
	}
	return trends
}
