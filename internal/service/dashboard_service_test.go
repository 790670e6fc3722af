package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/crisis-service/internal/domain"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

var dashboardTestTime = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newDashboardTestService(crises *fakeCrisisRepo) *DashboardService {
	svc := NewDashboardService(crises, nil)
	svc.now = func() time.Time { return dashboardTestTime }
	return svc
}

func seedDashboardCrisis(t *testing.T, crises *fakeCrisisRepo, crisisType domain.CrisisType, severity domain.CrisisSeverity, status domain.CrisisStatus, detectedAt time.Time, ackAfter, resolveAfter time.Duration) *domain.Crisis {
	t.Helper()
	crisis := &domain.Crisis{
		WorkspaceID: testWorkspace,
		Title:       "seeded",
		Type:        crisisType,
		Severity:    severity,
		Status:      domain.CrisisStatusDetected,
		Score:       55,
		DetectedAt:  detectedAt,
	}
	require.NoError(t, crises.Create(context.Background(), crisis))

	stored := crises.crises[crisis.ID]
	stored.Status = status
	if ackAfter > 0 {
		ackAt := detectedAt.Add(ackAfter)
		stored.AcknowledgedAt = &ackAt
	}
	if resolveAfter > 0 {
		resolvedAt := detectedAt.Add(resolveAfter)
		stored.ResolvedAt = &resolvedAt
	}
	crisis.Status = status
	return crisis
}

func TestGetCrisisDashboard(t *testing.T) {
	crises := newFakeCrisisRepo()
	svc := newDashboardTestService(crises)

	open := seedDashboardCrisis(t, crises, domain.CrisisTypeSentiment, domain.SeverityHigh,
		domain.CrisisStatusAcknowledged, dashboardTestTime.Add(-3*time.Hour), 30*time.Minute, 0)
	seedDashboardCrisis(t, crises, domain.CrisisTypeVolume, domain.SeverityMedium,
		domain.CrisisStatusResolved, dashboardTestTime.Add(-48*time.Hour), time.Hour, 4*time.Hour)

	dashboard, err := svc.GetCrisisDashboard(context.Background(), testWorkspace)
	require.NoError(t, err)

	require.Len(t, dashboard.ActiveCrises, 1)
	assert.Equal(t, open.ID, dashboard.ActiveCrises[0].ID)

	stats := dashboard.Statistics
	assert.Equal(t, 2, stats.TotalCrises)
	assert.Equal(t, 1, stats.ActiveCrises)
	assert.Equal(t, 1, stats.ResolvedCrises)
	assert.Equal(t, 1, stats.BySeverity[domain.SeverityHigh])
	assert.Equal(t, 1, stats.BySeverity[domain.SeverityMedium])

	trends := dashboard.Trends
	assert.Equal(t, time.Hour, trends.MeanTimeToAcknowledge)
	assert.Equal(t, 4*time.Hour, trends.MeanTimeToResolve)
}

func TestGetCrisisDashboardDailyCounts(t *testing.T) {
	crises := newFakeCrisisRepo()
	svc := newDashboardTestService(crises)

	// Two detections today, one two days ago, one outside the window.
	seedDashboardCrisis(t, crises, domain.CrisisTypeSentiment, domain.SeverityLow,
		domain.CrisisStatusClosed, dashboardTestTime.Add(-30*24*time.Hour), time.Hour, 2*time.Hour)
	seedDashboardCrisis(t, crises, domain.CrisisTypeMixed, domain.SeverityLow,
		domain.CrisisStatusResolved, dashboardTestTime.Add(-2*24*time.Hour), time.Hour, 2*time.Hour)
	seedDashboardCrisis(t, crises, domain.CrisisTypeSentiment, domain.SeverityHigh,
		domain.CrisisStatusDetected, dashboardTestTime.Add(-time.Hour), 0, 0)
	seedDashboardCrisis(t, crises, domain.CrisisTypeVolume, domain.SeverityMedium,
		domain.CrisisStatusDetected, dashboardTestTime.Add(-2*time.Hour), 0, 0)

	dashboard, err := svc.GetCrisisDashboard(context.Background(), testWorkspace)
	require.NoError(t, err)

	counts := dashboard.Trends.DailyCounts
	require.Len(t, counts, trendWindowDays)

	total := 0
	byDate := make(map[string]int)
	for _, bucket := range counts {
		total += bucket.Count
		byDate[bucket.Date] = bucket.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, byDate["2026-03-14"])
	assert.Equal(t, 1, byDate["2026-03-12"])
	assert.Equal(t, "2026-03-14", counts[len(counts)-1].Date)
}

func TestGetCrisisDashboardEmptyWorkspace(t *testing.T) {
	svc := newDashboardTestService(newFakeCrisisRepo())

	dashboard, err := svc.GetCrisisDashboard(context.Background(), testWorkspace)
	require.NoError(t, err)

	assert.Empty(t, dashboard.ActiveCrises)
	assert.Equal(t, 0, dashboard.Statistics.TotalCrises)
	assert.Equal(t, time.Duration(0), dashboard.Trends.MeanTimeToResolve)
	assert.Len(t, dashboard.Trends.DailyCounts, trendWindowDays)
}

func TestGetCrisisDashboardValidation(t *testing.T) {
	svc := newDashboardTestService(newFakeCrisisRepo())

	_, err := svc.GetCrisisDashboard(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestGetCrisisDashboardStoreDown(t *testing.T) {
	crises := newFakeCrisisRepo()
	crises.listErr = errors.New("connection refused")
	svc := newDashboardTestService(crises)

	_, err := svc.GetCrisisDashboard(context.Background(), testWorkspace)
	assert.True(t, apperrors.HasCode(err, "STORE_UNAVAILABLE"))
}
