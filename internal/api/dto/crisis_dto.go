package dto

import (
	"time"

	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/service"
)

// MonitorRunRequest optionally overrides detector tuning for one pass.
type MonitorRunRequest struct {
	MinMentions            int     `json:"min_mentions"`
	CurrentWindowMinutes   int     `json:"current_window_minutes"`
	BaselineWindowMinutes  int     `json:"baseline_window_minutes"`
	SentimentThreshold     float64 `json:"sentiment_threshold"`
	VolumeThresholdPercent float64 `json:"volume_threshold_percent"`
}

// MonitorRunResponse reports one detection pass.
type MonitorRunResponse struct {
	CrisisDetected bool           `json:"crisis_detected"`
	Crisis         *CrisisSummary `json:"crisis,omitempty"`
	Metrics        MonitorMetrics `json:"metrics"`
}

// MonitorMetrics exposes the evidence behind a pass verdict.
type MonitorMetrics struct {
	CurrentMentions   int     `json:"current_mentions"`
	BaselineMentions  int     `json:"baseline_mentions"`
	MeanSentiment     float64 `json:"mean_sentiment"`
	BaselineSentiment float64 `json:"baseline_sentiment"`
	SentimentAnomaly  bool    `json:"sentiment_anomaly"`
	VolumeAnomaly     bool    `json:"volume_anomaly"`
	Score             float64 `json:"crisis_score"`
}

// CrisisSummary response.
type CrisisSummary struct {
	ID          string                `json:"id"`
	WorkspaceID string                `json:"workspace_id"`
	Title       string                `json:"title"`
	Type        domain.CrisisType     `json:"type"`
	Severity    domain.CrisisSeverity `json:"severity"`
	Status      domain.CrisisStatus   `json:"status"`
	Score       float64               `json:"crisis_score"`
	DetectedAt  time.Time             `json:"detected_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// CrisisDetailResponse provides full crisis info.
type CrisisDetailResponse struct {
	CrisisSummary
	Snapshot       domain.MetricsSnapshot  `json:"snapshot"`
	AcknowledgedAt *time.Time              `json:"acknowledged_at"`
	ResolvedAt     *time.Time              `json:"resolved_at"`
	Timeline       []TimelineEntryResponse `json:"timeline"`
}

// TimelineEntryResponse represents one audit record.
type TimelineEntryResponse struct {
	ID         string              `json:"id"`
	ActorID    string              `json:"actor_id"`
	FromStatus domain.CrisisStatus `json:"from_status"`
	ToStatus   domain.CrisisStatus `json:"to_status"`
	Note       string              `json:"note,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.CrisisStatus `json:"status"`
	Note   string              `json:"note"`
}

// DashboardResponse mirrors the dashboard read model.
type DashboardResponse struct {
	ActiveCrises []CrisisSummary             `json:"active_crises"`
	Statistics   service.DashboardStatistics `json:"statistics"`
	Trends       DashboardTrendsResponse     `json:"trends"`
}

// DashboardTrendsResponse reports responsiveness in whole seconds.
type DashboardTrendsResponse struct {
	MeanTimeToAcknowledgeSeconds float64              `json:"mean_time_to_acknowledge_seconds"`
	MeanTimeToResolveSeconds     float64              `json:"mean_time_to_resolve_seconds"`
	DailyCounts                  []service.DailyCount `json:"daily_counts"`
}
