package domain

import "time"

// CrisisType identifies which signal triggered a crisis.
type CrisisType string

const (
	CrisisTypeSentiment CrisisType = "SENTIMENT"
	CrisisTypeVolume    CrisisType = "VOLUME"
	CrisisTypeMixed     CrisisType = "MIXED"
)

// CrisisStatus enumerates lifecycle states for crises.
type CrisisStatus string

const (
	CrisisStatusDetected      CrisisStatus = "DETECTED"
	CrisisStatusAcknowledged  CrisisStatus = "ACKNOWLEDGED"
	CrisisStatusInvestigating CrisisStatus = "INVESTIGATING"
	CrisisStatusResolved      CrisisStatus = "RESOLVED"
	CrisisStatusClosed        CrisisStatus = "CLOSED"
)

// IsOpen reports whether a crisis in this status still needs operator
// attention.
func (s CrisisStatus) IsOpen() bool {
	return s != CrisisStatusResolved && s != CrisisStatusClosed
}

// CrisisSeverity is the four-tier classification derived from the
// crisis score.
type CrisisSeverity string

const (
	SeverityLow      CrisisSeverity = "LOW"
	SeverityMedium   CrisisSeverity = "MEDIUM"
	SeverityHigh     CrisisSeverity = "HIGH"
	SeverityCritical CrisisSeverity = "CRITICAL"
)

// Rank orders severities for escalation comparisons.
func (s CrisisSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Crisis is the aggregate for detected anomaly incidents.
type Crisis struct {
	ID             string
	WorkspaceID    string
	Title          string
	Type           CrisisType
	Severity       CrisisSeverity
	Status         CrisisStatus
	Score          float64
	Snapshot       MetricsSnapshot
	DetectedAt     time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Timeline       []TimelineEntry
}

// MetricsSnapshot captures the window aggregates and detector details
// that triggered (or last refreshed) a crisis.
type MetricsSnapshot struct {
	Score               float64 `json:"score"`
	SentimentCurrent    float64 `json:"sentiment_current"`
	SentimentBaseline   float64 `json:"sentiment_baseline"`
	SentimentDelta      float64 `json:"sentiment_delta"`
	VolumeCurrent       int     `json:"volume_current"`
	VolumeBaseline      int     `json:"volume_baseline"`
	VolumeChangePercent float64 `json:"volume_change_percent"`
	NegativePercentage  float64 `json:"negative_percentage"`
	InfluencerCount     int     `json:"influencer_count"`
	TotalReach          int     `json:"total_reach"`
	SampleSize          int     `json:"sample_size"`
	SentimentAnomaly    bool    `json:"sentiment_anomaly"`
	VolumeAnomaly       bool    `json:"volume_anomaly"`
}

// TimelineEntry is an immutable audit record of one status transition.
type TimelineEntry struct {
	ID         string
	CrisisID   string
	ActorID    string
	FromStatus CrisisStatus
	ToStatus   CrisisStatus
	Note       string
	CreatedAt  time.Time
}
