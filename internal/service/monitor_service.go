package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandpulse/crisis-service/internal/config"
	"github.com/brandpulse/crisis-service/internal/detection"
	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/events"
	"github.com/brandpulse/crisis-service/internal/observability"
	"github.com/brandpulse/crisis-service/internal/repository"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// detectionScoreFloor is the minimum crisis score required to open an
// incident, aligned with the MEDIUM severity boundary.
const detectionScoreFloor = 30.0

// monitorLockTTL bounds how long a stuck poller can hold a workspace.
const monitorLockTTL = time.Minute

// WorkspaceLocker serializes monitor passes for a single workspace.
type WorkspaceLocker interface {
	Acquire(ctx context.Context, workspaceID string, ttl time.Duration) (bool, func(context.Context), error)
}

// MonitorOptions tunes one detection pass. Zero-valued fields fall
// back to the service defaults.
type MonitorOptions struct {
	MinMentions            int
	CurrentWindow          time.Duration
	BaselineWindow         time.Duration
	SentimentThreshold     float64
	VolumeThresholdPercent float64
}

// MonitorMetrics reports the aggregates and verdicts of one pass.
type MonitorMetrics struct {
	Current   detection.WindowAggregate
	Baseline  detection.WindowAggregate
	Sentiment detection.AnomalyResult
	Volume    detection.AnomalyResult
	Score     float64
}

// MonitorResult is the outcome of one monitor pass.
type MonitorResult struct {
	CrisisDetected bool
	Crisis         *domain.Crisis
	Metrics        MonitorMetrics
}

// MonitorService runs anomaly detection over a workspace's mention
// stream and opens crises when warranted.
type MonitorService struct {
	mentions   repository.MentionRepository
	crises     repository.CrisisRepository
	locks      WorkspaceLocker
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	defaults   MonitorOptions
	now        func() time.Time
}

// MonitorDependencies bundles collaborators for the monitor service.
type MonitorDependencies struct {
	MentionRepo repository.MentionRepository
	CrisisRepo  repository.CrisisRepository
	Locks       WorkspaceLocker
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewMonitorService constructs the service with defaults from config.
func NewMonitorService(cfg config.MonitorConfig, deps MonitorDependencies) *MonitorService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitorService{
		mentions:   deps.MentionRepo,
		crises:     deps.CrisisRepo,
		locks:      deps.Locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		defaults: MonitorOptions{
			MinMentions:            cfg.MinMentions,
			CurrentWindow:          time.Duration(cfg.CurrentWindowMinutes) * time.Minute,
			BaselineWindow:         time.Duration(cfg.BaselineWindowMinutes) * time.Minute,
			SentimentThreshold:     cfg.SentimentThreshold,
			VolumeThresholdPercent: cfg.VolumeThresholdPercent,
		},
		now: time.Now,
	}
}

// MonitorForCrisis runs one detection pass for a workspace. Safe to
// invoke repeatedly and concurrently: overlapping passes for the same
// workspace are serialized by the workspace lock, and the store's
// uniqueness constraint backstops duplicate open incidents.
func (s *MonitorService) MonitorForCrisis(ctx context.Context, workspaceID string, opts *MonitorOptions) (*MonitorResult, error) {
	start := s.now()

	options, err := s.resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	acquired, release, err := s.locks.Acquire(ctx, workspaceID, monitorLockTTL)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("lock", err)
	}
	if !acquired {
		s.metrics.RecordMonitorRun(observability.OutcomeSkipped, s.now().Sub(start))
		return nil, apperrors.NewConflict("monitor pass already running for workspace", map[string]any{
			"workspace_id": workspaceID,
		})
	}
	defer release(ctx)

	result, err := s.runDetection(ctx, workspaceID, options)
	if err != nil {
		s.metrics.RecordMonitorRun(observability.OutcomeError, s.now().Sub(start))
		return nil, err
	}

	outcome := observability.OutcomeNoAnomaly
	switch {
	case result.CrisisDetected:
		outcome = observability.OutcomeDetected
	case result.Metrics.Current.Count+result.Metrics.Baseline.Count < options.MinMentions:
		outcome = observability.OutcomeInsufficient
	}
	s.metrics.RecordMonitorRun(outcome, s.now().Sub(start))
	return result, nil
}

func (s *MonitorService) runDetection(ctx context.Context, workspaceID string, options MonitorOptions) (*MonitorResult, error) {
	now := s.now()
	currentStart := now.Add(-options.CurrentWindow)
	baselineStart := currentStart.Add(-options.BaselineWindow)

	current, err := s.mentions.ListWindow(ctx, workspaceID, currentStart, now)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("mention", err)
	}
	baseline, err := s.mentions.ListWindow(ctx, workspaceID, baselineStart, currentStart)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("mention", err)
	}

	result := &MonitorResult{}
	result.Metrics.Current = detection.Aggregate(current)
	result.Metrics.Baseline = detection.Aggregate(baseline)
	cur := result.Metrics.Current
	base := result.Metrics.Baseline

	// Insufficient signal is the quiet non-error path.
	if cur.Count == 0 || cur.Count+base.Count < options.MinMentions {
		return result, nil
	}

	result.Metrics.Sentiment = detection.DetectSentimentAnomaly(cur.MeanSentiment, base.MeanSentiment, options.SentimentThreshold)
	result.Metrics.Volume = detection.DetectVolumeAnomaly(float64(cur.Count), float64(base.Count), options.VolumeThresholdPercent)

	result.Metrics.Score = detection.CalculateCrisisScore(detection.ScoreInputs{
		SentimentScore:            cur.MeanSentiment,
		SentimentChange:           result.Metrics.Sentiment.Details.Delta,
		VolumeChange:              result.Metrics.Volume.Details.Change,
		NegativeMentionPercentage: cur.NegativePercentage,
		InfluencerInvolvement:     cur.InfluencerCount,
		TotalMentions:             cur.Count + base.Count,
	})

	sentimentHit := result.Metrics.Sentiment.IsAnomaly
	volumeHit := result.Metrics.Volume.IsAnomaly
	if (!sentimentHit && !volumeHit) || result.Metrics.Score < detectionScoreFloor {
		return result, nil
	}

	// A cancelled pass must not persist a partially evaluated crisis.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crisisType := crisisTypeFor(sentimentHit, volumeHit)
	severity := detection.SeverityForScore(result.Metrics.Score)
	snapshot := buildSnapshot(result.Metrics)

	crisis, err := s.openOrRefresh(ctx, workspaceID, crisisType, severity, snapshot, now)
	if err != nil {
		return nil, err
	}

	result.CrisisDetected = true
	result.Crisis = crisis
	return result, nil
}

// openOrRefresh enforces the single-open-crisis-per-type invariant:
// an existing open crisis is refreshed (severity only ever raised),
// otherwise a new one is created in state DETECTED.
func (s *MonitorService) openOrRefresh(ctx context.Context, workspaceID string, crisisType domain.CrisisType, severity domain.CrisisSeverity, snapshot domain.MetricsSnapshot, now time.Time) (*domain.Crisis, error) {
	existing, err := s.crises.FindOpenByType(ctx, workspaceID, crisisType)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}
	if existing != nil {
		return s.refresh(ctx, existing, severity, snapshot)
	}

	crisis := &domain.Crisis{
		WorkspaceID: workspaceID,
		Title:       titleFor(crisisType),
		Type:        crisisType,
		Severity:    severity,
		Status:      domain.CrisisStatusDetected,
		Score:       snapshot.Score,
		Snapshot:    snapshot,
		DetectedAt:  now,
	}
	if err := s.crises.Create(ctx, crisis); err != nil {
		if err == repository.ErrDuplicateOpenCrisis {
			// Lost the race against another poller; surface its crisis.
			winner, findErr := s.crises.FindOpenByType(ctx, workspaceID, crisisType)
			if findErr != nil || winner == nil {
				return nil, apperrors.NewStoreUnavailable("crisis", findErr)
			}
			return winner, nil
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	s.metrics.RecordCrisisDetected(string(crisisType), string(severity))
	s.logger.Info("crisis detected",
		zap.String("crisis_id", crisis.ID),
		zap.String("workspace_id", workspaceID),
		zap.String("type", string(crisisType)),
		zap.String("severity", string(severity)),
		zap.Float64("score", crisis.Score))

	s.publish(ctx, events.Event{
		Type:        events.EventCrisisDetected,
		CrisisID:    crisis.ID,
		WorkspaceID: workspaceID,
		Payload: events.CrisisDetectedPayload{
			Type:     crisisType,
			Severity: severity,
			Score:    crisis.Score,
			Title:    crisis.Title,
		},
	})
	return crisis, nil
}

func (s *MonitorService) refresh(ctx context.Context, crisis *domain.Crisis, severity domain.CrisisSeverity, snapshot domain.MetricsSnapshot) (*domain.Crisis, error) {
	oldSeverity := crisis.Severity
	if severity.Rank() > oldSeverity.Rank() {
		crisis.Severity = severity
	}
	crisis.Score = snapshot.Score
	crisis.Snapshot = snapshot

	if err := s.crises.RefreshDetection(ctx, crisis); err != nil {
		if err == repository.ErrStaleStatus {
			// Closed underneath us between lookup and refresh; report
			// the stale view rather than spawning a duplicate mid-pass.
			return crisis, nil
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	if crisis.Severity.Rank() > oldSeverity.Rank() {
		s.logger.Warn("crisis escalated",
			zap.String("crisis_id", crisis.ID),
			zap.String("old_severity", string(oldSeverity)),
			zap.String("new_severity", string(crisis.Severity)))
		s.publish(ctx, events.Event{
			Type:        events.EventCrisisEscalated,
			CrisisID:    crisis.ID,
			WorkspaceID: crisis.WorkspaceID,
			Payload: events.CrisisEscalatedPayload{
				Type:        crisis.Type,
				OldSeverity: oldSeverity,
				NewSeverity: crisis.Severity,
				Score:       crisis.Score,
			},
		})
	}
	return crisis, nil
}

func (s *MonitorService) resolveOptions(opts *MonitorOptions) (MonitorOptions, error) {
	resolved := s.defaults
	if opts != nil {
		if opts.MinMentions > 0 {
			resolved.MinMentions = opts.MinMentions
		}
		if opts.CurrentWindow != 0 {
			resolved.CurrentWindow = opts.CurrentWindow
		}
		if opts.BaselineWindow != 0 {
			resolved.BaselineWindow = opts.BaselineWindow
		}
		if opts.SentimentThreshold != 0 {
			resolved.SentimentThreshold = opts.SentimentThreshold
		}
		if opts.VolumeThresholdPercent != 0 {
			resolved.VolumeThresholdPercent = opts.VolumeThresholdPercent
		}
	}

	details := map[string]any{}
	if resolved.MinMentions <= 0 {
		details["min_mentions"] = resolved.MinMentions
	}
	if resolved.CurrentWindow <= 0 {
		details["current_window"] = resolved.CurrentWindow.String()
	}
	if resolved.BaselineWindow <= 0 {
		details["baseline_window"] = resolved.BaselineWindow.String()
	}
	if resolved.SentimentThreshold >= 0 {
		details["sentiment_threshold"] = resolved.SentimentThreshold
	}
	if resolved.VolumeThresholdPercent <= 0 {
		details["volume_threshold_percent"] = resolved.VolumeThresholdPercent
	}
	if len(details) > 0 {
		return MonitorOptions{}, apperrors.NewValidationError("invalid monitor options", details)
	}
	return resolved, nil
}

func (s *MonitorService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func crisisTypeFor(sentimentHit, volumeHit bool) domain.CrisisType {
	switch {
	case sentimentHit && volumeHit:
		return domain.CrisisTypeMixed
	case sentimentHit:
		return domain.CrisisTypeSentiment
	default:
		return domain.CrisisTypeVolume
	}
}

func titleFor(crisisType domain.CrisisType) string {
	switch crisisType {
	case domain.CrisisTypeSentiment:
		return "Negative sentiment shift"
	case domain.CrisisTypeVolume:
		return "Mention volume spike"
	default:
		return "Sentiment drop with volume spike"
	}
}

func buildSnapshot(m MonitorMetrics) domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		Score:               m.Score,
		SentimentCurrent:    m.Current.MeanSentiment,
		SentimentBaseline:   m.Baseline.MeanSentiment,
		SentimentDelta:      m.Sentiment.Details.Delta,
		VolumeCurrent:       m.Current.Count,
		VolumeBaseline:      m.Baseline.Count,
		VolumeChangePercent: m.Volume.Details.Change,
		NegativePercentage:  m.Current.NegativePercentage,
		InfluencerCount:     m.Current.InfluencerCount,
		TotalReach:          m.Current.TotalReach,
		SampleSize:          m.Current.Count + m.Baseline.Count,
		SentimentAnomaly:    m.Sentiment.IsAnomaly,
		VolumeAnomaly:       m.Volume.IsAnomaly,
	}
}
