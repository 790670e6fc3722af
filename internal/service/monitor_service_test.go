package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/crisis-service/internal/config"
	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/events"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

const testWorkspace = "ws-1"

var monitorTestTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		MinMentions:            10,
		CurrentWindowMinutes:   60,
		BaselineWindowMinutes:  1440,
		SentimentThreshold:     -0.3,
		VolumeThresholdPercent: 200,
	}
}

func newMonitorTestService(mentions *fakeMentionRepo, crises *fakeCrisisRepo, locker *fakeLocker) (*MonitorService, *eventRecorder) {
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	recorder.attach(dispatcher)

	svc := NewMonitorService(testMonitorConfig(), MonitorDependencies{
		MentionRepo: mentions,
		CrisisRepo:  crises,
		Locks:       locker,
		Dispatcher:  dispatcher,
	})
	svc.now = func() time.Time { return monitorTestTime }
	return svc, recorder
}

func genMentions(workspaceID string, n int, sentiment domain.Sentiment, publishedAt time.Time, influencers int) []domain.Mention {
	mentions := make([]domain.Mention, 0, n)
	for i := 0; i < n; i++ {
		mentions = append(mentions, domain.Mention{
			ID:           fmt.Sprintf("%s-%s-%d", workspaceID, sentiment, i),
			WorkspaceID:  workspaceID,
			Platform:     "twitter",
			Sentiment:    sentiment,
			Reach:        1000,
			IsInfluencer: i < influencers,
			PublishedAt:  publishedAt,
		})
	}
	return mentions
}

// Anomalous current window against a calm baseline: 35 of 40 current
// mentions negative with influencer involvement, baseline mostly
// positive.
func sentimentCrisisMentions() []domain.Mention {
	current := monitorTestTime.Add(-30 * time.Minute)
	baseline := monitorTestTime.Add(-12 * time.Hour)

	var mentions []domain.Mention
	mentions = append(mentions, genMentions(testWorkspace, 35, domain.SentimentNegative, current, 5)...)
	mentions = append(mentions, genMentions(testWorkspace, 5, domain.SentimentNeutral, current, 0)...)
	mentions = append(mentions, genMentions(testWorkspace, 60, domain.SentimentPositive, baseline, 0)...)
	mentions = append(mentions, genMentions(testWorkspace, 40, domain.SentimentNeutral, baseline, 0)...)
	return mentions
}

func TestMonitorForCrisisDetectsSentimentCrisis(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, recorder := newMonitorTestService(mentions, crises, &fakeLocker{})

	result, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	require.True(t, result.CrisisDetected)
	require.NotNil(t, result.Crisis)
	assert.Equal(t, domain.CrisisTypeSentiment, result.Crisis.Type)
	assert.Equal(t, domain.CrisisStatusDetected, result.Crisis.Status)
	assert.Equal(t, domain.SeverityHigh, result.Crisis.Severity)
	assert.Greater(t, result.Crisis.Score, 50.0)
	assert.Equal(t, monitorTestTime, result.Crisis.DetectedAt)
	assert.NotEmpty(t, result.Crisis.ID)

	assert.InDelta(t, -0.875, result.Metrics.Current.MeanSentiment, 1e-9)
	assert.True(t, result.Metrics.Sentiment.IsAnomaly)
	assert.False(t, result.Metrics.Volume.IsAnomaly)

	snapshot := result.Crisis.Snapshot
	assert.Equal(t, 40, snapshot.VolumeCurrent)
	assert.Equal(t, 100, snapshot.VolumeBaseline)
	assert.Equal(t, 5, snapshot.InfluencerCount)
	assert.True(t, snapshot.SentimentAnomaly)
	assert.Equal(t, result.Crisis.Score, snapshot.Score)

	detected := recorder.byType(events.EventCrisisDetected)
	require.Len(t, detected, 1)
	assert.Equal(t, result.Crisis.ID, detected[0].CrisisID)
	assert.Equal(t, testWorkspace, detected[0].WorkspaceID)
}

func TestMonitorForCrisisDetectsVolumeCrisis(t *testing.T) {
	current := monitorTestTime.Add(-10 * time.Minute)
	baseline := monitorTestTime.Add(-6 * time.Hour)

	var data []domain.Mention
	data = append(data, genMentions(testWorkspace, 120, domain.SentimentNegative, current, 10)...)
	data = append(data, genMentions(testWorkspace, 480, domain.SentimentNeutral, current, 0)...)
	data = append(data, genMentions(testWorkspace, 100, domain.SentimentNeutral, baseline, 0)...)

	mentions := &fakeMentionRepo{mentions: data}
	crises := newFakeCrisisRepo()
	svc, _ := newMonitorTestService(mentions, crises, &fakeLocker{})

	result, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	require.True(t, result.CrisisDetected)
	assert.Equal(t, domain.CrisisTypeVolume, result.Crisis.Type)
	assert.Equal(t, domain.SeverityMedium, result.Crisis.Severity)
	assert.False(t, result.Metrics.Sentiment.IsAnomaly)
	assert.True(t, result.Metrics.Volume.IsAnomaly)
	assert.InDelta(t, 500, result.Metrics.Volume.Details.Change, 1e-9)
}

func TestMonitorForCrisisNormalStreamWritesNothing(t *testing.T) {
	current := monitorTestTime.Add(-20 * time.Minute)
	baseline := monitorTestTime.Add(-8 * time.Hour)

	var data []domain.Mention
	data = append(data, genMentions(testWorkspace, 30, domain.SentimentPositive, current, 0)...)
	data = append(data, genMentions(testWorkspace, 20, domain.SentimentNeutral, current, 0)...)
	data = append(data, genMentions(testWorkspace, 40, domain.SentimentPositive, baseline, 0)...)
	data = append(data, genMentions(testWorkspace, 40, domain.SentimentNeutral, baseline, 0)...)

	mentions := &fakeMentionRepo{mentions: data}
	crises := newFakeCrisisRepo()
	svc, recorder := newMonitorTestService(mentions, crises, &fakeLocker{})

	result, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	assert.False(t, result.CrisisDetected)
	assert.False(t, result.Metrics.Sentiment.IsAnomaly)
	assert.False(t, result.Metrics.Volume.IsAnomaly)
	assert.Nil(t, result.Crisis)
	assert.Equal(t, 0, crises.openCount())
	assert.Empty(t, recorder.events)
}

// Extreme sentiment over a handful of mentions must stay quiet: below
// the minimum sample size the detectors never run.
func TestMonitorForCrisisInsufficientMentions(t *testing.T) {
	current := monitorTestTime.Add(-5 * time.Minute)
	baseline := monitorTestTime.Add(-3 * time.Hour)

	var data []domain.Mention
	data = append(data, genMentions(testWorkspace, 4, domain.SentimentNegative, current, 4)...)
	data = append(data, genMentions(testWorkspace, 3, domain.SentimentPositive, baseline, 0)...)

	mentions := &fakeMentionRepo{mentions: data}
	crises := newFakeCrisisRepo()
	svc, _ := newMonitorTestService(mentions, crises, &fakeLocker{})

	result, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	assert.False(t, result.CrisisDetected)
	assert.False(t, result.Metrics.Sentiment.IsAnomaly)
	assert.Equal(t, 4, result.Metrics.Current.Count)
	assert.Equal(t, 0, crises.openCount())
}

// Running the same anomalous pass twice must not open a second crisis.
func TestMonitorForCrisisIdempotent(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, recorder := newMonitorTestService(mentions, crises, &fakeLocker{})

	first, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)
	second, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	require.True(t, first.CrisisDetected)
	require.True(t, second.CrisisDetected)
	assert.Equal(t, first.Crisis.ID, second.Crisis.ID)
	assert.Equal(t, 1, crises.openCount())
	assert.Len(t, recorder.byType(events.EventCrisisDetected), 1)
	assert.Empty(t, recorder.byType(events.EventCrisisEscalated))
}

// A re-detection with worse numbers raises severity on the open crisis
// instead of opening a new one.
func TestMonitorForCrisisEscalatesOpenCrisis(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, recorder := newMonitorTestService(mentions, crises, &fakeLocker{})

	first, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)
	require.Equal(t, domain.SeverityHigh, first.Crisis.Severity)

	current := monitorTestTime.Add(-15 * time.Minute)
	baseline := monitorTestTime.Add(-10 * time.Hour)
	var worse []domain.Mention
	worse = append(worse, genMentions(testWorkspace, 100, domain.SentimentNegative, current, 20)...)
	worse = append(worse, genMentions(testWorkspace, 100, domain.SentimentPositive, baseline, 0)...)
	mentions.mentions = worse

	second, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Crisis.ID, second.Crisis.ID)
	assert.Equal(t, domain.SeverityCritical, second.Crisis.Severity)
	assert.Equal(t, 1, crises.openCount())

	stored, err := crises.GetByID(context.Background(), first.Crisis.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityCritical, stored.Severity)
	assert.Equal(t, second.Crisis.Score, stored.Score)

	escalated := recorder.byType(events.EventCrisisEscalated)
	require.Len(t, escalated, 1)
	payload, ok := escalated[0].Payload.(events.CrisisEscalatedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.SeverityHigh, payload.OldSeverity)
	assert.Equal(t, domain.SeverityCritical, payload.NewSeverity)
}

// A refresh never lowers severity even when the latest pass is milder.
func TestMonitorForCrisisNeverDowngradesSeverity(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, recorder := newMonitorTestService(mentions, crises, &fakeLocker{})

	first, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)
	require.Equal(t, domain.SeverityHigh, first.Crisis.Severity)

	// Milder follow-up: fewer negatives, no influencers.
	current := monitorTestTime.Add(-15 * time.Minute)
	baseline := monitorTestTime.Add(-10 * time.Hour)
	var milder []domain.Mention
	milder = append(milder, genMentions(testWorkspace, 20, domain.SentimentNegative, current, 0)...)
	milder = append(milder, genMentions(testWorkspace, 20, domain.SentimentNeutral, current, 0)...)
	milder = append(milder, genMentions(testWorkspace, 60, domain.SentimentPositive, baseline, 0)...)
	mentions.mentions = milder

	second, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)

	require.True(t, second.CrisisDetected)
	assert.Equal(t, domain.SeverityHigh, second.Crisis.Severity)
	assert.Empty(t, recorder.byType(events.EventCrisisEscalated))
}

func TestMonitorForCrisisLockContention(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, _ := newMonitorTestService(mentions, crises, &fakeLocker{held: true})

	_, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "CONFLICT"))
	assert.Equal(t, 0, crises.openCount())
}

func TestMonitorForCrisisMentionStoreDown(t *testing.T) {
	mentions := &fakeMentionRepo{err: errors.New("connection refused")}
	crises := newFakeCrisisRepo()
	svc, _ := newMonitorTestService(mentions, crises, &fakeLocker{})

	_, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "STORE_UNAVAILABLE"))
}

func TestMonitorForCrisisRejectsInvalidOptions(t *testing.T) {
	svc, _ := newMonitorTestService(&fakeMentionRepo{}, newFakeCrisisRepo(), &fakeLocker{})

	_, err := svc.MonitorForCrisis(context.Background(), testWorkspace, &MonitorOptions{SentimentThreshold: 0.5})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestMonitorForCrisisCancelledContext(t *testing.T) {
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	crises := newFakeCrisisRepo()
	svc, _ := newMonitorTestService(mentions, crises, &fakeLocker{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.MonitorForCrisis(ctx, testWorkspace, nil)
	require.Error(t, err)
	assert.Equal(t, 0, crises.openCount())
}

func TestMonitorForCrisisReleasesLock(t *testing.T) {
	locker := &fakeLocker{}
	mentions := &fakeMentionRepo{mentions: sentimentCrisisMentions()}
	svc, _ := newMonitorTestService(mentions, newFakeCrisisRepo(), locker)

	_, err := svc.MonitorForCrisis(context.Background(), testWorkspace, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquires)
	assert.Equal(t, 1, locker.releases)
}
