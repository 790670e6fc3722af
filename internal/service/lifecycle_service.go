package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/events"
	"github.com/brandpulse/crisis-service/internal/observability"
	"github.com/brandpulse/crisis-service/internal/repository"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// Legal forward transitions. ACKNOWLEDGED and INVESTIGATING may skip
// straight to RESOLVED; everything else moves one step at a time.
var allowedTransitions = map[domain.CrisisStatus][]domain.CrisisStatus{
	domain.CrisisStatusDetected:      {domain.CrisisStatusAcknowledged},
	domain.CrisisStatusAcknowledged:  {domain.CrisisStatusInvestigating, domain.CrisisStatusResolved},
	domain.CrisisStatusInvestigating: {domain.CrisisStatusResolved},
	domain.CrisisStatusResolved:      {domain.CrisisStatusClosed},
	domain.CrisisStatusClosed:        {},
}

func isValidTransition(current, next domain.CrisisStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// LifecycleService applies operator status transitions to crises.
type LifecycleService struct {
	crises     repository.CrisisRepository
	timeline   repository.TimelineRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	CrisisRepo   repository.CrisisRepository
	TimelineRepo repository.TimelineRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleService{
		crises:     deps.CrisisRepo,
		timeline:   deps.TimelineRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// UpdateCrisisStatus validates and applies one status transition,
// appends the audit entry and stamps lifecycle timestamps. The status
// write is compare-and-set: of two concurrent conflicting transitions
// exactly one succeeds, the other gets a conflict.
func (s *LifecycleService) UpdateCrisisStatus(ctx context.Context, crisisID string, newStatus domain.CrisisStatus, actorID, note string) (*domain.Crisis, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, apperrors.NewValidationError("actor_id required", nil)
	}
	if _, known := allowedTransitions[newStatus]; !known {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(newStatus)})
	}

	crisis, err := s.crises.GetByID(ctx, crisisID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("crisis", map[string]any{"crisis_id": crisisID})
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	oldStatus := crisis.Status
	if !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(oldStatus), string(newStatus), map[string]any{
			"crisis_id": crisisID,
		})
	}

	now := s.now()
	crisis.Status = newStatus
	if newStatus == domain.CrisisStatusAcknowledged && crisis.AcknowledgedAt == nil {
		crisis.AcknowledgedAt = &now
	}
	if newStatus == domain.CrisisStatusResolved && crisis.ResolvedAt == nil {
		crisis.ResolvedAt = &now
	}

	if err := s.crises.UpdateStatus(ctx, crisis, oldStatus); err != nil {
		if err == repository.ErrStaleStatus {
			return nil, apperrors.NewConflict("crisis status changed concurrently", map[string]any{
				"crisis_id":        crisisID,
				"attempted_status": string(newStatus),
			})
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}

	entry := &domain.TimelineEntry{
		CrisisID:   crisis.ID,
		ActorID:    actorID,
		FromStatus: oldStatus,
		ToStatus:   newStatus,
		Note:       strings.TrimSpace(note),
	}
	if err := s.timeline.Append(ctx, entry); err != nil {
		return nil, apperrors.NewStoreUnavailable("timeline", err)
	}
	crisis.Timeline = append(crisis.Timeline, *entry)

	s.metrics.RecordTransition(string(newStatus))
	s.logger.Info("crisis status changed",
		zap.String("crisis_id", crisis.ID),
		zap.String("workspace_id", crisis.WorkspaceID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
		zap.String("actor_id", actorID))

	s.publishEvent(ctx, events.Event{
		Type:        events.EventCrisisStatusChanged,
		CrisisID:    crisis.ID,
		WorkspaceID: crisis.WorkspaceID,
		Payload: events.CrisisStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ActorID:   actorID,
			Note:      entry.Note,
		},
	})
	return crisis, nil
}

// GetCrisis returns a crisis with its full timeline.
func (s *LifecycleService) GetCrisis(ctx context.Context, crisisID string) (*domain.Crisis, error) {
	crisis, err := s.crises.GetByID(ctx, crisisID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("crisis", map[string]any{"crisis_id": crisisID})
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}
	timeline, err := s.timeline.ListByCrisis(ctx, crisisID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("timeline", err)
	}
	crisis.Timeline = timeline
	return crisis, nil
}

// GetTimeline returns the audit trail of a crisis in chronological
// order.
func (s *LifecycleService) GetTimeline(ctx context.Context, crisisID string) ([]domain.TimelineEntry, error) {
	if _, err := s.crises.GetByID(ctx, crisisID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("crisis", map[string]any{"crisis_id": crisisID})
		}
		return nil, apperrors.NewStoreUnavailable("crisis", err)
	}
	timeline, err := s.timeline.ListByCrisis(ctx, crisisID)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("timeline", err)
	}
	return timeline, nil
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
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
