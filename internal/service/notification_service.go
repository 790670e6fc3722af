package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/brandpulse/crisis-service/internal/events"
)

// NotificationService forwards crisis events to operator channels.
// With no webhook configured it only logs, which is enough for
// development environments.
type NotificationService struct {
	webhookURL string
	client     *resty.Client
	logger     *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(webhookURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		webhookURL: webhookURL,
		client:     resty.New().SetTimeout(10 * time.Second),
		logger:     logger,
	}
}

// Register subscribes the service to all crisis events.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventCrisisDetected, s.handleEvent)
	dispatcher.Subscribe(events.EventCrisisEscalated, s.handleEvent)
	dispatcher.Subscribe(events.EventCrisisStatusChanged, s.handleEvent)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info("crisis event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("crisis_id", event.CrisisID),
		zap.String("workspace_id", event.WorkspaceID),
	)

	if s.webhookURL == "" {
		return nil
	}
	if err := s.postWebhook(ctx, event); err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *NotificationService) postWebhook(ctx context.Context, event events.Event) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(s.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}
