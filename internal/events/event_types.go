package events

import (
	"time"

	"github.com/brandpulse/crisis-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCrisisDetected      EventType = "crisis_detected"
	EventCrisisStatusChanged EventType = "crisis_status_changed"
	EventCrisisEscalated     EventType = "crisis_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	CrisisID    string      `json:"crisis_id"`
	WorkspaceID string      `json:"workspace_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// CrisisDetectedPayload describes a newly persisted crisis.
type CrisisDetectedPayload struct {
	Type     domain.CrisisType     `json:"type"`
	Severity domain.CrisisSeverity `json:"severity"`
	Score    float64               `json:"crisis_score"`
	Title    string                `json:"title"`
}

// CrisisStatusChangedPayload describes a lifecycle transition.
type CrisisStatusChangedPayload struct {
	OldStatus domain.CrisisStatus `json:"old_status"`
	NewStatus domain.CrisisStatus `json:"new_status"`
	ActorID   string              `json:"actor_id"`
	Note      string              `json:"note,omitempty"`
}

// CrisisEscalatedPayload describes an upward severity move on an
// already-open crisis.
type CrisisEscalatedPayload struct {
	Type        domain.CrisisType     `json:"type"`
	OldSeverity domain.CrisisSeverity `json:"old_severity"`
	NewSeverity domain.CrisisSeverity `json:"new_severity"`
	Score       float64               `json:"crisis_score"`
}
