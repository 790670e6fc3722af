package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/events"
	"github.com/brandpulse/crisis-service/internal/repository"
)

type fakeMentionRepo struct {
	mentions []domain.Mention
	err      error
}

func (f *fakeMentionRepo) ListWindow(_ context.Context, workspaceID string, from, to time.Time) ([]domain.Mention, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []domain.Mention
	for _, m := range f.mentions {
		if m.WorkspaceID != workspaceID {
			continue
		}
		if !m.PublishedAt.Before(from) && m.PublishedAt.Before(to) {
			result = append(result, m)
		}
	}
	return result, nil
}

type fakeCrisisRepo struct {
	mu        sync.Mutex
	crises    map[string]*domain.Crisis
	nextID    int
	createErr error
	updateErr error
	listErr   error
}

func newFakeCrisisRepo() *fakeCrisisRepo {
	return &fakeCrisisRepo{crises: make(map[string]*domain.Crisis)}
}

func (f *fakeCrisisRepo) Create(_ context.Context, crisis *domain.Crisis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.crises {
		if existing.WorkspaceID == crisis.WorkspaceID && existing.Type == crisis.Type && existing.Status.IsOpen() {
			return repository.ErrDuplicateOpenCrisis
		}
	}
	f.nextID++
	crisis.ID = fmt.Sprintf("crisis-%d", f.nextID)
	crisis.CreatedAt = time.Now()
	crisis.UpdatedAt = crisis.CreatedAt
	stored := *crisis
	f.crises[crisis.ID] = &stored
	return nil
}

func (f *fakeCrisisRepo) GetByID(_ context.Context, id string) (*domain.Crisis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.crises[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	view := *stored
	return &view, nil
}

func (f *fakeCrisisRepo) FindOpenByType(_ context.Context, workspaceID string, crisisType domain.CrisisType) (*domain.Crisis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stored := range f.crises {
		if stored.WorkspaceID == workspaceID && stored.Type == crisisType && stored.Status.IsOpen() {
			view := *stored
			return &view, nil
		}
	}
	return nil, nil
}

func (f *fakeCrisisRepo) UpdateStatus(_ context.Context, crisis *domain.Crisis, expectedStatus domain.CrisisStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.crises[crisis.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStaleStatus
	}
	stored.Status = crisis.Status
	stored.AcknowledgedAt = crisis.AcknowledgedAt
	stored.ResolvedAt = crisis.ResolvedAt
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCrisisRepo) RefreshDetection(_ context.Context, crisis *domain.Crisis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.crises[crisis.ID]
	if !ok || !stored.Status.IsOpen() {
		return repository.ErrStaleStatus
	}
	stored.Severity = crisis.Severity
	stored.Score = crisis.Score
	stored.Snapshot = crisis.Snapshot
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeCrisisRepo) ListWithFilter(_ context.Context, filter repository.CrisisFilter) ([]domain.Crisis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []domain.Crisis
	for _, stored := range f.crises {
		if filter.WorkspaceID != "" && stored.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.Status) {
			continue
		}
		result = append(result, *stored)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DetectedAt.After(result[j].DetectedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func containsStatus(statuses []domain.CrisisStatus, status domain.CrisisStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeCrisisRepo) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, stored := range f.crises {
		if stored.Status.IsOpen() {
			count++
		}
	}
	return count
}

type fakeTimelineRepo struct {
	mu        sync.Mutex
	entries   []domain.TimelineEntry
	appendErr error
}

func (f *fakeTimelineRepo) Append(_ context.Context, entry *domain.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	entry.ID = fmt.Sprintf("entry-%d", len(f.entries)+1)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeTimelineRepo) ListByCrisis(_ context.Context, crisisID string) ([]domain.TimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TimelineEntry
	for _, entry := range f.entries {
		if entry.CrisisID == crisisID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeLocker struct {
	held     bool
	acquires int
	releases int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (bool, func(context.Context), error) {
	f.acquires++
	if f.held {
		return false, func(context.Context) {}, nil
	}
	return true, func(context.Context) { f.releases++ }, nil
}

// eventRecorder captures every event published through a dispatcher.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) attach(dispatcher events.Dispatcher) {
	handler := func(_ context.Context, event events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, event)
		return nil
	}
	dispatcher.Subscribe(events.EventCrisisDetected, handler)
	dispatcher.Subscribe(events.EventCrisisEscalated, handler)
	dispatcher.Subscribe(events.EventCrisisStatusChanged, handler)
}

func (r *eventRecorder) byType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []events.Event
	for _, event := range r.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
