package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandpulse/crisis-service/internal/config"
	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/service"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

type fakeLister struct {
	workspaces []domain.Workspace
	err        error
}

func (f *fakeLister) ListActive(context.Context) ([]domain.Workspace, error) {
	return f.workspaces, f.err
}

type fakeMonitor struct {
	mu      sync.Mutex
	seen    []string
	inUse   int
	maxSeen int
	errFor  map[string]error
}

func (f *fakeMonitor) MonitorForCrisis(_ context.Context, workspaceID string, _ *service.MonitorOptions) (*service.MonitorResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, workspaceID)
	f.inUse++
	if f.inUse > f.maxSeen {
		f.maxSeen = f.inUse
	}
	err := f.errFor[workspaceID]
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.inUse--
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &service.MonitorResult{}, nil
}

func testWorkspaces(ids ...string) []domain.Workspace {
	result := make([]domain.Workspace, 0, len(ids))
	for _, id := range ids {
		result = append(result, domain.Workspace{ID: id, IsActive: true})
	}
	return result
}

func TestRunOncePollsEveryActiveWorkspace(t *testing.T) {
	monitor := &fakeMonitor{}
	s := New(config.MonitorConfig{MaxConcurrentTenants: 4},
		&fakeLister{workspaces: testWorkspaces("ws-1", "ws-2", "ws-3")}, monitor, nil)

	s.RunOnce(context.Background())

	assert.ElementsMatch(t, []string{"ws-1", "ws-2", "ws-3"}, monitor.seen)
}

func TestRunOnceBoundsConcurrency(t *testing.T) {
	monitor := &fakeMonitor{}
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	s := New(config.MonitorConfig{MaxConcurrentTenants: 2},
		&fakeLister{workspaces: testWorkspaces(ids...)}, monitor, nil)

	s.RunOnce(context.Background())

	require.Len(t, monitor.seen, 10)
	assert.LessOrEqual(t, monitor.maxSeen, 2)
}

func TestRunOnceTreatsConflictAsSkip(t *testing.T) {
	monitor := &fakeMonitor{errFor: map[string]error{
		"ws-2": apperrors.NewConflict("monitor pass already running for workspace", nil),
		"ws-3": errors.New("boom"),
	}}
	s := New(config.MonitorConfig{MaxConcurrentTenants: 4},
		&fakeLister{workspaces: testWorkspaces("ws-1", "ws-2", "ws-3")}, monitor, nil)

	// Errors on individual workspaces must not abort the sweep.
	s.RunOnce(context.Background())

	assert.ElementsMatch(t, []string{"ws-1", "ws-2", "ws-3"}, monitor.seen)
}

func TestRunOnceListFailure(t *testing.T) {
	monitor := &fakeMonitor{}
	s := New(config.MonitorConfig{}, &fakeLister{err: errors.New("down")}, monitor, nil)

	s.RunOnce(context.Background())

	assert.Empty(t, monitor.seen)
}
