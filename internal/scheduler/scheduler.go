package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/brandpulse/crisis-service/internal/config"
	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/service"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// WorkspaceLister provides the set of workspaces to poll.
type WorkspaceLister interface {
	ListActive(ctx context.Context) ([]domain.Workspace, error)
}

// Monitor runs one detection pass for a workspace.
type Monitor interface {
	MonitorForCrisis(ctx context.Context, workspaceID string, opts *service.MonitorOptions) (*service.MonitorResult, error)
}

// Scheduler polls every active workspace for crises on a fixed
// interval, fanning passes out over a bounded worker pool.
type Scheduler struct {
	cron        *cron.Cron
	workspaces  WorkspaceLister
	monitor     Monitor
	logger      *zap.Logger
	interval    time.Duration
	taskTimeout time.Duration
	semaphore   chan struct{}
}

// New constructs a scheduler from monitor configuration.
func New(cfg config.MonitorConfig, workspaces WorkspaceLister, monitor Monitor, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.MaxConcurrentTenants
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Scheduler{
		cron:        cron.New(),
		workspaces:  workspaces,
		monitor:     monitor,
		logger:      logger,
		interval:    cfg.PollInterval(),
		taskTimeout: cfg.TaskTimeout(),
		semaphore:   make(chan struct{}, concurrency),
	}
}

// Start registers the polling job and begins ticking. The job runs in
// the cron goroutine; Start returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register monitor job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("monitor scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("max_concurrent", cap(s.semaphore)))
	return nil
}

// Stop halts the ticker and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("monitor scheduler stopped")
}

// RunOnce executes one full polling sweep across active workspaces.
func (s *Scheduler) RunOnce(ctx context.Context) {
	workspaces, err := s.workspaces.ListActive(ctx)
	if err != nil {
		s.logger.Error("listing active workspaces failed", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, workspace := range workspaces {
		select {
		case s.semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return
		}
		wg.Add(1)
		go func(ws domain.Workspace) {
			defer wg.Done()
			defer func() { <-s.semaphore }()
			s.runWorkspace(ctx, ws)
		}(workspace)
	}
	wg.Wait()
}

func (s *Scheduler) runWorkspace(ctx context.Context, workspace domain.Workspace) {
	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()

	result, err := s.monitor.MonitorForCrisis(taskCtx, workspace.ID, nil)
	if err != nil {
		// Another poller already holds this workspace; not a failure.
		if apperrors.HasCode(err, "CONFLICT") {
			s.logger.Debug("workspace pass skipped", zap.String("workspace_id", workspace.ID))
			return
		}
		s.logger.Error("workspace monitor pass failed",
			zap.String("workspace_id", workspace.ID),
			zap.Error(err))
		return
	}

	if result.CrisisDetected {
		s.logger.Info("scheduled pass detected crisis",
			zap.String("workspace_id", workspace.ID),
			zap.String("crisis_id", result.Crisis.ID),
			zap.String("severity", string(result.Crisis.Severity)))
	}
}
