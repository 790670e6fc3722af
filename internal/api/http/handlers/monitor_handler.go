package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/brandpulse/crisis-service/internal/api/dto"
	"github.com/brandpulse/crisis-service/internal/auth"
	"github.com/brandpulse/crisis-service/internal/repository"
	"github.com/brandpulse/crisis-service/internal/service"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// MonitorHandler exposes on-demand detection passes.
type MonitorHandler struct {
	monitor    *service.MonitorService
	workspaces repository.WorkspaceRepository
}

// NewMonitorHandler constructs handler.
func NewMonitorHandler(monitor *service.MonitorService, workspaces repository.WorkspaceRepository) *MonitorHandler {
	return &MonitorHandler{monitor: monitor, workspaces: workspaces}
}

// Run POST /workspaces/:id/monitor/run.
func (h *MonitorHandler) Run(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	workspaceID := c.Params("id")

	workspace, err := h.workspaces.GetByID(c.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("workspace", map[string]any{"workspace_id": workspaceID})
		}
		return apperrors.NewStoreUnavailable("workspace", err)
	}
	if !workspace.IsActive {
		return apperrors.NewValidationError("workspace is not active", map[string]any{"workspace_id": workspaceID})
	}

	opts, err := parseMonitorOptions(c)
	if err != nil {
		return err
	}

	result, err := h.monitor.MonitorForCrisis(c.Context(), workspaceID, opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": monitorRunResponse(result)})
}

func parseMonitorOptions(c *fiber.Ctx) (*service.MonitorOptions, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req dto.MonitorRunRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	return &service.MonitorOptions{
		MinMentions:            req.MinMentions,
		CurrentWindow:          time.Duration(req.CurrentWindowMinutes) * time.Minute,
		BaselineWindow:         time.Duration(req.BaselineWindowMinutes) * time.Minute,
		SentimentThreshold:     req.SentimentThreshold,
		VolumeThresholdPercent: req.VolumeThresholdPercent,
	}, nil
}

func monitorRunResponse(result *service.MonitorResult) dto.MonitorRunResponse {
	response := dto.MonitorRunResponse{
		CrisisDetected: result.CrisisDetected,
		Metrics: dto.MonitorMetrics{
			CurrentMentions:   result.Metrics.Current.Count,
			BaselineMentions:  result.Metrics.Baseline.Count,
			MeanSentiment:     result.Metrics.Current.MeanSentiment,
			BaselineSentiment: result.Metrics.Baseline.MeanSentiment,
			SentimentAnomaly:  result.Metrics.Sentiment.IsAnomaly,
			VolumeAnomaly:     result.Metrics.Volume.IsAnomaly,
			Score:             result.Metrics.Score,
		},
	}
	if result.Crisis != nil {
		summary := crisisSummary(result.Crisis)
		response.Crisis = &summary
	}
	return response
}
