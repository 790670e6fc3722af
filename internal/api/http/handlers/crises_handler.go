package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brandpulse/crisis-service/internal/api/dto"
	"github.com/brandpulse/crisis-service/internal/auth"
	"github.com/brandpulse/crisis-service/internal/domain"
	"github.com/brandpulse/crisis-service/internal/service"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// CrisesHandler manages crisis read and lifecycle endpoints.
type CrisesHandler struct {
	lifecycle *service.LifecycleService
}

// NewCrisesHandler constructs handler.
func NewCrisesHandler(lifecycle *service.LifecycleService) *CrisesHandler {
	return &CrisesHandler{lifecycle: lifecycle}
}

// GetCrisis GET /crises/:id.
func (h *CrisesHandler) GetCrisis(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	crisis, err := h.lifecycle.GetCrisis(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": crisisDetail(crisis)})
}

// GetTimeline GET /crises/:id/timeline.
func (h *CrisesHandler) GetTimeline(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	timeline, err := h.lifecycle.GetTimeline(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": timelineResponses(timeline)})
}

// UpdateStatus POST /crises/:id/status.
func (h *CrisesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	crisis, err := h.lifecycle.UpdateCrisisStatus(c.Context(), c.Params("id"), req.Status, principal.ID, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": crisisDetail(crisis)})
}

func crisisSummary(crisis *domain.Crisis) dto.CrisisSummary {
	return dto.CrisisSummary{
		ID:          crisis.ID,
		WorkspaceID: crisis.WorkspaceID,
		Title:       crisis.Title,
		Type:        crisis.Type,
		Severity:    crisis.Severity,
		Status:      crisis.Status,
		Score:       crisis.Score,
		DetectedAt:  crisis.DetectedAt,
		UpdatedAt:   crisis.UpdatedAt,
	}
}

func crisisDetail(crisis *domain.Crisis) dto.CrisisDetailResponse {
	return dto.CrisisDetailResponse{
		CrisisSummary:  crisisSummary(crisis),
		Snapshot:       crisis.Snapshot,
		AcknowledgedAt: crisis.AcknowledgedAt,
		ResolvedAt:     crisis.ResolvedAt,
		Timeline:       timelineResponses(crisis.Timeline),
	}
}

func timelineResponses(timeline []domain.TimelineEntry) []dto.TimelineEntryResponse {
	items := make([]dto.TimelineEntryResponse, 0, len(timeline))
	for _, entry := range timeline {
		items = append(items, dto.TimelineEntryResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return items
}
