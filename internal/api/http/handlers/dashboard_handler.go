package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/brandpulse/crisis-service/internal/api/dto"
	"github.com/brandpulse/crisis-service/internal/auth"
	"github.com/brandpulse/crisis-service/internal/service"
	apperrors "github.com/brandpulse/crisis-service/pkg/util"
)

// DashboardHandler serves the per-workspace crisis dashboard.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GetDashboard GET /workspaces/:id/dashboard.
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}

	dashboard, err := h.dashboard.GetCrisisDashboard(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	active := make([]dto.CrisisSummary, 0, len(dashboard.ActiveCrises))
	for i := range dashboard.ActiveCrises {
		active = append(active, crisisSummary(&dashboard.ActiveCrises[i]))
	}

	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		ActiveCrises: active,
		Statistics:   dashboard.Statistics,
		Trends: dto.DashboardTrendsResponse{
			MeanTimeToAcknowledgeSeconds: dashboard.Trends.MeanTimeToAcknowledge.Seconds(),
			MeanTimeToResolveSeconds:     dashboard.Trends.MeanTimeToResolve.Seconds(),
			DailyCounts:                  dashboard.Trends.DailyCounts,
		},
	}})
}
