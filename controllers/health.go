package controllers

import (
	"studioops_go/services"

	"github.com/gofiber/fiber/v2"
)

// HealthController exposes the dependency health report.
type HealthController struct {
	service *services.HealthService
}

func NewHealthController(service *services.HealthService) *HealthController {
	if service == nil {
		service = services.NewHealthService("", "")
	}
	return &HealthController{service: service}
}

// GetHealthStatus - GET /health
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	report := hc.service.GetHealthReport(c.UserContext())
	return c.Status(hc.service.HTTPStatusForOverall(report.Status)).JSON(report)
}
