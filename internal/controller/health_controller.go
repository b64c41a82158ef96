package controller

import (
	"ai-finance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	healthService service.IHealthService
}

func NewHealthController(healthService service.IHealthService) IHealthController {
	return &healthController{healthService: healthService}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := c.healthService.Check(ctx.UserContext())
	if res.Status != "ok" {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(res)
	}
	return ctx.JSON(res)
}
