package controller

import (
	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IExampleController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
}

type exampleController struct {
	exampleService service.IExampleService
}

func NewExampleController(exampleService service.IExampleService) IExampleController {
	return &exampleController{
		exampleService: exampleService,
	}
}

func (c *exampleController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai-assistant/examples")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.List)
}

func (c *exampleController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateQueryExampleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("invalid request body")
	}

	res, err := c.exampleService.CreateExample(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create query example", res))
}

func (c *exampleController) List(ctx *fiber.Ctx) error {
	res, err := c.exampleService.ListExamples(ctx.UserContext(), ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get query examples", res))
}
