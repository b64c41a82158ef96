package controller

import (
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	ListChats(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai-assistant/v3/chats")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.ListChats)
	h.Get(":id/messages", c.GetMessages)
	h.Delete(":id", c.DeleteChat)
}

func (c *chatController) ListChats(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.ListChats(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chats", res))
}

func (c *chatController) GetMessages(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}
	chatId, err := chatIdParam(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.GetMessages(ctx.UserContext(), userId, chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get chat messages", res))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	userId, err := userIdFromLocals(ctx)
	if err != nil {
		return err
	}
	chatId, err := chatIdParam(ctx)
	if err != nil {
		return err
	}

	if err := c.chatService.DeleteChat(ctx.UserContext(), userId, chatId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat", nil))
}

func userIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid user id")
	}
	return userId, nil
}

func chatIdParam(ctx *fiber.Ctx) (uint, error) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, serverutils.NewValidationError("invalid chat id")
	}
	return uint(id), nil
}
