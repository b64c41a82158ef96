package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"ai-finance-assistant-be/internal/dto"
	"ai-finance-assistant-be/internal/pkg/logger"
	"ai-finance-assistant-be/internal/pkg/serverutils"
	"ai-finance-assistant-be/internal/service"
	internalWS "ai-finance-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.opentelemetry.io/otel/trace"
)

// streamTimeout bounds one streamed answer after the handler has returned.
const streamTimeout = 5 * time.Minute

type IAssistantController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Ask(ctx *fiber.Ctx) error
	AskWs(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistantService service.IAssistantService
	logger           logger.ILogger
}

func NewAssistantController(assistantService service.IAssistantService, log logger.ILogger) IAssistantController {
	return &assistantController{
		assistantService: assistantService,
		logger:           log,
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	// The websocket handshake authenticates itself; browsers cannot set headers.
	wsHandlers := append([]fiber.Handler{}, middlewares...)
	r.Get("/ai-assistant/v3/ws", append(wsHandlers, c.AskWs)...)

	postHandlers := append([]fiber.Handler{serverutils.JwtMiddleware}, middlewares...)
	r.Post("/ai-assistant/v3", append(postHandlers, c.Ask)...)
}

// Ask streams the answer as text/plain, terminated by the <END> sentinel.
func (c *assistantController) Ask(ctx *fiber.Ctx) error {
	userId := ctx.Locals("user_id").(string)

	var req dto.AssistantRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("invalid request body")
	}

	sess, err := c.assistantService.Prepare(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	// The fiber ctx is recycled once Ask returns; keep only the trace span.
	span := trace.SpanFromContext(ctx.UserContext())

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Accel-Buffering", "no")
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithTimeout(trace.ContextWithSpan(context.Background(), span), streamTimeout)
		defer cancel()

		out := func(chunk string) error {
			if _, err := w.WriteString(chunk); err != nil {
				return err
			}
			return w.Flush()
		}
		_, _ = c.assistantService.Stream(streamCtx, sess, out)
	})
	return nil
}

// AskWs serves the same exchange over a websocket. Each inbound frame is an
// AssistantRequest; each chunk goes out as a text frame, the sentinel last.
func (c *assistantController) AskWs(ctx *fiber.Ctx) error {
	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token (query 'token' or header 'Authorization')")
	}

	userId, err := serverutils.ParseUserToken(tokenStr)
	if err != nil {
		return err
	}
	ctx.Locals("user_id", userId)

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("ASSISTANT", "WebSocket session started", map[string]interface{}{"user_id": userId})
		internalWS.Serve(conn, userId, c.serveFrame, c.logger)
		c.logger.Info("ASSISTANT", "WebSocket session ended", map[string]interface{}{"user_id": userId})
	})(ctx)
}

func (c *assistantController) serveFrame(ctx context.Context, client *internalWS.Client, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	var req dto.AssistantRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		writeErrorFrame(client, serverutils.NewValidationError("invalid request body"))
		return
	}

	sess, err := c.assistantService.Prepare(ctx, client.UserID, &req)
	if err != nil {
		writeErrorFrame(client, err)
		return
	}
	_, _ = c.assistantService.Stream(ctx, sess, client.Write)
}

func writeErrorFrame(client *internalWS.Client, err error) {
	code, message := serverutils.StatusFromError(err)
	frame, _ := json.Marshal(serverutils.ErrorResponse(code, message))
	_ = client.Write(string(frame))
}
