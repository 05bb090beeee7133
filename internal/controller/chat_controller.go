package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"

	"docchat-be/internal/dto"
	"docchat-be/internal/pkg/logger"
	"docchat-be/internal/pkg/serverutils"
	"docchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Send(ctx *fiber.Ctx) error
	SendStream(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	logger  logger.ILogger
}

func NewChatController(service service.IChatService, logger logger.ILogger) IChatController {
	return &chatController{service: service, logger: logger}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("send", c.Send)
	h.Post("stream", c.SendStream)
	h.Get("stats", c.Stats)
	h.Get(":conversationId/history", c.History)
	h.Delete(":conversationId", c.DeleteConversation)
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

// SendStream answers over SSE: each frame is "data: <json>\n\n" carrying a
// StreamEvent. Deltas arrive as they are generated, citations and done follow
// once the answer is complete.
func (c *chatController) SendStream(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The handler returns before the stream runs, so everything the writer
	// needs is captured here. The request context doubles as cancellation
	// signal when the client disconnects.
	reqCtx := ctx.Context()

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		emit := func(event dto.StreamEvent) error {
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := w.WriteString("data: "); err != nil {
				return err
			}
			if _, err := w.Write(payload); err != nil {
				return err
			}
			if _, err := w.WriteString("\n\n"); err != nil {
				return err
			}
			return w.Flush()
		}

		if err := c.service.SendStream(reqCtx, &req, emit); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("chat", "stream failed", map[string]interface{}{
				"error": err.Error(),
			})
			_ = emit(dto.StreamEvent{Type: "error", Error: "failed to generate answer"})
		}
	}))

	return nil
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	conversationId, err := uuid.Parse(ctx.Params("conversationId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	res, err := c.service.History(ctx.Context(), conversationId)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "conversation not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get conversation history", res))
}

func (c *chatController) DeleteConversation(ctx *fiber.Ctx) error {
	conversationId, err := uuid.Parse(ctx.Params("conversationId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid conversation id")
	}

	if err := c.service.DeleteConversation(ctx.Context(), conversationId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conversation", nil))
}

func (c *chatController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat stats", res))
}
