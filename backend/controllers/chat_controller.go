package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/apperr"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/chat"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

// Sender is satisfied by *chat.Client.
type Sender interface {
	SendMessage(ctx context.Context, text string) (string, error)
}

type ChatController struct {
	Chat   Sender
	Logger *zap.Logger
}

func NewChatController(sender Sender, logger *zap.Logger) *ChatController {
	return &ChatController{Chat: sender, Logger: logger}
}

type ChatRequest struct {
	Message string `json:"message" validate:"max=4000"`
}

// SendMessage godoc
// @Summary Ask the mentor
// @Description Forwards one message to the language model. Upstream failures answer with a fallback reply
// @Tags chat
// @Accept json
// @Produce json
// @Param input body ChatRequest true "Message"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 503 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /chat [post]
func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	var input ChatRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return utils.ValidationError(c, errs)
	}

	reply, err := cc.Chat.SendMessage(c.UserContext(), input.Message)
	switch {
	case err == nil:
		return utils.Success(c, fiber.StatusOK, fiber.Map{"reply": reply, "fallback": false})
	case errors.Is(err, apperr.ErrUpstream):
		cc.Logger.Warn("chat fallback",
			zap.Uint("user_id", middleware.CurrentUserID(c)),
			zap.Error(err))
		return utils.Success(c, fiber.StatusOK, fiber.Map{"reply": chat.FallbackReply, "fallback": true})
	default:
		return utils.FromError(c, err)
	}
}
