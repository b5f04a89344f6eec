package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
)

type messageApplicationService interface {
	SendMessage(ctx context.Context, actorID int64, conversationID int64, content string) (*models.MessageDetail, error)
	MarkMessageRead(ctx context.Context, actorID int64, messageID int64) error
}

type MessageHandler struct {
	service messageApplicationService
}

type createMessageRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
}

func NewMessageHandler(service messageApplicationService) *MessageHandler {
	return &MessageHandler{service: service}
}

func (h *MessageHandler) CreateMessage(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.SendMessage(c.Context(), principalID, req.ConversationID, req.Content)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	if err := h.service.MarkMessageRead(c.Context(), principalID, messageID); err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}
