package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/services"
)

type conversationApplicationService interface {
	ListConversations(ctx context.Context, principalID int64) ([]models.ConversationDetail, error)
	CreateConversation(ctx context.Context, initiatorID int64, title string) (*models.Conversation, error)
	GetConversation(ctx context.Context, principalID int64, conversationID int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, actorID int64, conversationID int64, page int, limit int) ([]models.MessageDetail, int, error)
}

type ConversationHandler struct {
	service conversationApplicationService
}

type createConversationRequest struct {
	Title string `json:"title"`
}

func NewConversationHandler(service conversationApplicationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) ListConversations(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), principalID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.CreateConversation(c.Context(), principalID, req.Title)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.GetConversation(c.Context(), principalID, conversationID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), principalID, conversationID, page, limit)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

// mapDomainError translates service sentinels into transport responses.
// AlreadyAssigned keeps the original API's 422.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	case errors.Is(err, services.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	case errors.Is(err, services.ErrAlreadyAssigned):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Conversation is already assigned"})
	case errors.Is(err, services.ErrNotAssigned):
		return c.Status(fiber.StatusForbidden).
			JSON(fiber.Map{"error": "You are not assigned to this conversation"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
