package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
)

type changeFeed interface {
	ConversationsChangedSince(ctx context.Context, principalID int64, since time.Time) ([]models.ConversationDetail, error)
	MessagesChangedSince(ctx context.Context, principalID int64, since time.Time) ([]models.MessageDetail, error)
	ExpertQueueChangedSince(ctx context.Context, expertID int64, since time.Time) (*models.ExpertQueue, error)
}

// UpdatesHandler serves the polling endpoints. Clients pass the timestamp
// they captured before their previous read; only entities modified strictly
// after it come back.
type UpdatesHandler struct {
	service changeFeed
}

func NewUpdatesHandler(service changeFeed) *UpdatesHandler {
	return &UpdatesHandler{service: service}
}

func (h *UpdatesHandler) Conversations(c *fiber.Ctx) error {
	principalID, ok := h.authorizedPrincipal(c, "userId")
	if !ok {
		return nil
	}

	conversations, err := h.service.ConversationsChangedSince(
		c.Context(), principalID, parseSince(c.Query("since")),
	)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *UpdatesHandler) Messages(c *fiber.Ctx) error {
	principalID, ok := h.authorizedPrincipal(c, "userId")
	if !ok {
		return nil
	}

	messages, err := h.service.MessagesChangedSince(
		c.Context(), principalID, parseSince(c.Query("since")),
	)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"messages": messages})
}

func (h *UpdatesHandler) ExpertQueue(c *fiber.Ctx) error {
	expertID, ok := h.authorizedPrincipal(c, "expertId")
	if !ok {
		return nil
	}

	queue, err := h.service.ExpertQueueChangedSince(
		c.Context(), expertID, parseSince(c.Query("since")),
	)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(queue)
}

// authorizedPrincipal requires the query principal to be the authenticated
// one; polling on someone else's behalf is forbidden. On failure the
// response is already written.
func (h *UpdatesHandler) authorizedPrincipal(c *fiber.Ctx, param string) (int64, bool) {
	principalID, err := currentPrincipalID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, false
	}

	requested, err := strconv.ParseInt(c.Query(param), 10, 64)
	if err != nil || requested != principalID {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, false
	}

	return principalID, true
}

// parseSince treats an absent or unparsable value as the beginning of time,
// returning everything visible to the principal.
func parseSince(raw string) time.Time {
	if raw == "" {
		return time.Unix(0, 0).UTC()
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return since.UTC()
}
