package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/services"
	"github.com/jackc/pgx/v5"
)

type assignmentCoordinator interface {
	Claim(ctx context.Context, conversationID int64, expertID int64) (*services.AssignmentResult, error)
	Unclaim(ctx context.Context, conversationID int64, expertID int64) (*services.AssignmentResult, error)
	History(ctx context.Context, expertID int64) ([]models.ExpertAssignment, error)
}

type queueView interface {
	Queue(ctx context.Context, expertID int64) (*models.ExpertQueue, error)
}

type expertProfileStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.ExpertProfile, error)
	Update(ctx context.Context, userID int64, input repository.ExpertProfileUpdateInput) (*models.ExpertProfile, error)
}

type ExpertHandler struct {
	assignments assignmentCoordinator
	queue       queueView
	profileRepo expertProfileStore
}

func NewExpertHandler(
	assignments assignmentCoordinator,
	queue queueView,
	profileRepo expertProfileStore,
) *ExpertHandler {
	return &ExpertHandler{
		assignments: assignments,
		queue:       queue,
		profileRepo: profileRepo,
	}
}

func (h *ExpertHandler) GetQueue(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	queue, err := h.queue.Queue(c.Context(), expertID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(queue)
}

func (h *ExpertHandler) Claim(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	result, err := h.assignments.Claim(c.Context(), conversationID, expertID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"conversation": result.Conversation,
		"assignment":   result.Assignment,
	})
}

func (h *ExpertHandler) Unclaim(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("conversation_id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	result, err := h.assignments.Unclaim(c.Context(), conversationID, expertID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"conversation": result.Conversation,
		"assignment":   result.Assignment,
	})
}

func (h *ExpertHandler) AssignmentHistory(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	assignments, err := h.assignments.History(c.Context(), expertID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"assignments": assignments})
}

func (h *ExpertHandler) GetProfile(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.profileRepo.GetByUserID(c.Context(), expertID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Expert profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

type updateProfileRequest struct {
	Bio                *string   `json:"bio"`
	KnowledgeBaseLinks *[]string `json:"knowledge_base_links"`
}

func (h *ExpertHandler) UpdateProfile(c *fiber.Ctx) error {
	expertID, err := currentPrincipalID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.profileRepo.Update(c.Context(), expertID, repository.ExpertProfileUpdateInput{
		Bio:                req.Bio,
		KnowledgeBaseLinks: req.KnowledgeBaseLinks,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Expert profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}
