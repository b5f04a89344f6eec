package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/services"
	"github.com/jackc/pgx/v5"
)

type stubAssignmentCoordinator struct {
	claimResult        *services.AssignmentResult
	claimErr           error
	unclaimResult      *services.AssignmentResult
	unclaimErr         error
	historyResult      []models.ExpertAssignment
	historyErr         error
	lastConversationID int64
	lastExpertID       int64
}

func (s *stubAssignmentCoordinator) Claim(
	_ context.Context,
	conversationID int64,
	expertID int64,
) (*services.AssignmentResult, error) {
	s.lastConversationID = conversationID
	s.lastExpertID = expertID
	return s.claimResult, s.claimErr
}

func (s *stubAssignmentCoordinator) Unclaim(
	_ context.Context,
	conversationID int64,
	expertID int64,
) (*services.AssignmentResult, error) {
	s.lastConversationID = conversationID
	s.lastExpertID = expertID
	return s.unclaimResult, s.unclaimErr
}

func (s *stubAssignmentCoordinator) History(
	_ context.Context,
	expertID int64,
) ([]models.ExpertAssignment, error) {
	s.lastExpertID = expertID
	return s.historyResult, s.historyErr
}

type stubQueueView struct {
	result       *models.ExpertQueue
	err          error
	lastExpertID int64
}

func (s *stubQueueView) Queue(_ context.Context, expertID int64) (*models.ExpertQueue, error) {
	s.lastExpertID = expertID
	return s.result, s.err
}

type stubProfileStore struct {
	profile   *models.ExpertProfile
	getErr    error
	updateErr error
	lastInput repository.ExpertProfileUpdateInput
}

func (s *stubProfileStore) GetByUserID(_ context.Context, userID int64) (*models.ExpertProfile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.profile, nil
}

func (s *stubProfileStore) Update(
	_ context.Context,
	userID int64,
	input repository.ExpertProfileUpdateInput,
) (*models.ExpertProfile, error) {
	s.lastInput = input
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.profile, nil
}

func expertApp(handler *ExpertHandler, principalID string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", principalID)
		c.Locals("username", "bob")
		return c.Next()
	})
	app.Get("/expert/queue", handler.GetQueue)
	app.Post("/expert/conversations/:conversation_id/claim", handler.Claim)
	app.Post("/expert/conversations/:conversation_id/unclaim", handler.Unclaim)
	app.Get("/expert/profile", handler.GetProfile)
	app.Get("/expert/assignments/history", handler.AssignmentHistory)
	return app
}

func claimedResult(conversationID, expertID int64) *services.AssignmentResult {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	return &services.AssignmentResult{
		Conversation: &models.Conversation{
			ID:               conversationID,
			Title:            "Question",
			Status:           models.ConversationActive,
			InitiatorID:      1,
			AssignedExpertID: &expertID,
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		Assignment: &models.ExpertAssignment{
			ID:             11,
			ConversationID: conversationID,
			ExpertID:       expertID,
			Status:         models.AssignmentActive,
			AssignedAt:     now,
		},
	}
}

func TestClaimReturnsCommittedState(t *testing.T) {
	coordinator := &stubAssignmentCoordinator{claimResult: claimedResult(3, 7)}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodPost, "/expert/conversations/3/claim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if coordinator.lastConversationID != 3 || coordinator.lastExpertID != 7 {
		t.Fatalf("unexpected forwarding: conversation %d expert %d",
			coordinator.lastConversationID, coordinator.lastExpertID)
	}

	var payload struct {
		Success      bool           `json:"success"`
		Conversation map[string]any `json:"conversation"`
		Assignment   map[string]any `json:"assignment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !payload.Success {
		t.Fatalf("expected success true")
	}
	if payload.Conversation["status"] != "active" {
		t.Fatalf("expected active conversation, got %v", payload.Conversation["status"])
	}
	if payload.Assignment["status"] != "active" {
		t.Fatalf("expected active assignment, got %v", payload.Assignment["status"])
	}
}

func TestClaimAlreadyAssignedReturns422(t *testing.T) {
	coordinator := &stubAssignmentCoordinator{claimErr: services.ErrAlreadyAssigned}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodPost, "/expert/conversations/3/claim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestClaimMissingConversationReturns404(t *testing.T) {
	coordinator := &stubAssignmentCoordinator{claimErr: services.ErrConversationNotFound}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodPost, "/expert/conversations/404/claim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClaimRejectsMalformedID(t *testing.T) {
	coordinator := &stubAssignmentCoordinator{}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodPost, "/expert/conversations/abc/claim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if coordinator.lastConversationID != 0 {
		t.Fatalf("expected service untouched for malformed id")
	}
}

func TestUnclaimWrongExpertReturns403(t *testing.T) {
	coordinator := &stubAssignmentCoordinator{unclaimErr: services.ErrNotAssigned}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodPost, "/expert/conversations/3/unclaim", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetQueueReturnsBothSets(t *testing.T) {
	queue := &stubQueueView{result: &models.ExpertQueue{
		Waiting: []models.ConversationDetail{
			{Conversation: models.Conversation{ID: 3, Status: models.ConversationWaiting}},
		},
		Assigned: []models.ConversationDetail{
			{Conversation: models.Conversation{ID: 5, Status: models.ConversationActive}},
		},
	}}
	handler := NewExpertHandler(&stubAssignmentCoordinator{}, queue, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodGet, "/expert/queue", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if queue.lastExpertID != 7 {
		t.Fatalf("expected expert 7, got %d", queue.lastExpertID)
	}

	var payload struct {
		Waiting  []map[string]any `json:"waiting_conversations"`
		Assigned []map[string]any `json:"assigned_conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload.Waiting) != 1 || len(payload.Assigned) != 1 {
		t.Fatalf("expected both queue sets, got %d waiting %d assigned",
			len(payload.Waiting), len(payload.Assigned))
	}
}

func TestAssignmentHistoryReturnsLedger(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	coordinator := &stubAssignmentCoordinator{historyResult: []models.ExpertAssignment{
		{ID: 12, ConversationID: 5, ExpertID: 7, Status: models.AssignmentActive, AssignedAt: now},
		{ID: 11, ConversationID: 3, ExpertID: 7, Status: models.AssignmentUnassigned, AssignedAt: now},
	}}
	handler := NewExpertHandler(coordinator, &stubQueueView{}, &stubProfileStore{})
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodGet, "/expert/assignments/history", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Assignments []map[string]any `json:"assignments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload.Assignments) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(payload.Assignments))
	}
}

func TestGetProfileReturnsNotFound(t *testing.T) {
	profiles := &stubProfileStore{getErr: pgx.ErrNoRows}
	handler := NewExpertHandler(&stubAssignmentCoordinator{}, &stubQueueView{}, profiles)
	app := expertApp(handler, "7")

	req := httptest.NewRequest(http.MethodGet, "/expert/profile", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
