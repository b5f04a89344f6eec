package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/services"
)

type stubConversationService struct {
	listResult         []models.ConversationDetail
	createResult       *models.Conversation
	createErr          error
	getResult          *models.Conversation
	getErr             error
	messagesResult     []models.MessageDetail
	messagesTotal      int
	messagesErr        error
	lastPrincipalID    int64
	lastConversationID int64
	lastTitle          string
	lastPage           int
	lastLimit          int
}

func (s *stubConversationService) ListConversations(
	_ context.Context,
	principalID int64,
) ([]models.ConversationDetail, error) {
	s.lastPrincipalID = principalID
	return s.listResult, nil
}

func (s *stubConversationService) CreateConversation(
	_ context.Context,
	initiatorID int64,
	title string,
) (*models.Conversation, error) {
	s.lastPrincipalID = initiatorID
	s.lastTitle = title
	return s.createResult, s.createErr
}

func (s *stubConversationService) GetConversation(
	_ context.Context,
	principalID int64,
	conversationID int64,
) (*models.Conversation, error) {
	s.lastPrincipalID = principalID
	s.lastConversationID = conversationID
	return s.getResult, s.getErr
}

func (s *stubConversationService) ListMessages(
	_ context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.MessageDetail, int, error) {
	s.lastPrincipalID = actorID
	s.lastConversationID = conversationID
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesErr
}

func conversationApp(service *stubConversationService, principalID string) *fiber.App {
	handler := NewConversationHandler(service)
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", principalID)
		c.Locals("username", "alice")
		return c.Next()
	})
	app.Get("/conversations", handler.ListConversations)
	app.Post("/conversations", handler.CreateConversation)
	app.Get("/conversations/:id", handler.GetConversation)
	app.Get("/conversations/:id/messages", handler.GetMessages)
	return app
}

func TestCreateConversationReturnsCreated(t *testing.T) {
	service := &stubConversationService{
		createResult: &models.Conversation{
			ID:          3,
			Title:       "Need help",
			Status:      models.ConversationWaiting,
			InitiatorID: 1,
			CreatedAt:   time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		},
	}
	app := conversationApp(service, "1")

	body, _ := json.Marshal(map[string]any{"title": "Need help"})
	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPrincipalID != 1 || service.lastTitle != "Need help" {
		t.Fatalf("unexpected forwarding: principal %d title %q",
			service.lastPrincipalID, service.lastTitle)
	}

	var payload struct {
		Conversation map[string]any `json:"conversation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if payload.Conversation["status"] != "waiting" {
		t.Fatalf("expected waiting conversation, got %v", payload.Conversation["status"])
	}
}

func TestCreateConversationBlankTitleReturns400(t *testing.T) {
	service := &stubConversationService{createErr: services.ErrInvalidInput}
	app := conversationApp(service, "1")

	body, _ := json.Marshal(map[string]any{"title": "   "})
	req := httptest.NewRequest(http.MethodPost, "/conversations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetConversationHiddenFromNonInitiator(t *testing.T) {
	service := &stubConversationService{getErr: services.ErrConversationNotFound}
	app := conversationApp(service, "7")

	req := httptest.NewRequest(http.MethodGet, "/conversations/3", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetMessagesClampsPagination(t *testing.T) {
	service := &stubConversationService{
		messagesResult: []models.MessageDetail{},
		messagesTotal:  0,
	}
	app := conversationApp(service, "1")

	req := httptest.NewRequest(http.MethodGet, "/conversations/3/messages?page=2&limit=9999", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPage != 2 {
		t.Fatalf("expected page 2, got %d", service.lastPage)
	}
	if service.lastLimit != maxPageLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageLimit, service.lastLimit)
	}
}

func TestGetMessagesReturnsPaginationMeta(t *testing.T) {
	service := &stubConversationService{
		messagesResult: []models.MessageDetail{
			{Message: models.Message{ID: 21, ConversationID: 3, SenderID: 1, Content: "Hello"}},
		},
		messagesTotal: 120,
	}
	app := conversationApp(service, "1")

	req := httptest.NewRequest(http.MethodGet, "/conversations/3/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Messages   []map[string]any      `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(payload.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(payload.Messages))
	}
	if payload.Pagination.Total != 120 || payload.Pagination.Limit != defaultPageLimit {
		t.Fatalf("unexpected pagination meta: %+v", payload.Pagination)
	}
	if payload.Pagination.TotalPages != 3 {
		t.Fatalf("expected 3 pages of %d, got %d", defaultPageLimit, payload.Pagination.TotalPages)
	}
}
