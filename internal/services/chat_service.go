package services

import (
	"context"
	"errors"
	"strings"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

type conversationStore interface {
	Create(ctx context.Context, initiatorID int64, title string) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error)
	GetByIDForParticipant(ctx context.Context, conversationID int64, participantID int64) (*models.Conversation, error)
	ListForPrincipal(ctx context.Context, principalID int64) ([]models.ConversationDetail, error)
}

type messageStore interface {
	GetByID(ctx context.Context, messageID int64) (*models.Message, error)
	ListByConversation(ctx context.Context, conversationID int64, limit int, offset int) ([]models.MessageDetail, int, error)
	MarkRead(ctx context.Context, messageID int64) error
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatService struct {
	db               transactor
	conversationRepo conversationStore
	messageRepo      messageStore
	userRepo         userReader
}

func NewChatService(
	db transactor,
	conversationRepo conversationStore,
	messageRepo messageStore,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	principalID int64,
) ([]models.ConversationDetail, error) {
	return s.conversationRepo.ListForPrincipal(ctx, principalID)
}

func (s *ChatService) CreateConversation(
	ctx context.Context,
	initiatorID int64,
	title string,
) (*models.Conversation, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	return s.conversationRepo.Create(ctx, initiatorID, trimmed)
}

// GetConversation is initiator-only; anyone else gets the same not-found
// answer as for an absent conversation.
func (s *ChatService) GetConversation(
	ctx context.Context,
	principalID int64,
	conversationID int64,
) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	if conversation.InitiatorID != principalID {
		return nil, ErrConversationNotFound
	}

	return conversation, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.MessageDetail, int, error) {
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
}

// SendMessage inserts the message and advances the conversation's
// last_message_at in one transaction. The sender's role is derived from
// their relationship to the conversation; non-participants get the same
// not-found answer as for an absent conversation.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	content string,
) (*models.MessageDetail, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	senderRole, err := senderRoleFor(conversation, actorID)
	if err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, senderRole, trimmed)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.TouchLastMessage(ctx, conversationID, message.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.MessageDetail{
		Message:        *message,
		SenderUsername: sender.Username,
	}, nil
}

// MarkMessageRead sets is_read on behalf of the recipient. Senders cannot
// mark their own messages, and the flag never goes back to false.
func (s *ChatService) MarkMessageRead(
	ctx context.Context,
	actorID int64,
	messageID int64,
) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMessageNotFound
		}
		return err
	}

	if message.SenderID == actorID {
		return ErrForbidden
	}

	return s.messageRepo.MarkRead(ctx, messageID)
}

func senderRoleFor(conversation *models.Conversation, actorID int64) (string, error) {
	switch {
	case conversation.InitiatorID == actorID:
		return models.RoleInitiator, nil
	case conversation.AssignedExpertID != nil && *conversation.AssignedExpertID == actorID:
		return models.RoleExpert, nil
	default:
		return "", ErrConversationNotFound
	}
}
