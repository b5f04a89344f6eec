package services

import (
	"context"
	"time"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

type conversationFeed interface {
	ChangedSinceForPrincipal(ctx context.Context, principalID int64, since time.Time) ([]models.ConversationDetail, error)
}

type messageFeed interface {
	ChangedSinceForPrincipal(ctx context.Context, principalID int64, since time.Time) ([]models.MessageDetail, error)
}

// UpdatesService answers "what changed after timestamp T, visible to
// principal P" for the polling endpoints. All comparisons are strictly
// greater than: an entity modified exactly at the boundary is excluded, so
// a delivered update is never redelivered for the same since value.
type UpdatesService struct {
	db               transactor
	conversationRepo conversationFeed
	messageRepo      messageFeed
}

func NewUpdatesService(
	db transactor,
	conversationRepo conversationFeed,
	messageRepo messageFeed,
) *UpdatesService {
	return &UpdatesService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
	}
}

// ConversationsChangedSince returns the principal's conversations (as
// initiator or assigned expert) touched after since.
func (s *UpdatesService) ConversationsChangedSince(
	ctx context.Context,
	principalID int64,
	since time.Time,
) ([]models.ConversationDetail, error) {
	return s.conversationRepo.ChangedSinceForPrincipal(ctx, principalID, since)
}

// MessagesChangedSince returns messages created after since in the
// principal's conversations. The principal's own messages are excluded;
// they authored them.
func (s *UpdatesService) MessagesChangedSince(
	ctx context.Context,
	principalID int64,
	since time.Time,
) ([]models.MessageDetail, error) {
	return s.messageRepo.ChangedSinceForPrincipal(ctx, principalID, since)
}

// ExpertQueueChangedSince returns the waiting conversations (queue-wide,
// not scoped to the caller) and the expert's assigned conversations that
// changed after since, read from one snapshot.
func (s *UpdatesService) ExpertQueueChangedSince(
	ctx context.Context,
	expertID int64,
	since time.Time,
) (*models.ExpertQueue, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txConversationRepo := repository.NewConversationRepository(tx)

	waiting, err := txConversationRepo.WaitingChangedSince(ctx, expertID, since)
	if err != nil {
		return nil, err
	}

	assigned, err := txConversationRepo.AssignedChangedSince(ctx, expertID, since)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.ExpertQueue{Waiting: waiting, Assigned: assigned}, nil
}
