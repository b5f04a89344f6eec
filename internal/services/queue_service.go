package services

import (
	"context"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/jackc/pgx/v5"
)

type QueueService struct {
	db transactor
}

func NewQueueService(db transactor) *QueueService {
	return &QueueService{db: db}
}

// Queue returns the global waiting queue (oldest first) and the expert's
// assigned conversations (most recent message first). Both sets come from
// one repeatable-read snapshot so an in-flight claim is either visible in
// neither list or moved between them, never half-applied.
func (s *QueueService) Queue(ctx context.Context, expertID int64) (*models.ExpertQueue, error) {
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

	waiting, err := txConversationRepo.WaitingQueue(ctx, expertID)
	if err != nil {
		return nil, err
	}

	assigned, err := txConversationRepo.AssignedQueue(ctx, expertID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.ExpertQueue{Waiting: waiting, Assigned: assigned}, nil
}
