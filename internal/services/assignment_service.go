package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/events"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/hugolin0/cs291a-helpdesk-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// transactor is the subset of *pgxpool.Pool the services need to open
// transactions.
type transactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// txRetryAttempts bounds retries of serialization/deadlock aborts before
// the error is surfaced to the caller.
const txRetryAttempts = 3

// AssignmentResult is the committed state after a claim or unclaim: the
// conversation projection plus the ledger row the transition touched.
// Assignment is nil when an unclaim found no active ledger row to close.
type AssignmentResult struct {
	Conversation *models.Conversation    `json:"conversation"`
	Assignment   *models.ExpertAssignment `json:"assignment"`
}

type AssignmentService struct {
	db             transactor
	assignmentRepo *repository.AssignmentRepository
	publisher      events.Publisher
	log            *slog.Logger
}

func NewAssignmentService(
	db transactor,
	assignmentRepo *repository.AssignmentRepository,
	publisher events.Publisher,
	log *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		db:             db,
		assignmentRepo: assignmentRepo,
		publisher:      publisher,
		log:            log,
	}
}

// Claim assigns a waiting conversation to the expert. First writer wins:
// when two experts race, the guarded UPDATE lets exactly one through and
// the loser gets ErrAlreadyAssigned. Conversation update and ledger insert
// commit as one unit.
func (s *AssignmentService) Claim(
	ctx context.Context,
	conversationID int64,
	expertID int64,
) (*AssignmentResult, error) {
	if conversationID <= 0 || expertID <= 0 {
		return nil, ErrInvalidInput
	}

	var result *AssignmentResult
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		txConversationRepo := repository.NewConversationRepository(tx)
		txAssignmentRepo := repository.NewAssignmentRepository(tx)

		conversation, err := txConversationRepo.Claim(ctx, conversationID, expertID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.classifyClaimFailure(ctx, txConversationRepo, conversationID)
			}
			return err
		}

		assignment, err := txAssignmentRepo.Create(ctx, conversationID, expertID)
		if err != nil {
			return err
		}

		result = &AssignmentResult{Conversation: conversation, Assignment: assignment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeConversationClaimed, result)
	return result, nil
}

// Unclaim releases the conversation back to the waiting queue and closes
// the active ledger row. Not idempotent: a second call by the same expert
// fails with ErrNotAssigned because the first already cleared the field.
func (s *AssignmentService) Unclaim(
	ctx context.Context,
	conversationID int64,
	expertID int64,
) (*AssignmentResult, error) {
	if conversationID <= 0 || expertID <= 0 {
		return nil, ErrInvalidInput
	}

	var result *AssignmentResult
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		txConversationRepo := repository.NewConversationRepository(tx)
		txAssignmentRepo := repository.NewAssignmentRepository(tx)

		conversation, err := txConversationRepo.Unclaim(ctx, conversationID, expertID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return s.classifyUnclaimFailure(ctx, txConversationRepo, conversationID)
			}
			return err
		}

		assignment, err := txAssignmentRepo.ResolveActive(
			ctx, conversationID, expertID, models.AssignmentUnassigned,
		)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
			// Ledger diverged from the conversation state. The conversation
			// transition still commits; the divergence is an internal
			// consistency fault, not a caller error.
			s.log.Error("invariant violation: no active assignment for assigned conversation",
				slog.Int64("conversation_id", conversationID),
				slog.Int64("expert_id", expertID),
			)
			assignment = nil
		}

		result = &AssignmentResult{Conversation: conversation, Assignment: assignment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypeConversationUnclaimed, result)
	return result, nil
}

// History lists the expert's ledger rows, most recent assignment first.
func (s *AssignmentService) History(
	ctx context.Context,
	expertID int64,
) ([]models.ExpertAssignment, error) {
	return s.assignmentRepo.ListByExpert(ctx, expertID)
}

// classifyClaimFailure distinguishes a missing conversation from a lost
// claim race after the guarded UPDATE matched nothing.
func (s *AssignmentService) classifyClaimFailure(
	ctx context.Context,
	repo *repository.ConversationRepository,
	conversationID int64,
) error {
	_, err := repo.GetByID(ctx, conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		return err
	}
	return ErrAlreadyAssigned
}

func (s *AssignmentService) classifyUnclaimFailure(
	ctx context.Context,
	repo *repository.ConversationRepository,
	conversationID int64,
) error {
	_, err := repo.GetByID(ctx, conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConversationNotFound
	}
	if err != nil {
		return err
	}
	// Assigned to someone else, or to no one. The original API reports both
	// the same way.
	return ErrNotAssigned
}

func (s *AssignmentService) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txRetryAttempts; attempt++ {
		err := s.runInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		lastErr = err
		s.log.Warn("transaction aborted, retrying",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}
	return lastErr
}

func (s *AssignmentService) runInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isRetryableTxError reports serialization failures and deadlocks, the two
// abort classes Postgres expects the client to retry.
func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (s *AssignmentService) publish(ctx context.Context, eventType string, result *AssignmentResult) {
	if s.publisher == nil || result == nil || result.Assignment == nil {
		return
	}

	payload := events.ConversationAssignmentV1{
		ConversationID: result.Conversation.ID,
		InitiatorID:    result.Conversation.InitiatorID,
		ExpertID:       result.Assignment.ExpertID,
		AssignedAt:     result.Assignment.AssignedAt,
		ResolvedAt:     result.Assignment.ResolvedAt,
	}

	if err := s.publisher.Publish(ctx, eventType, events.NewEnvelope(eventType, payload)); err != nil {
		s.log.Warn("failed to publish assignment event",
			slog.String("type", eventType),
			slog.Int64("conversation_id", result.Conversation.ID),
			slog.Any("error", err),
		)
	}
}
