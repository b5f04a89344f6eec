package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// detailSelect renders a conversation with both participants' usernames and
// the count of messages the viewer ($1) has not read yet. Every query built
// on it must keep the viewer as the first argument.
const detailSelect = `
	SELECT
		c.id,
		c.title,
		c.status,
		c.initiator_id,
		c.assigned_expert_id,
		c.created_at,
		c.updated_at,
		c.last_message_at,
		iu.username,
		eu.username,
		COALESCE(uc.unread_count, 0)
	FROM conversations c
	JOIN users iu ON iu.id = c.initiator_id
	LEFT JOIN users eu ON eu.id = c.assigned_expert_id
	LEFT JOIN LATERAL (
		SELECT COUNT(*) AS unread_count
		FROM messages
		WHERE conversation_id = c.id
		  AND sender_id <> $1
		  AND is_read = FALSE
	) uc ON TRUE
`

const conversationColumns = `id, title, status, initiator_id, assigned_expert_id, created_at, updated_at, last_message_at`

func (r *ConversationRepository) Create(
	ctx context.Context,
	initiatorID int64,
	title string,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (title, status, initiator_id)
		VALUES ($1, 'waiting', $2)
		RETURNING ` + conversationColumns

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, title, initiatorID).Scan(
		&conversation.ID,
		&conversation.Title,
		&conversation.Status,
		&conversation.InitiatorID,
		&conversation.AssignedExpertID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.Title,
		&conversation.Status,
		&conversation.InitiatorID,
		&conversation.AssignedExpertID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	conversationID int64,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE id = $1 AND (initiator_id = $2 OR assigned_expert_id = $2)
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID, participantID).Scan(
		&conversation.ID,
		&conversation.Title,
		&conversation.Status,
		&conversation.InitiatorID,
		&conversation.AssignedExpertID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// ListForPrincipal returns every conversation the principal participates in,
// most recently touched first.
func (r *ConversationRepository) ListForPrincipal(
	ctx context.Context,
	principalID int64,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE c.initiator_id = $1 OR c.assigned_expert_id = $1
		ORDER BY COALESCE(c.last_message_at, c.updated_at) DESC, c.id DESC
	`
	return r.queryDetails(ctx, query, principalID)
}

// WaitingQueue lists all unclaimed conversations oldest-first, so the
// conversation that has waited longest is surfaced first.
func (r *ConversationRepository) WaitingQueue(
	ctx context.Context,
	viewerID int64,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE c.status = 'waiting'
		ORDER BY c.created_at ASC, c.id ASC
	`
	return r.queryDetails(ctx, query, viewerID)
}

// AssignedQueue lists the expert's conversations with the most recent
// message activity first; conversations without messages sort last.
func (r *ConversationRepository) AssignedQueue(
	ctx context.Context,
	expertID int64,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE c.assigned_expert_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.id DESC
	`
	return r.queryDetails(ctx, query, expertID)
}

// ChangedSinceForPrincipal returns the principal's conversations whose
// updated_at is strictly after since.
func (r *ConversationRepository) ChangedSinceForPrincipal(
	ctx context.Context,
	principalID int64,
	since time.Time,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE (c.initiator_id = $1 OR c.assigned_expert_id = $1)
		  AND c.updated_at > $2
		ORDER BY c.updated_at ASC, c.id ASC
	`
	return r.queryDetails(ctx, query, principalID, since)
}

// WaitingChangedSince is queue-wide: any expert polling sees every waiting
// conversation that changed, not just ones they touched.
func (r *ConversationRepository) WaitingChangedSince(
	ctx context.Context,
	viewerID int64,
	since time.Time,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE c.status = 'waiting'
		  AND c.updated_at > $2
		ORDER BY c.created_at ASC, c.id ASC
	`
	return r.queryDetails(ctx, query, viewerID, since)
}

func (r *ConversationRepository) AssignedChangedSince(
	ctx context.Context,
	expertID int64,
	since time.Time,
) ([]models.ConversationDetail, error) {
	query := detailSelect + `
		WHERE c.assigned_expert_id = $1
		  AND c.updated_at > $2
		ORDER BY c.last_message_at DESC NULLS LAST, c.id DESC
	`
	return r.queryDetails(ctx, query, expertID, since)
}

// Claim atomically takes ownership of an unassigned conversation. The WHERE
// guard is the compare-and-set: when another expert got there first no row
// matches and Scan returns pgx.ErrNoRows.
func (r *ConversationRepository) Claim(
	ctx context.Context,
	conversationID int64,
	expertID int64,
) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET assigned_expert_id = $2,
			status = 'active',
			updated_at = NOW()
		WHERE id = $1 AND assigned_expert_id IS NULL
		RETURNING ` + conversationColumns

	return r.scanMutation(ctx, query, conversationID, expertID)
}

// Unclaim releases a conversation back to the waiting queue. The guard only
// matches when the caller is the currently assigned expert.
func (r *ConversationRepository) Unclaim(
	ctx context.Context,
	conversationID int64,
	expertID int64,
) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET assigned_expert_id = NULL,
			status = 'waiting',
			updated_at = NOW()
		WHERE id = $1 AND assigned_expert_id = $2
		RETURNING ` + conversationColumns

	return r.scanMutation(ctx, query, conversationID, expertID)
}

func (r *ConversationRepository) TouchLastMessage(
	ctx context.Context,
	conversationID int64,
	lastMessageAt time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = $2,
			updated_at = NOW()
		WHERE id = $1
	`, conversationID, lastMessageAt)
	return err
}

func (r *ConversationRepository) scanMutation(
	ctx context.Context,
	query string,
	args ...any,
) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&conversation.ID,
		&conversation.Title,
		&conversation.Status,
		&conversation.InitiatorID,
		&conversation.AssignedExpertID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
		&conversation.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) queryDetails(
	ctx context.Context,
	query string,
	args ...any,
) ([]models.ConversationDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanConversationDetails(rows)
}

func scanConversationDetails(rows pgx.Rows) ([]models.ConversationDetail, error) {
	details := make([]models.ConversationDetail, 0)
	for rows.Next() {
		var detail models.ConversationDetail
		var expertUsername sql.NullString

		if err := rows.Scan(
			&detail.ID,
			&detail.Title,
			&detail.Status,
			&detail.InitiatorID,
			&detail.AssignedExpertID,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.LastMessageAt,
			&detail.InitiatorUsername,
			&expertUsername,
			&detail.UnreadCount,
		); err != nil {
			return nil, err
		}

		if expertUsername.Valid {
			detail.AssignedExpertUsername = &expertUsername.String
		}

		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}
