package repository

import (
	"context"
	"time"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	senderRole string,
	content string,
) (*models.Message, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, sender_role, content, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, conversation_id, sender_id, sender_role, content, is_read, created_at
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, conversationID, senderID, senderRole, content).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.SenderRole,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, sender_role, content, is_read, created_at
		FROM messages
		WHERE id = $1
	`

	var message models.Message
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.SenderRole,
		&message.Content,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.MessageDetail, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.sender_role, m.content, m.is_read, m.created_at,
			   u.username
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at ASC, m.id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		var message models.MessageDetail
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.SenderRole,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
			&message.SenderUsername,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// ChangedSinceForPrincipal returns messages created strictly after since in
// conversations the principal participates in, excluding the principal's
// own messages.
func (r *MessageRepository) ChangedSinceForPrincipal(
	ctx context.Context,
	principalID int64,
	since time.Time,
) ([]models.MessageDetail, error) {
	query := `
		SELECT m.id, m.conversation_id, m.sender_id, m.sender_role, m.content, m.is_read, m.created_at,
			   u.username
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.initiator_id = $1 OR c.assigned_expert_id = $1)
		  AND m.created_at > $2
		  AND m.sender_id <> $1
		ORDER BY m.created_at ASC, m.id ASC
	`

	rows, err := r.db.Query(ctx, query, principalID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.MessageDetail, 0)
	for rows.Next() {
		var message models.MessageDetail
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.SenderRole,
			&message.Content,
			&message.IsRead,
			&message.CreatedAt,
			&message.SenderUsername,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkRead flips is_read on a single message. It never flips back.
func (r *MessageRepository) MarkRead(ctx context.Context, messageID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = $1
		  AND is_read = FALSE
	`, messageID)
	return err
}
