package repository

import (
	"context"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
)

type AssignmentRepository struct {
	db DBTX
}

func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Create(
	ctx context.Context,
	conversationID int64,
	expertID int64,
) (*models.ExpertAssignment, error) {
	query := `
		INSERT INTO expert_assignments (conversation_id, expert_id, status, assigned_at)
		VALUES ($1, $2, 'active', NOW())
		RETURNING id, conversation_id, expert_id, status, assigned_at, resolved_at
	`

	var assignment models.ExpertAssignment
	err := r.db.QueryRow(ctx, query, conversationID, expertID).Scan(
		&assignment.ID,
		&assignment.ConversationID,
		&assignment.ExpertID,
		&assignment.Status,
		&assignment.AssignedAt,
		&assignment.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

// ResolveActive closes the expert's active ledger row for the conversation.
// The returned row carries the new status; pgx.ErrNoRows means there was no
// active row to close.
func (r *AssignmentRepository) ResolveActive(
	ctx context.Context,
	conversationID int64,
	expertID int64,
	status string,
) (*models.ExpertAssignment, error) {
	query := `
		UPDATE expert_assignments
		SET status = $3,
			resolved_at = NOW()
		WHERE conversation_id = $1
		  AND expert_id = $2
		  AND status = 'active'
		RETURNING id, conversation_id, expert_id, status, assigned_at, resolved_at
	`

	var assignment models.ExpertAssignment
	err := r.db.QueryRow(ctx, query, conversationID, expertID, status).Scan(
		&assignment.ID,
		&assignment.ConversationID,
		&assignment.ExpertID,
		&assignment.Status,
		&assignment.AssignedAt,
		&assignment.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

func (r *AssignmentRepository) ListByExpert(
	ctx context.Context,
	expertID int64,
) ([]models.ExpertAssignment, error) {
	query := `
		SELECT id, conversation_id, expert_id, status, assigned_at, resolved_at
		FROM expert_assignments
		WHERE expert_id = $1
		ORDER BY assigned_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, expertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]models.ExpertAssignment, 0)
	for rows.Next() {
		var assignment models.ExpertAssignment
		if err := rows.Scan(
			&assignment.ID,
			&assignment.ConversationID,
			&assignment.ExpertID,
			&assignment.Status,
			&assignment.AssignedAt,
			&assignment.ResolvedAt,
		); err != nil {
			return nil, err
		}

		assignments = append(assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}
