package repository

import (
	"context"

	"github.com/hugolin0/cs291a-helpdesk-backend/internal/models"
)

type ExpertProfileRepository struct {
	db DBTX
}

func NewExpertProfileRepository(db DBTX) *ExpertProfileRepository {
	return &ExpertProfileRepository{db: db}
}

func (r *ExpertProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO expert_profiles (user_id, bio, knowledge_base_links) VALUES ($1, '', '{}')`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *ExpertProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.ExpertProfile, error) {
	query := `
		SELECT id, user_id, bio, knowledge_base_links, created_at, updated_at
		FROM expert_profiles
		WHERE user_id = $1
	`
	var profile models.ExpertProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Bio,
		&profile.KnowledgeBaseLinks,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type ExpertProfileUpdateInput struct {
	Bio                *string
	KnowledgeBaseLinks *[]string
}

func (r *ExpertProfileRepository) Update(
	ctx context.Context,
	userID int64,
	input ExpertProfileUpdateInput,
) (*models.ExpertProfile, error) {
	query := `
		UPDATE expert_profiles
		SET bio = COALESCE($1, bio),
			knowledge_base_links = COALESCE($2, knowledge_base_links),
			updated_at = NOW()
		WHERE user_id = $3
		RETURNING id, user_id, bio, knowledge_base_links, created_at, updated_at
	`
	var profile models.ExpertProfile
	err := r.db.QueryRow(ctx, query, input.Bio, input.KnowledgeBaseLinks, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Bio,
		&profile.KnowledgeBaseLinks,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
