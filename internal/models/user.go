package models

import "time"

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ExpertProfile struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Bio                string    `json:"bio"`
	KnowledgeBaseLinks []string  `json:"knowledge_base_links"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
