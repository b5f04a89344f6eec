package models

import "time"

const (
	RoleInitiator = "initiator"
	RoleExpert    = "expert"
)

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageDetail carries the sender's username alongside the message for
// client rendering.
type MessageDetail struct {
	Message
	SenderUsername string `json:"sender_username"`
}
