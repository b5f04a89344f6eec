package models

import "time"

const (
	ConversationWaiting = "waiting"
	ConversationActive  = "active"
)

type Conversation struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Status           string     `json:"status"`
	InitiatorID      int64      `json:"initiator_id"`
	AssignedExpertID *int64     `json:"assigned_expert_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	LastMessageAt    *time.Time `json:"last_message_at"`
}

// ConversationDetail is the client-facing projection of a conversation:
// the record itself plus the participants' usernames and how many messages
// from the other participant the viewer has not read yet.
type ConversationDetail struct {
	Conversation
	InitiatorUsername      string  `json:"initiator_username"`
	AssignedExpertUsername *string `json:"assigned_expert_username,omitempty"`
	UnreadCount            int     `json:"unread_count"`
}

// ExpertQueue pairs the global waiting queue with the conversations
// currently assigned to one expert.
type ExpertQueue struct {
	Waiting  []ConversationDetail `json:"waiting_conversations"`
	Assigned []ConversationDetail `json:"assigned_conversations"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
