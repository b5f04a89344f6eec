package models

import "time"

const (
	AssignmentActive     = "active"
	AssignmentUnassigned = "unassigned"
	AssignmentResolved   = "resolved"
)

// ExpertAssignment is the append-mostly audit ledger behind the
// conversation's current assignment fields. At most one row per
// conversation is active at a time.
type ExpertAssignment struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	ExpertID       int64      `json:"expert_id"`
	Status         string     `json:"status"`
	AssignedAt     time.Time  `json:"assigned_at"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}
