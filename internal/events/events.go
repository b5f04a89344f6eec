package events

import (
	"time"

	"github.com/google/uuid"
)

const producer = "helpdesk-backend"

const (
	TypeConversationClaimed   = "helpdesk.conversation.claimed.v1"
	TypeConversationUnclaimed = "helpdesk.conversation.unclaimed.v1"
)

type Meta struct {
	// Unique event ID
	ID string `json:"id"`
	// Emitting service
	Producer string `json:"producer"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
	// Event name and version, e.g. helpdesk.conversation.claimed.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// ConversationAssignmentV1 is the payload for claim/unclaim transitions.
// ResolvedAt is only set on unclaim.
type ConversationAssignmentV1 struct {
	ConversationID int64      `json:"conversation_id"`
	InitiatorID    int64      `json:"initiator_id"`
	ExpertID       int64      `json:"expert_id"`
	AssignedAt     time.Time  `json:"assigned_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Producer: producer,
			Time:     time.Now().UTC(),
			Type:     eventType,
		},
		Data: data,
	}
}
