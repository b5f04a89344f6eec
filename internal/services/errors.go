package services

import "errors"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrAlreadyAssigned      = errors.New("conversation is already assigned")
	ErrNotAssigned          = errors.New("conversation is not assigned to caller")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidInput         = errors.New("invalid input")
)
