package schema

import "errors"

var (
	// ErrUnknownMessageType indicates an envelope with an unrecognized type.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrUnknownCall indicates a call id with no pending confirmation.
	ErrUnknownCall = errors.New("unknown call id")
	// ErrConfirmationAnswered indicates a confirmation was already consumed.
	ErrConfirmationAnswered = errors.New("confirmation already answered")
	// ErrInvalidPayload indicates a payload that does not match its type.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNoEngine indicates no session engine handler is registered.
	ErrNoEngine = errors.New("no session engine registered")
)
