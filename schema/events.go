package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType is the discriminator of the wire envelope.
type MessageType string

// Hub to viewer message types.
const (
	// MsgConnection greets a freshly attached viewer.
	MsgConnection MessageType = "connection"
	// MsgHistorySync carries the full history log on bootstrap.
	MsgHistorySync MessageType = "history_sync"
	// MsgHistoryItem carries one finalized history entry.
	MsgHistoryItem MessageType = "history_item"
	// MsgPendingItem carries pending text or a pending tool group; a null
	// payload clears all pending state.
	MsgPendingItem MessageType = "pending_item"
	// MsgFooterData replaces the footer snapshot.
	MsgFooterData MessageType = "footer_data"
	// MsgLoadingState replaces the loading snapshot.
	MsgLoadingState MessageType = "loading_state"
	// MsgConsoleMessages replaces the console log snapshot.
	MsgConsoleMessages MessageType = "console_messages"
	// MsgSlashCommands replaces the command catalog snapshot.
	MsgSlashCommands MessageType = "slash_commands"
	// MsgMCPServers replaces the tool server catalog snapshot.
	MsgMCPServers MessageType = "mcp_servers"
	// MsgActionRequired replaces the action-required flag.
	MsgActionRequired MessageType = "cli_action_required"
	// MsgToolConfirmation asks the viewer to confirm a tool call.
	MsgToolConfirmation MessageType = "tool_confirmation"
	// MsgToolConfirmationRemoval withdraws a confirmation request.
	MsgToolConfirmationRemoval MessageType = "tool_confirmation_removal"
	// MsgClear truncates history and pending state on every viewer.
	MsgClear MessageType = "clear"
)

// Viewer to hub message types.
const (
	// MsgUserMessage submits operator chat input.
	MsgUserMessage MessageType = "user_message"
	// MsgInterruptRequest asks the session engine to stop the current turn.
	MsgInterruptRequest MessageType = "interrupt_request"
	// MsgToolConfirmationResponse answers a confirmation request.
	MsgToolConfirmationResponse MessageType = "tool_confirmation_response"
)

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// HistorySyncPayload seeds viewer state on connect.
type HistorySyncPayload struct {
	History []HistoryEntry `json:"history"`
}

// ConnectionPayload is the welcome message for a new viewer.
type ConnectionPayload struct {
	Message string `json:"message"`
	Clients int    `json:"clients,omitempty"`
}

// ConfirmationRemovalPayload withdraws a confirmation request by call id.
type ConfirmationRemovalPayload struct {
	CallID CallID `json:"call_id"`
}

// UserMessagePayload is operator chat input from a viewer.
type UserMessagePayload struct {
	Content string `json:"content"`
}

// NewEnvelope wraps a payload in a stamped envelope. A nil payload yields
// an envelope with no data, which MsgPendingItem uses as the clear signal.
func NewEnvelope(msgType MessageType, payload any) (Envelope, error) {
	env := Envelope{Type: msgType, Timestamp: time.Now().UnixMilli()}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msgType, err)
	}
	env.Data = data
	return env, nil
}

// Decode returns the typed payload for the envelope. The switch is
// exhaustive over every MessageType; anything else returns
// ErrUnknownMessageType. MsgPendingItem decodes to *PendingItem and
// returns a nil pointer for the clear signal.
func (e Envelope) Decode() (any, error) {
	switch e.Type {
	case MsgConnection:
		return decodeAs[ConnectionPayload](e)
	case MsgHistorySync:
		return decodeAs[HistorySyncPayload](e)
	case MsgHistoryItem:
		return decodeAs[HistoryEntry](e)
	case MsgPendingItem:
		if isNullData(e.Data) {
			return (*PendingItem)(nil), nil
		}
		item, err := decodeAs[PendingItem](e)
		if err != nil {
			return nil, err
		}
		return &item, nil
	case MsgFooterData:
		return decodeAs[FooterData](e)
	case MsgLoadingState:
		return decodeAs[LoadingState](e)
	case MsgConsoleMessages:
		return decodeAs[[]ConsoleMessage](e)
	case MsgSlashCommands:
		return decodeAs[[]SlashCommand](e)
	case MsgMCPServers:
		return decodeAs[[]MCPServer](e)
	case MsgActionRequired:
		return decodeAs[ActionRequired](e)
	case MsgToolConfirmation:
		return decodeAs[ConfirmationRequest](e)
	case MsgToolConfirmationRemoval:
		return decodeAs[ConfirmationRemovalPayload](e)
	case MsgClear:
		return nil, nil
	case MsgUserMessage:
		return decodeAs[UserMessagePayload](e)
	case MsgInterruptRequest:
		return nil, nil
	case MsgToolConfirmationResponse:
		return decodeAs[ConfirmationResponse](e)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, e.Type)
	}
}

func decodeAs[T any](e Envelope) (T, error) {
	var payload T
	if isNullData(e.Data) {
		return payload, fmt.Errorf("%w: %s without data", ErrInvalidPayload, e.Type)
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Type, err)
	}
	return payload, nil
}

func isNullData(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}
