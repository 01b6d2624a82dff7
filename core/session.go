package core

import (
	"time"

	"pkt.systems/periscope/schema"
)

var timeNow = time.Now

// Engine is the session-engine side of the round trip: the handlers the
// host process registers to receive viewer-originated input. The engine
// itself (model output, tool execution) is an external collaborator.
type Engine interface {
	// OnUserMessage receives operator chat input submitted from a viewer.
	OnUserMessage(content string) error
	// OnInterrupt receives a fire-and-forget stop signal. The engine
	// decides whether to honor it based on its own run state.
	OnInterrupt()
	// OnConfirmation receives exactly one response per confirmed call id.
	OnConfirmation(resp schema.ConfirmationResponse)
}

// Session owns all mutable state of one interactive agent session: the
// history log, the ephemeral snapshot slots, and the pending confirmation
// set. There is exactly one Session per host process, passed by handle
// into the hub. The hub is its sole caller and serializes every
// operation, so Session carries no locking of its own.
type Session struct {
	*Store
	confirms *Confirmations
	engine   Engine
}

// Snapshot is a consistent read of the full session state, replayed to a
// viewer as its bootstrap sequence.
type Snapshot struct {
	History       []schema.HistoryEntry
	Pending       *schema.PendingItem
	Footer        schema.FooterData
	Loading       schema.LoadingState
	Console       []schema.ConsoleMessage
	Commands      []schema.SlashCommand
	Servers       []schema.MCPServer
	Action        schema.ActionRequired
	Confirmations []schema.ConfirmationRequest
}

// NewSession constructs an empty session.
func NewSession() *Session {
	return &Session{
		Store:    NewStore(),
		confirms: NewConfirmations(),
	}
}

// SetEngine registers the session engine handlers for viewer input.
func (s *Session) SetEngine(engine Engine) {
	s.engine = engine
}

// Engine returns the registered session engine, or nil.
func (s *Session) Engine() Engine {
	return s.engine
}

// AppendHistory stamps and appends an entry, returning the stored form.
// Missing ids and timestamps are filled in; everything else is taken as
// the session engine produced it.
func (s *Session) AppendHistory(entry schema.HistoryEntry) schema.HistoryEntry {
	if entry.ID == "" {
		entry.ID = schema.EntryID(newEntryID())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = timeNow()
	}
	s.Append(entry)
	return entry
}

// SetPendingItem stamps and stores the pending item. A nil item clears
// all pending state.
func (s *Session) SetPendingItem(item *schema.PendingItem) *schema.PendingItem {
	if item != nil && item.UpdatedAt.IsZero() {
		stamped := *item
		stamped.UpdatedAt = timeNow()
		item = &stamped
	}
	s.SetPending(item)
	return item
}

// RequestConfirmation adds a confirmation request to the pending set.
func (s *Session) RequestConfirmation(req schema.ConfirmationRequest) bool {
	return s.confirms.Request(req)
}

// AnswerConfirmation consumes the pending request for the call id.
func (s *Session) AnswerConfirmation(callID schema.CallID) (schema.ConfirmationRequest, error) {
	return s.confirms.Answer(callID)
}

// WithdrawConfirmation removes a pending request without an answer.
func (s *Session) WithdrawConfirmation(callID schema.CallID) bool {
	return s.confirms.Withdraw(callID)
}

// PendingConfirmations returns the open requests in arrival order.
func (s *Session) PendingConfirmations() []schema.ConfirmationRequest {
	return s.confirms.Pending()
}

// Snapshot copies the full session state for bootstrap replay.
func (s *Session) Snapshot() Snapshot {
	var pending *schema.PendingItem
	if p := s.Pending(); p != nil {
		copied := *p
		pending = &copied
	}
	return Snapshot{
		History:       s.History(),
		Pending:       pending,
		Footer:        s.Footer(),
		Loading:       s.Loading(),
		Console:       s.Console(),
		Commands:      s.Commands(),
		Servers:       s.Servers(),
		Action:        s.ActionRequired(),
		Confirmations: s.confirms.Pending(),
	}
}
