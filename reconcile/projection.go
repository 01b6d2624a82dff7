package reconcile

import (
	"time"

	"pkt.systems/periscope/schema"
)

// Entry is one row of the rendered transcript: either a finalized
// history entry or a pending projection that may still be replaced.
type Entry struct {
	ID        schema.EntryID
	Kind      schema.HistoryKind
	Pending   bool
	Text      string
	Tools     []schema.ToolCall
	Meta      map[string]string
	CreatedAt time.Time

	// finalizedAt is the merge-eligibility reference: the moment this
	// entry was finalized locally, or its own CreatedAt when it arrived
	// in a bootstrap batch.
	finalizedAt time.Time
	// handle indexes pending tool groups; zero for everything else.
	handle int
}

// Snapshot categories as last received from the hub. Pointers
// distinguish "not yet received" from an empty value.
type snapshots struct {
	footer   *schema.FooterData
	loading  *schema.LoadingState
	console  []schema.ConsoleMessage
	commands []schema.SlashCommand
	servers  []schema.MCPServer
	action   *schema.ActionRequired
}

// Entries returns a copy of the rendered list in display order.
func (e *Engine) Entries() []Entry {
	out := make([]Entry, len(e.entries))
	for i, entry := range e.entries {
		out[i] = *entry
	}
	return out
}

// Footer returns the footer snapshot and whether one has been received.
func (e *Engine) Footer() (schema.FooterData, bool) {
	if e.snaps.footer == nil {
		return schema.FooterData{}, false
	}
	return *e.snaps.footer, true
}

// Loading returns the loading snapshot and whether one has been received.
func (e *Engine) Loading() (schema.LoadingState, bool) {
	if e.snaps.loading == nil {
		return schema.LoadingState{}, false
	}
	return *e.snaps.loading, true
}

// Console returns the console log snapshot.
func (e *Engine) Console() []schema.ConsoleMessage {
	return append([]schema.ConsoleMessage(nil), e.snaps.console...)
}

// Commands returns the command catalog snapshot.
func (e *Engine) Commands() []schema.SlashCommand {
	return append([]schema.SlashCommand(nil), e.snaps.commands...)
}

// Servers returns the tool server catalog snapshot.
func (e *Engine) Servers() []schema.MCPServer {
	return append([]schema.MCPServer(nil), e.snaps.servers...)
}

// ActionRequired returns the action-required flag and whether one has
// been received.
func (e *Engine) ActionRequired() (schema.ActionRequired, bool) {
	if e.snaps.action == nil {
		return schema.ActionRequired{}, false
	}
	return *e.snaps.action, true
}

// Confirmations returns the open confirmation requests in arrival order.
func (e *Engine) Confirmations() []schema.ConfirmationRequest {
	out := make([]schema.ConfirmationRequest, 0, len(e.confirms))
	for _, callID := range e.confirmOrder {
		if req, ok := e.confirms[callID]; ok {
			out = append(out, req)
		}
	}
	return out
}
