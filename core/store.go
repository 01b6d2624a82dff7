package core

import "pkt.systems/periscope/schema"

// Store holds the authoritative session state: the ordered append-only
// history log plus the single current value of each ephemeral category.
// It is not safe for concurrent use; the owning hub serializes access.
type Store struct {
	history  []schema.HistoryEntry
	pending  *schema.PendingItem
	footer   schema.FooterData
	loading  schema.LoadingState
	console  []schema.ConsoleMessage
	commands []schema.SlashCommand
	servers  []schema.MCPServer
	action   schema.ActionRequired
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds an entry to the history log. A finalized entry supersedes
// pending state of the same kind: a pending text item is dropped when an
// agent text entry lands, and a pending tool group is dropped when a
// finalized group shares any of its call ids. Late joiners would
// otherwise bootstrap both the finalized entry and its stale pending
// ancestor.
func (s *Store) Append(entry schema.HistoryEntry) {
	s.history = append(s.history, entry)
	if s.pending == nil {
		return
	}
	switch entry.Kind {
	case schema.HistoryAgentText:
		if s.pending.Kind == schema.HistoryAgentText {
			s.pending = nil
		}
	case schema.HistoryToolGroup:
		if s.pending.Kind == schema.HistoryToolGroup && sharesCallID(s.pending.Tools, entry.Tools) {
			s.pending = nil
		}
	}
}

// History returns a copy of the history log.
func (s *Store) History() []schema.HistoryEntry {
	return append([]schema.HistoryEntry(nil), s.history...)
}

// HistoryLen returns the number of finalized entries.
func (s *Store) HistoryLen() int {
	return len(s.history)
}

// SetPending replaces the pending item wholesale. A nil item clears all
// pending state.
func (s *Store) SetPending(item *schema.PendingItem) {
	s.pending = item
}

// Pending returns the current pending item, or nil.
func (s *Store) Pending() *schema.PendingItem {
	return s.pending
}

// SetFooter replaces the footer snapshot.
func (s *Store) SetFooter(footer schema.FooterData) { s.footer = footer }

// Footer returns the current footer snapshot.
func (s *Store) Footer() schema.FooterData { return s.footer }

// SetLoading replaces the loading snapshot.
func (s *Store) SetLoading(loading schema.LoadingState) { s.loading = loading }

// Loading returns the current loading snapshot.
func (s *Store) Loading() schema.LoadingState { return s.loading }

// SetConsole replaces the console log snapshot.
func (s *Store) SetConsole(messages []schema.ConsoleMessage) {
	s.console = append([]schema.ConsoleMessage(nil), messages...)
}

// Console returns the current console log snapshot.
func (s *Store) Console() []schema.ConsoleMessage {
	return append([]schema.ConsoleMessage(nil), s.console...)
}

// SetCommands replaces the command catalog snapshot.
func (s *Store) SetCommands(commands []schema.SlashCommand) {
	s.commands = append([]schema.SlashCommand(nil), commands...)
}

// Commands returns the current command catalog snapshot.
func (s *Store) Commands() []schema.SlashCommand {
	return append([]schema.SlashCommand(nil), s.commands...)
}

// SetServers replaces the tool server catalog snapshot.
func (s *Store) SetServers(servers []schema.MCPServer) {
	s.servers = append([]schema.MCPServer(nil), servers...)
}

// Servers returns the current tool server catalog snapshot.
func (s *Store) Servers() []schema.MCPServer {
	return append([]schema.MCPServer(nil), s.servers...)
}

// SetActionRequired replaces the action-required flag.
func (s *Store) SetActionRequired(action schema.ActionRequired) { s.action = action }

// ActionRequired returns the current action-required flag.
func (s *Store) ActionRequired() schema.ActionRequired { return s.action }

// Clear truncates the history log and drops pending state. Snapshot
// categories keep their current values; they describe the session, not
// the transcript.
func (s *Store) Clear() {
	s.history = nil
	s.pending = nil
}

func sharesCallID(a, b []schema.ToolCall) bool {
	for _, callA := range a {
		for _, callB := range b {
			if callA.CallID == callB.CallID {
				return true
			}
		}
	}
	return false
}
