package core

import "pkt.systems/periscope/schema"

// EventSink receives one call per authoritative state change of the
// session. The broadcast hub is the primary sink; additional sinks can
// be fanned in by the compositor.
type EventSink interface {
	OnHistory(entry schema.HistoryEntry)
	// OnPendingItem receives the replacement pending item; nil clears
	// all pending state.
	OnPendingItem(item *schema.PendingItem)
	OnFooter(footer schema.FooterData)
	OnLoading(loading schema.LoadingState)
	OnConsole(messages []schema.ConsoleMessage)
	OnSlashCommands(commands []schema.SlashCommand)
	OnMCPServers(servers []schema.MCPServer)
	OnActionRequired(action schema.ActionRequired)
	OnConfirmation(req schema.ConfirmationRequest)
	OnConfirmationRemoval(callID schema.CallID)
	OnClear()
}
