package periscope

import (
	"pkt.systems/periscope/core"
	"pkt.systems/periscope/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnHistory(entry schema.HistoryEntry) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnHistory(entry)
	}
}

func (f eventFanout) OnPendingItem(item *schema.PendingItem) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnPendingItem(item)
	}
}

func (f eventFanout) OnFooter(footer schema.FooterData) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnFooter(footer)
	}
}

func (f eventFanout) OnLoading(loading schema.LoadingState) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnLoading(loading)
	}
}

func (f eventFanout) OnConsole(messages []schema.ConsoleMessage) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnConsole(messages)
	}
}

func (f eventFanout) OnSlashCommands(commands []schema.SlashCommand) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSlashCommands(commands)
	}
}

func (f eventFanout) OnMCPServers(servers []schema.MCPServer) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnMCPServers(servers)
	}
}

func (f eventFanout) OnActionRequired(action schema.ActionRequired) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnActionRequired(action)
	}
}

func (f eventFanout) OnConfirmation(req schema.ConfirmationRequest) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnConfirmation(req)
	}
}

func (f eventFanout) OnConfirmationRemoval(callID schema.CallID) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnConfirmationRemoval(callID)
	}
}

func (f eventFanout) OnClear() {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnClear()
	}
}
