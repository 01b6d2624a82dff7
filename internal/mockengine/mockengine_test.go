package mockengine

import (
	"context"
	"fmt"
	"testing"

	"pkt.systems/periscope/schema"
)

type scriptSink struct {
	history  []schema.HistoryEntry
	pendings int
	clears   int
	requests []schema.ConfirmationRequest
	removals []schema.CallID
	loading  []schema.LoadingState
}

func (s *scriptSink) OnHistory(entry schema.HistoryEntry) { s.history = append(s.history, entry) }
func (s *scriptSink) OnPendingItem(item *schema.PendingItem) {
	if item != nil {
		s.pendings++
	}
}
func (s *scriptSink) OnFooter(schema.FooterData)            {}
func (s *scriptSink) OnLoading(state schema.LoadingState)   { s.loading = append(s.loading, state) }
func (s *scriptSink) OnConsole([]schema.ConsoleMessage)     {}
func (s *scriptSink) OnSlashCommands([]schema.SlashCommand) {}
func (s *scriptSink) OnMCPServers([]schema.MCPServer)       {}
func (s *scriptSink) OnActionRequired(schema.ActionRequired) {
}
func (s *scriptSink) OnConfirmation(req schema.ConfirmationRequest) {
	s.requests = append(s.requests, req)
}
func (s *scriptSink) OnConfirmationRemoval(callID schema.CallID) {
	s.removals = append(s.removals, callID)
}
func (s *scriptSink) OnClear() { s.clears++ }

func lastHistory(s *scriptSink) schema.HistoryEntry {
	return s.history[len(s.history)-1]
}

func TestTurnWithAutoApproval(t *testing.T) {
	sink := &scriptSink{}
	engine := New(sink, Config{AutoApprove: true}, nil)

	if err := engine.runTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("runTurn: %v", err)
	}

	var sawText, sawGroup bool
	for _, entry := range sink.history {
		switch entry.Kind {
		case schema.HistoryAgentText:
			sawText = true
		case schema.HistoryToolGroup:
			sawGroup = true
			if entry.Tools[0].Status != schema.ToolSuccess {
				t.Fatalf("approved tool must succeed, got %s", entry.Tools[0].Status)
			}
		}
	}
	if !sawText || !sawGroup {
		t.Fatalf("turn must finalize text and a tool group: %+v", sink.history)
	}
	if len(sink.requests) != 1 {
		t.Fatalf("expected one confirmation request, got %d", len(sink.requests))
	}
	if sink.pendings == 0 {
		t.Fatalf("turn must stream pending updates")
	}
	if len(sink.loading) < 2 || sink.loading[len(sink.loading)-1].Active {
		t.Fatalf("loading must switch on and back off: %+v", sink.loading)
	}
}

func TestDeniedConfirmationCancelsTool(t *testing.T) {
	sink := &scriptSink{}
	engine := New(sink, Config{}, nil)

	callID := schema.CallID(fmt.Sprintf("call-%08x", hashPrompt("hello")))
	engine.OnConfirmation(schema.ConfirmationResponse{CallID: callID, Outcome: schema.OutcomeDenied})

	if err := engine.runTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("runTurn: %v", err)
	}

	last := lastHistory(sink)
	if last.Kind != schema.HistoryToolGroup {
		t.Fatalf("expected tool group last, got %s", last.Kind)
	}
	if last.Tools[0].Status != schema.ToolCanceled {
		t.Fatalf("denied tool must be canceled, got %s", last.Tools[0].Status)
	}
}

func TestInterruptAbortsTurn(t *testing.T) {
	sink := &scriptSink{}
	engine := New(sink, Config{}, nil)

	engine.OnInterrupt()

	if err := engine.runTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("runTurn: %v", err)
	}

	last := lastHistory(sink)
	if last.Kind != schema.HistorySystemInfo || last.Text != "turn interrupted" {
		t.Fatalf("expected interruption note, got %+v", last)
	}
}

func TestInterruptDuringConfirmationWithdraws(t *testing.T) {
	sink := &scriptSink{}
	engine := New(sink, Config{}, nil)

	// Let the text stream finish, then interrupt while the confirmation
	// is outstanding.
	go func() {
		engine.OnInterrupt()
	}()

	if err := engine.runTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("runTurn: %v", err)
	}

	if len(sink.requests) == 1 && len(sink.removals) != 1 {
		t.Fatalf("an interrupted confirmation must be withdrawn: %+v", sink.removals)
	}
}

func TestReplyIsDeterministic(t *testing.T) {
	if mockReply("same") != mockReply("same") {
		t.Fatalf("reply must be deterministic per prompt")
	}
}
