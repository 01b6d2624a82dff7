package core

import (
	"testing"

	"pkt.systems/periscope/schema"
)

func TestAppendSupersedesPendingText(t *testing.T) {
	store := NewStore()
	store.SetPending(&schema.PendingItem{Kind: schema.HistoryAgentText, Text: "streaming"})

	store.Append(schema.HistoryEntry{ID: "a1", Kind: schema.HistoryAgentText, Text: "final"})

	if store.Pending() != nil {
		t.Fatalf("expected pending text to be dropped")
	}
	if store.HistoryLen() != 1 {
		t.Fatalf("expected 1 history entry, got %d", store.HistoryLen())
	}
}

func TestAppendSupersedesOverlappingToolGroup(t *testing.T) {
	store := NewStore()
	store.SetPending(&schema.PendingItem{
		Kind:  schema.HistoryToolGroup,
		Tools: []schema.ToolCall{{CallID: "c1", Status: schema.ToolExecuting}},
	})

	store.Append(schema.HistoryEntry{
		ID:    "g1",
		Kind:  schema.HistoryToolGroup,
		Tools: []schema.ToolCall{{CallID: "c1", Status: schema.ToolSuccess}},
	})

	if store.Pending() != nil {
		t.Fatalf("expected overlapping pending group to be dropped")
	}
}

func TestAppendKeepsUnrelatedPending(t *testing.T) {
	store := NewStore()
	store.SetPending(&schema.PendingItem{
		Kind:  schema.HistoryToolGroup,
		Tools: []schema.ToolCall{{CallID: "c1", Status: schema.ToolExecuting}},
	})

	store.Append(schema.HistoryEntry{
		ID:    "g2",
		Kind:  schema.HistoryToolGroup,
		Tools: []schema.ToolCall{{CallID: "c2", Status: schema.ToolSuccess}},
	})

	if store.Pending() == nil {
		t.Fatalf("unrelated pending group must survive")
	}

	store.Append(schema.HistoryEntry{ID: "a1", Kind: schema.HistoryAgentText, Text: "unrelated"})
	if store.Pending() == nil {
		t.Fatalf("agent text must not drop a pending tool group")
	}
}

func TestClearKeepsSnapshots(t *testing.T) {
	store := NewStore()
	store.Append(schema.HistoryEntry{ID: "a1", Kind: schema.HistoryAgentText, Text: "hello"})
	store.SetPending(&schema.PendingItem{Kind: schema.HistoryAgentText, Text: "stream"})
	store.SetFooter(schema.FooterData{Model: "m1"})
	store.SetCommands([]schema.SlashCommand{{Name: "/clear"}})

	store.Clear()

	if store.HistoryLen() != 0 {
		t.Fatalf("expected empty history after clear")
	}
	if store.Pending() != nil {
		t.Fatalf("expected pending dropped after clear")
	}
	if store.Footer().Model != "m1" {
		t.Fatalf("footer must survive a transcript clear")
	}
	if len(store.Commands()) != 1 {
		t.Fatalf("command catalog must survive a transcript clear")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Append(schema.HistoryEntry{ID: "a1", Kind: schema.HistoryAgentText, Text: "hello"})

	history := store.History()
	history[0].Text = "mutated"

	if store.History()[0].Text != "hello" {
		t.Fatalf("History must return a copy")
	}
}
