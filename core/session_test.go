package core

import (
	"testing"
	"time"

	"pkt.systems/periscope/schema"
)

func TestAppendHistoryStampsEntry(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	orig := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = orig })

	session := NewSession()
	stored := session.AppendHistory(schema.HistoryEntry{Kind: schema.HistoryAgentText, Text: "hello"})

	if stored.ID == "" {
		t.Fatalf("expected generated entry id")
	}
	if !stored.CreatedAt.Equal(at) {
		t.Fatalf("expected stamped timestamp, got %v", stored.CreatedAt)
	}

	preStamped := session.AppendHistory(schema.HistoryEntry{ID: "fixed", Kind: schema.HistoryUser, CreatedAt: at.Add(-time.Hour)})
	if preStamped.ID != "fixed" || !preStamped.CreatedAt.Equal(at.Add(-time.Hour)) {
		t.Fatalf("pre-stamped fields must be preserved: %+v", preStamped)
	}
}

func TestSetPendingItemStampsCopy(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	orig := timeNow
	timeNow = func() time.Time { return at }
	t.Cleanup(func() { timeNow = orig })

	session := NewSession()
	item := &schema.PendingItem{Kind: schema.HistoryAgentText, Text: "stream"}
	stored := session.SetPendingItem(item)

	if !stored.UpdatedAt.Equal(at) {
		t.Fatalf("expected stamped UpdatedAt, got %v", stored.UpdatedAt)
	}
	if !item.UpdatedAt.IsZero() {
		t.Fatalf("caller's item must not be mutated")
	}
}

func TestSnapshotIsConsistentCopy(t *testing.T) {
	session := NewSession()
	session.AppendHistory(schema.HistoryEntry{Kind: schema.HistoryUser, Text: "hi"})
	session.SetPendingItem(&schema.PendingItem{Kind: schema.HistoryAgentText, Text: "stream"})
	session.SetFooter(schema.FooterData{Model: "m1"})
	session.RequestConfirmation(schema.ConfirmationRequest{CallID: "c1", ToolName: "rm"})

	snap := session.Snapshot()
	if len(snap.History) != 1 || snap.Pending == nil || snap.Footer.Model != "m1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Confirmations) != 1 || snap.Confirmations[0].CallID != "c1" {
		t.Fatalf("unexpected confirmations: %+v", snap.Confirmations)
	}

	snap.Pending.Text = "mutated"
	if session.Pending().Text != "stream" {
		t.Fatalf("snapshot must not alias session state")
	}
}
