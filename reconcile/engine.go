// Package reconcile turns the hub's event stream into a coherent local
// projection: an ordered transcript with no duplicate or orphaned
// entries, despite events arriving as the session engine produces them.
// One Engine runs per viewer; it holds no shared state with the hub or
// with other viewers and can be discarded and rebuilt at any time.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

// DefaultMergeWindow bounds how far apart two finalized agent text
// entries may be and still render as one combined entry.
const DefaultMergeWindow = 10 * time.Second

var timeNow = time.Now

// Engine maintains one viewer's projection of the session.
type Engine struct {
	entries []*Entry

	pendingText   *Entry
	pendingGroups map[int]*Entry
	nextHandle    int

	terminal map[schema.CallID]struct{}

	snaps        snapshots
	confirms     map[schema.CallID]schema.ConfirmationRequest
	confirmOrder []schema.CallID

	// MergeWindow may be adjusted before the first event is applied.
	MergeWindow time.Duration

	logger pslog.Logger
}

// NewEngine constructs an empty projection engine.
func NewEngine(logger pslog.Logger) *Engine {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		pendingGroups: make(map[int]*Entry),
		terminal:      make(map[schema.CallID]struct{}),
		confirms:      make(map[schema.CallID]schema.ConfirmationRequest),
		MergeWindow:   DefaultMergeWindow,
		logger:        logger,
	}
}

// Apply dispatches one envelope into the projection. Unknown message
// types return ErrUnknownMessageType; malformed payloads return
// ErrInvalidPayload. Both leave the projection untouched.
func (e *Engine) Apply(env schema.Envelope) error {
	payload, err := env.Decode()
	if err != nil {
		return err
	}
	switch env.Type {
	case schema.MsgConnection:
		e.logger.Debug("reconcile connected")
	case schema.MsgHistorySync:
		sync := payload.(schema.HistorySyncPayload)
		e.LoadSnapshot(sync.History)
	case schema.MsgHistoryItem:
		e.Finalize(payload.(schema.HistoryEntry))
	case schema.MsgPendingItem:
		item := payload.(*schema.PendingItem)
		if item == nil {
			e.ClearPending()
		} else {
			e.UpdatePending(*item)
		}
	case schema.MsgFooterData:
		footer := payload.(schema.FooterData)
		e.snaps.footer = &footer
	case schema.MsgLoadingState:
		loading := payload.(schema.LoadingState)
		e.snaps.loading = &loading
	case schema.MsgConsoleMessages:
		e.snaps.console = payload.([]schema.ConsoleMessage)
	case schema.MsgSlashCommands:
		e.snaps.commands = payload.([]schema.SlashCommand)
	case schema.MsgMCPServers:
		e.snaps.servers = payload.([]schema.MCPServer)
	case schema.MsgActionRequired:
		action := payload.(schema.ActionRequired)
		e.snaps.action = &action
	case schema.MsgToolConfirmation:
		req := payload.(schema.ConfirmationRequest)
		if _, ok := e.confirms[req.CallID]; !ok {
			e.confirms[req.CallID] = req
			e.confirmOrder = append(e.confirmOrder, req.CallID)
		}
	case schema.MsgToolConfirmationRemoval:
		removal := payload.(schema.ConfirmationRemovalPayload)
		delete(e.confirms, removal.CallID)
	case schema.MsgClear:
		e.ClearAll()
	case schema.MsgUserMessage, schema.MsgInterruptRequest, schema.MsgToolConfirmationResponse:
		// Viewer-originated types never flow hub to viewer.
		e.logger.Debug("reconcile ignoring inbound-only type", "type", env.Type)
	default:
		return fmt.Errorf("%w: %q", schema.ErrUnknownMessageType, env.Type)
	}
	return nil
}

// Finalize applies one finalized history entry.
func (e *Engine) Finalize(entry schema.HistoryEntry) {
	switch entry.Kind {
	case schema.HistoryAgentText:
		e.finalizeText(entry)
	case schema.HistoryToolGroup:
		e.finalizeToolGroup(entry)
	default:
		e.appendFinalized(entry, timeNow())
	}
}

// finalizeText promotes or merges streaming agent output. When a pending
// text projection exists and the previous finalized entry is agent text
// finalized within the merge window, the new text is concatenated onto
// that entry instead of creating a new one. The pending text projection
// is cleared on every branch.
func (e *Engine) finalizeText(entry schema.HistoryEntry) {
	now := timeNow()
	prev := e.lastFinalized()
	if e.pendingText != nil && prev != nil && prev.Kind == schema.HistoryAgentText &&
		now.Sub(prev.finalizedAt) <= e.MergeWindow {
		if entry.Text != "" {
			if prev.Text != "" {
				prev.Text += "\n\n"
			}
			prev.Text += entry.Text
		}
		prev.finalizedAt = now
		e.removeEntry(e.pendingText)
		e.pendingText = nil
		e.logger.Debug("reconcile text merged", "entry", prev.ID)
		return
	}
	if pt := e.pendingText; pt != nil {
		pt.Pending = false
		pt.ID = entry.ID
		pt.Text = entry.Text
		pt.Meta = entry.Meta
		pt.CreatedAt = entry.CreatedAt
		pt.finalizedAt = now
		e.pendingText = nil
		e.logger.Debug("reconcile text promoted", "entry", pt.ID)
		return
	}
	e.appendFinalized(entry, now)
}

// finalizeToolGroup lands a finalized group of tool calls. The pending
// group sharing the most call ids is replaced in place to preserve its
// list position; every other pending group sharing any call id is a
// stale duplicate of the same underlying calls and is removed outright.
func (e *Engine) finalizeToolGroup(entry schema.HistoryEntry) {
	for _, call := range entry.Tools {
		e.terminal[call.CallID] = struct{}{}
	}

	var best *Entry
	bestOverlap := 0
	for _, group := range e.pendingGroups {
		overlap := countOverlap(group.Tools, entry.Tools)
		if overlap > bestOverlap {
			best = group
			bestOverlap = overlap
		}
	}

	now := timeNow()
	if best != nil {
		delete(e.pendingGroups, best.handle)
		best.Pending = false
		best.handle = 0
		best.ID = entry.ID
		best.Text = entry.Text
		best.Meta = entry.Meta
		best.Tools = append([]schema.ToolCall(nil), entry.Tools...)
		best.CreatedAt = entry.CreatedAt
		best.finalizedAt = now
	} else {
		e.appendFinalized(entry, now)
	}

	for handle, group := range e.pendingGroups {
		if sharesCall(group.Tools, entry.Tools) {
			delete(e.pendingGroups, handle)
			e.removeEntry(group)
			e.logger.Debug("reconcile stale group dropped", "handle", handle)
		}
	}
}

// UpdatePending applies a pending text or pending tool group update.
func (e *Engine) UpdatePending(item schema.PendingItem) {
	switch item.Kind {
	case schema.HistoryAgentText:
		e.updatePendingText(item)
	case schema.HistoryToolGroup:
		e.updatePendingGroup(item)
	default:
		e.logger.Debug("reconcile pending update ignored", "kind", item.Kind)
	}
}

func (e *Engine) updatePendingText(item schema.PendingItem) {
	if e.pendingText != nil {
		e.pendingText.Text = item.Text
		e.pendingText.CreatedAt = item.UpdatedAt
		return
	}
	entry := &Entry{
		Kind:      schema.HistoryAgentText,
		Pending:   true,
		Text:      item.Text,
		CreatedAt: item.UpdatedAt,
	}
	e.entries = append(e.entries, entry)
	e.pendingText = entry
}

// updatePendingGroup merges live tool call state. Call ids already seen
// in a finalized group are stale echoes of completed tools and are
// dropped before anything else happens.
func (e *Engine) updatePendingGroup(item schema.PendingItem) {
	calls := make([]schema.ToolCall, 0, len(item.Tools))
	for _, call := range item.Tools {
		if _, done := e.terminal[call.CallID]; done {
			continue
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return
	}

	for _, group := range e.pendingGroups {
		if sharesCall(group.Tools, calls) {
			mergeCalls(group, calls)
			group.CreatedAt = item.UpdatedAt
			return
		}
	}

	e.nextHandle++
	entry := &Entry{
		Kind:      schema.HistoryToolGroup,
		Pending:   true,
		Tools:     append([]schema.ToolCall(nil), calls...),
		CreatedAt: item.UpdatedAt,
		handle:    e.nextHandle,
	}
	e.entries = append(e.entries, entry)
	e.pendingGroups[entry.handle] = entry
}

// ClearPending removes the pending text projection and all pending tool
// groups without touching finalized history.
func (e *Engine) ClearPending() {
	if e.pendingText != nil {
		e.removeEntry(e.pendingText)
		e.pendingText = nil
	}
	for handle, group := range e.pendingGroups {
		delete(e.pendingGroups, handle)
		e.removeEntry(group)
	}
}

// ClearAll discards the rendered list, all pending projections, the
// terminal-seen set, and open confirmations.
func (e *Engine) ClearAll() {
	e.entries = nil
	e.pendingText = nil
	e.pendingGroups = make(map[int]*Entry)
	e.terminal = make(map[schema.CallID]struct{})
	e.confirms = make(map[schema.CallID]schema.ConfirmationRequest)
	e.confirmOrder = nil
}

// LoadSnapshot replaces the rendered list with a bootstrap batch. The
// merge-eligibility reference of each entry is re-derived from its own
// timestamp, so historical entries that load in quick succession are not
// merged just because they arrived together. The terminal-seen set is
// re-seeded from the finalized tool groups in the batch.
func (e *Engine) LoadSnapshot(entries []schema.HistoryEntry) {
	e.ClearAll()
	for _, entry := range entries {
		e.appendFinalized(entry, entry.CreatedAt)
		if entry.Kind == schema.HistoryToolGroup {
			for _, call := range entry.Tools {
				e.terminal[call.CallID] = struct{}{}
			}
		}
	}
}

func (e *Engine) appendFinalized(entry schema.HistoryEntry, finalizedAt time.Time) {
	e.entries = append(e.entries, &Entry{
		ID:          entry.ID,
		Kind:        entry.Kind,
		Text:        entry.Text,
		Tools:       append([]schema.ToolCall(nil), entry.Tools...),
		Meta:        entry.Meta,
		CreatedAt:   entry.CreatedAt,
		finalizedAt: finalizedAt,
	})
}

func (e *Engine) lastFinalized() *Entry {
	for i := len(e.entries) - 1; i >= 0; i-- {
		if !e.entries[i].Pending {
			return e.entries[i]
		}
	}
	return nil
}

func (e *Engine) removeEntry(target *Entry) {
	for i, entry := range e.entries {
		if entry == target {
			e.entries = append(e.entries[:i], e.entries[i+1:]...)
			return
		}
	}
}

// mergeCalls replaces calls by id, keeping an existing terminal status
// over any later non-terminal echo. New call ids are appended.
func mergeCalls(group *Entry, incoming []schema.ToolCall) {
	for _, call := range incoming {
		replaced := false
		for i, existing := range group.Tools {
			if existing.CallID != call.CallID {
				continue
			}
			if existing.Status.Terminal() && !call.Status.Terminal() {
				replaced = true
				break
			}
			group.Tools[i] = call
			replaced = true
			break
		}
		if !replaced {
			group.Tools = append(group.Tools, call)
		}
	}
}

func countOverlap(a, b []schema.ToolCall) int {
	count := 0
	for _, callA := range a {
		for _, callB := range b {
			if callA.CallID == callB.CallID {
				count++
				break
			}
		}
	}
	return count
}

func sharesCall(a, b []schema.ToolCall) bool {
	return countOverlap(a, b) > 0
}
