package schema

import "time"

// HistoryKind classifies a history entry.
type HistoryKind string

const (
	// HistoryUser is operator input.
	HistoryUser HistoryKind = "user"
	// HistoryAgentText is finalized agent output.
	HistoryAgentText HistoryKind = "agent_text"
	// HistoryToolGroup is a finalized set of tool calls sharing one display envelope.
	HistoryToolGroup HistoryKind = "tool_group"
	// HistorySystemInfo is informational output from the session engine.
	HistorySystemInfo HistoryKind = "system_info"
	// HistoryError is an error surfaced by the session engine.
	HistoryError HistoryKind = "error"
	// HistoryAbout is version and environment information.
	HistoryAbout HistoryKind = "about"
	// HistorySessionStats is a usage summary.
	HistorySessionStats HistoryKind = "session_stats"
	// HistorySessionEnd marks the end of a session.
	HistorySessionEnd HistoryKind = "session_end"
	// HistoryCompaction marks a context compaction point.
	HistoryCompaction HistoryKind = "context_compaction"
)

// HistoryEntry is an immutable, append-only record in the session log.
// Once appended it is never mutated or removed except by a clear event
// that truncates the whole log.
type HistoryEntry struct {
	ID        EntryID           `json:"id"`
	Kind      HistoryKind       `json:"kind"`
	Text      string            `json:"text,omitempty"`
	Tools     []ToolCall        `json:"tools,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// PendingItem is in-flight state that has not entered permanent history:
// either a streaming agent response or a set of executing tool calls.
// It is replaced wholesale on each update.
type PendingItem struct {
	Kind      HistoryKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	Tools     []ToolCall  `json:"tools,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
