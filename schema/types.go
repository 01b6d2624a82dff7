package schema

// CallID correlates all events and responses related to one tool
// invocation within a session.
type CallID string

// EntryID identifies a history entry.
type EntryID string

// ConnID identifies an attached viewer connection.
type ConnID string

// ToolStatus describes the execution state of a tool call.
type ToolStatus string

const (
	// ToolPending indicates a tool call has been scheduled.
	ToolPending ToolStatus = "pending"
	// ToolConfirming indicates a tool call awaits operator confirmation.
	ToolConfirming ToolStatus = "confirming"
	// ToolExecuting indicates a tool call is running.
	ToolExecuting ToolStatus = "executing"
	// ToolSuccess indicates a tool call finished successfully.
	ToolSuccess ToolStatus = "success"
	// ToolError indicates a tool call failed.
	ToolError ToolStatus = "error"
	// ToolCanceled indicates a tool call was canceled.
	ToolCanceled ToolStatus = "canceled"
)

// Terminal reports whether the status is final. Terminal tool calls are
// immutable; later updates for the same call id are ignored.
func (s ToolStatus) Terminal() bool {
	switch s {
	case ToolSuccess, ToolError, ToolCanceled:
		return true
	default:
		return false
	}
}

// ToolCall is one tool invocation tracked by call identity.
type ToolCall struct {
	CallID        CallID     `json:"call_id"`
	Name          string     `json:"name"`
	Status        ToolStatus `json:"status"`
	ResultSummary string     `json:"result_summary,omitempty"`
	LiveOutput    string     `json:"live_output,omitempty"`
}

// ConfirmationOutcome is the operator's decision for a confirmation request.
type ConfirmationOutcome string

const (
	// OutcomeApproved approves the tool call once.
	OutcomeApproved ConfirmationOutcome = "approved"
	// OutcomeApprovedAlways approves the tool call for the session.
	OutcomeApprovedAlways ConfirmationOutcome = "approved_always"
	// OutcomeDenied rejects the tool call.
	OutcomeDenied ConfirmationOutcome = "denied"
)

// ConfirmationRequest asks the operator to approve a tool call.
type ConfirmationRequest struct {
	CallID   CallID `json:"call_id"`
	ToolName string `json:"tool_name"`
	Details  string `json:"confirmation_details,omitempty"`
}

// ConfirmationResponse is the viewer's answer to a confirmation request.
type ConfirmationResponse struct {
	CallID  CallID              `json:"call_id"`
	Outcome ConfirmationOutcome `json:"outcome"`
	Payload string              `json:"payload,omitempty"`
}
