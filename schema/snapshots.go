package schema

// FooterData is the current status line shown under the transcript.
type FooterData struct {
	Model          string `json:"model,omitempty"`
	Dir            string `json:"dir,omitempty"`
	Branch         string `json:"branch,omitempty"`
	ContextPercent int    `json:"context_percent,omitempty"`
	Sandbox        string `json:"sandbox,omitempty"`
}

// LoadingState reports whether the agent is producing output.
type LoadingState struct {
	Active    bool   `json:"active"`
	Phrase    string `json:"phrase,omitempty"`
	Thought   string `json:"thought,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`
}

// ConsoleMessage is one diagnostic line from the session engine.
type ConsoleMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Count int    `json:"count,omitempty"`
}

// SlashCommand describes one command available to the operator.
type SlashCommand struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MCPServer describes one connected tool server and its tools.
type MCPServer struct {
	Name   string   `json:"name"`
	Status string   `json:"status,omitempty"`
	Tools  []string `json:"tools,omitempty"`
}

// ActionRequired flags that the interactive session needs attention the
// viewer cannot provide (for example a native dialog on the host).
type ActionRequired struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}
