// Package mockengine is a scripted session engine for demos and tests.
// It publishes a deterministic stream of session events through a
// core.EventSink and reacts to viewer input the way a real interactive
// agent session would: streamed text, tool groups with a confirmation
// round-trip, footer updates, and an interruptible turn.
package mockengine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"pkt.systems/periscope/core"
	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

// Config tunes the script pacing.
type Config struct {
	// Delay is the pause between emitted events. Zero means no pacing,
	// which is what tests want.
	Delay time.Duration
	// AutoApprove answers every confirmation request itself after one
	// delay interval, so the demo progresses without operator input.
	AutoApprove bool
}

// Engine drives the script. It implements core.Engine; viewer input is
// queued per kind and consumed by the Run loop, which is the only
// goroutine that publishes to the sink.
type Engine struct {
	sink   core.EventSink
	cfg    Config
	logger pslog.Logger

	userMsgs   chan string
	interrupts chan struct{}
	confirms   chan schema.ConfirmationResponse
}

// New constructs the engine around the sink it will publish through.
func New(sink core.EventSink, cfg Config, logger pslog.Logger) *Engine {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Engine{
		sink:       sink,
		cfg:        cfg,
		logger:     logger,
		userMsgs:   make(chan string, 16),
		interrupts: make(chan struct{}, 1),
		confirms:   make(chan schema.ConfirmationResponse, 16),
	}
}

// OnUserMessage implements core.Engine.
func (e *Engine) OnUserMessage(content string) error {
	select {
	case e.userMsgs <- content:
		return nil
	default:
		return errors.New("mock engine busy")
	}
}

// OnInterrupt implements core.Engine.
func (e *Engine) OnInterrupt() {
	select {
	case e.interrupts <- struct{}{}:
	default:
	}
}

// OnConfirmation implements core.Engine.
func (e *Engine) OnConfirmation(resp schema.ConfirmationResponse) {
	select {
	case e.confirms <- resp:
	default:
	}
}

// Run publishes the opening snapshot, plays one scripted turn, then
// serves viewer input until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	e.publishBaseline()
	if err := e.runTurn(ctx, "show me around"); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistorySessionEnd, Text: "session ended"})
			return ctx.Err()
		case content := <-e.userMsgs:
			e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistoryUser, Text: content})
			if err := e.runTurn(ctx, content); err != nil {
				return err
			}
		case <-e.interrupts:
			// Nothing running between turns; acknowledge and move on.
			e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistorySystemInfo, Text: "nothing to interrupt"})
		case resp := <-e.confirms:
			e.logger.Debug("mock stray confirmation", "call", resp.CallID)
		}
	}
}

func (e *Engine) publishBaseline() {
	e.sink.OnFooter(schema.FooterData{
		Model:          "mock-1",
		Dir:            "~/demo",
		Branch:         "main",
		ContextPercent: 97,
		Sandbox:        "read-only",
	})
	e.sink.OnSlashCommands([]schema.SlashCommand{
		{Name: "/clear", Description: "clear the transcript"},
		{Name: "/stats", Description: "show session statistics"},
	})
	e.sink.OnMCPServers([]schema.MCPServer{
		{Name: "filesystem", Status: "connected", Tools: []string{"read_file", "list_dir"}},
	})
	e.sink.OnConsole([]schema.ConsoleMessage{
		{Level: "info", Text: "mock engine started"},
	})
	e.sink.OnHistory(schema.HistoryEntry{
		Kind: schema.HistorySystemInfo,
		Text: "connected to mock session",
	})
}

// runTurn streams a text response, runs one tool call through the
// confirmation round-trip, and closes the turn with a footer update.
// An interrupt cancels whatever phase is in flight.
func (e *Engine) runTurn(ctx context.Context, prompt string) error {
	e.sink.OnLoading(schema.LoadingState{Active: true, Phrase: "Thinking"})
	defer e.sink.OnLoading(schema.LoadingState{Active: false})

	reply := mockReply(prompt)
	words := strings.Fields(reply)
	var text strings.Builder
	for i, word := range words {
		if i > 0 {
			text.WriteString(" ")
		}
		text.WriteString(word)
		e.sink.OnPendingItem(&schema.PendingItem{
			Kind: schema.HistoryAgentText,
			Text: text.String(),
		})
		if interrupted, err := e.pace(ctx); err != nil || interrupted {
			return e.abortTurn(err)
		}
	}
	e.sink.OnPendingItem(nil)
	e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistoryAgentText, Text: reply})

	if err := e.runToolCall(ctx, prompt); err != nil {
		return err
	}

	e.sink.OnFooter(schema.FooterData{
		Model:          "mock-1",
		Dir:            "~/demo",
		Branch:         "main",
		ContextPercent: 90,
		Sandbox:        "read-only",
	})
	return nil
}

func (e *Engine) runToolCall(ctx context.Context, prompt string) error {
	callID := schema.CallID(fmt.Sprintf("call-%08x", hashPrompt(prompt)))
	call := schema.ToolCall{CallID: callID, Name: "list_dir", Status: schema.ToolPending}
	e.sink.OnPendingItem(&schema.PendingItem{Kind: schema.HistoryToolGroup, Tools: []schema.ToolCall{call}})
	if interrupted, err := e.pace(ctx); err != nil || interrupted {
		return e.abortTurn(err)
	}

	call.Status = schema.ToolConfirming
	e.sink.OnPendingItem(&schema.PendingItem{Kind: schema.HistoryToolGroup, Tools: []schema.ToolCall{call}})
	e.sink.OnConfirmation(schema.ConfirmationRequest{
		CallID:   callID,
		ToolName: call.Name,
		Details:  "list the demo directory",
	})

	outcome, err := e.awaitConfirmation(ctx, callID)
	if err != nil {
		e.sink.OnConfirmationRemoval(callID)
		return e.abortTurn(err)
	}
	if outcome == schema.OutcomeDenied {
		call.Status = schema.ToolCanceled
		call.ResultSummary = "denied by operator"
		e.sink.OnPendingItem(nil)
		e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistoryToolGroup, Tools: []schema.ToolCall{call}})
		return nil
	}

	call.Status = schema.ToolExecuting
	for _, line := range []string{"README.md", "README.md\nmain.go"} {
		call.LiveOutput = line
		e.sink.OnPendingItem(&schema.PendingItem{Kind: schema.HistoryToolGroup, Tools: []schema.ToolCall{call}})
		if interrupted, err := e.pace(ctx); err != nil || interrupted {
			return e.abortTurn(err)
		}
	}

	call.Status = schema.ToolSuccess
	call.ResultSummary = "2 entries"
	call.LiveOutput = ""
	e.sink.OnPendingItem(nil)
	e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistoryToolGroup, Tools: []schema.ToolCall{call}})
	return nil
}

// awaitConfirmation blocks until the viewer answers, the turn is
// interrupted, or ctx ends. Interrupt and cancellation surface as errors
// so the caller withdraws the request.
func (e *Engine) awaitConfirmation(ctx context.Context, callID schema.CallID) (schema.ConfirmationOutcome, error) {
	if e.cfg.AutoApprove {
		if _, err := e.pace(ctx); err != nil {
			return "", err
		}
		return schema.OutcomeApproved, nil
	}
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-e.interrupts:
			return "", errInterrupted
		case resp := <-e.confirms:
			if resp.CallID == callID {
				return resp.Outcome, nil
			}
			e.logger.Debug("mock confirmation for unknown call dropped", "call", resp.CallID)
		}
	}
}

var errInterrupted = errors.New("turn interrupted")

// pace sleeps one delay interval and reports whether an interrupt
// arrived meanwhile.
func (e *Engine) pace(ctx context.Context) (bool, error) {
	if e.cfg.Delay <= 0 {
		select {
		case <-e.interrupts:
			return true, nil
		default:
			return false, nil
		}
	}
	timer := time.NewTimer(e.cfg.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-e.interrupts:
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

func (e *Engine) abortTurn(err error) error {
	e.sink.OnPendingItem(nil)
	if err == nil || errors.Is(err, errInterrupted) {
		e.sink.OnHistory(schema.HistoryEntry{Kind: schema.HistorySystemInfo, Text: "turn interrupted"})
		return nil
	}
	return err
}

func hashPrompt(prompt string) uint32 {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(prompt))
	return hasher.Sum32()
}

func mockReply(prompt string) string {
	templates := []string{
		"Mock response: handled request %q.",
		"Mock response: completed task for %q.",
		"Mock response: produced summary for %q.",
	}
	idx := int(hashPrompt(prompt) % uint32(len(templates)))
	return fmt.Sprintf(templates[idx], prompt)
}
