package httpapi

import (
	"context"
	"encoding/json"
	"sync"

	"pkt.systems/periscope/core"
	"pkt.systems/periscope/internal/logx"
	"pkt.systems/periscope/schema"
	"pkt.systems/pslog"
)

// Hub owns the authoritative session state and fans every change out to
// all attached viewers. It implements core.EventSink, so the session
// engine publishes through the sink interface and never touches the
// session directly.
//
// One mutex serializes every mutation of the session and the connection
// registry, giving each operation run-to-completion atomicity. The only
// work done per connection on the publish path is a non-blocking queue
// hand-off, so a slow or dead viewer never delays the others; a failed
// hand-off prunes that one connection.
type Hub struct {
	mu      sync.Mutex
	session *core.Session
	conns   map[schema.ConnID]Conn
	welcome string
	logger  pslog.Logger
}

// NewHub constructs a hub around the session.
func NewHub(session *core.Session, welcome string, logger pslog.Logger) *Hub {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		session: session,
		conns:   make(map[schema.ConnID]Conn),
		welcome: welcome,
		logger:  logger,
	}
}

// ClientCount returns the number of attached viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Attach registers a viewer and replays the session snapshot as its
// bootstrap sequence: the full history batch first, then every snapshot
// category (even when empty, so the viewer can tell "empty" from "not
// yet received"), the pending item if present, each open confirmation,
// and the action-required flag if active. The registry entry is created
// in the same critical section, so no live event can slip between the
// snapshot and the first broadcast this connection sees.
func (h *Hub) Attach(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.ID()] = conn

	snap := h.session.Snapshot()
	h.sendTo(conn, schema.MsgConnection, schema.ConnectionPayload{
		Message: h.welcome,
		Clients: len(h.conns),
	})
	h.sendTo(conn, schema.MsgHistorySync, schema.HistorySyncPayload{History: snap.History})
	h.sendTo(conn, schema.MsgFooterData, snap.Footer)
	h.sendTo(conn, schema.MsgLoadingState, snap.Loading)
	h.sendTo(conn, schema.MsgConsoleMessages, snap.Console)
	h.sendTo(conn, schema.MsgSlashCommands, snap.Commands)
	h.sendTo(conn, schema.MsgMCPServers, snap.Servers)
	if snap.Pending != nil {
		h.sendTo(conn, schema.MsgPendingItem, snap.Pending)
	}
	for _, req := range snap.Confirmations {
		h.sendTo(conn, schema.MsgToolConfirmation, req)
	}
	if snap.Action.Active {
		h.sendTo(conn, schema.MsgActionRequired, snap.Action)
	}
	h.logger.Info("hub attach", "conn", conn.ID(), "conns", len(h.conns), "history", len(snap.History))
}

// Detach removes a viewer; it is safe to call more than once.
func (h *Hub) Detach(conn Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn.ID()]
	delete(h.conns, conn.ID())
	remaining := len(h.conns)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
		h.logger.Info("hub detach", "conn", conn.ID(), "conns", remaining)
	}
}

// OnHistory implements core.EventSink.
func (h *Hub) OnHistory(entry schema.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stored := h.session.AppendHistory(entry)
	h.broadcast(schema.MsgHistoryItem, stored)
}

// OnPendingItem implements core.EventSink.
func (h *Hub) OnPendingItem(item *schema.PendingItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stored := h.session.SetPendingItem(item)
	if stored == nil {
		h.broadcast(schema.MsgPendingItem, nil)
		return
	}
	h.broadcast(schema.MsgPendingItem, stored)
}

// OnFooter implements core.EventSink.
func (h *Hub) OnFooter(footer schema.FooterData) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetFooter(footer)
	h.broadcast(schema.MsgFooterData, footer)
}

// OnLoading implements core.EventSink.
func (h *Hub) OnLoading(loading schema.LoadingState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetLoading(loading)
	h.broadcast(schema.MsgLoadingState, loading)
}

// OnConsole implements core.EventSink.
func (h *Hub) OnConsole(messages []schema.ConsoleMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetConsole(messages)
	h.broadcast(schema.MsgConsoleMessages, messages)
}

// OnSlashCommands implements core.EventSink.
func (h *Hub) OnSlashCommands(commands []schema.SlashCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetCommands(commands)
	h.broadcast(schema.MsgSlashCommands, commands)
}

// OnMCPServers implements core.EventSink.
func (h *Hub) OnMCPServers(servers []schema.MCPServer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetServers(servers)
	h.broadcast(schema.MsgMCPServers, servers)
}

// OnActionRequired implements core.EventSink.
func (h *Hub) OnActionRequired(action schema.ActionRequired) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetActionRequired(action)
	h.broadcast(schema.MsgActionRequired, action)
}

// OnConfirmation implements core.EventSink.
func (h *Hub) OnConfirmation(req schema.ConfirmationRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.session.RequestConfirmation(req) {
		h.logger.Debug("hub confirmation duplicate", "call", req.CallID)
		return
	}
	h.broadcast(schema.MsgToolConfirmation, req)
}

// OnConfirmationRemoval implements core.EventSink. The session engine
// calls this when it cancels a tool before the operator answered.
func (h *Hub) OnConfirmationRemoval(callID schema.CallID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.session.WithdrawConfirmation(callID) {
		return
	}
	h.broadcast(schema.MsgToolConfirmationRemoval, schema.ConfirmationRemovalPayload{CallID: callID})
}

// OnClear implements core.EventSink. It truncates the history log and
// tells every viewer to discard its projection.
func (h *Hub) OnClear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.Clear()
	h.broadcast(schema.MsgClear, nil)
}

// RouteInbound dispatches one viewer-originated frame. Malformed JSON,
// unknown message types, and responses for unknown call ids are logged
// and dropped; nothing here can take the hub down.
func (h *Hub) RouteInbound(ctx context.Context, conn Conn, data []byte) {
	log := h.logger.With("conn", conn.ID())
	var env schema.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("hub inbound malformed", "err", err)
		return
	}
	payload, err := env.Decode()
	if err != nil {
		log.Warn("hub inbound dropped", "type", env.Type, "err", err)
		return
	}

	engine := h.engine()
	switch env.Type {
	case schema.MsgUserMessage:
		msg := payload.(schema.UserMessagePayload)
		if engine == nil {
			log.Warn("hub user message dropped", "err", schema.ErrNoEngine)
			return
		}
		if err := engine.OnUserMessage(msg.Content); err != nil {
			log.Warn("hub user message failed", "err", err)
			return
		}
		log.Info("hub user message", "len", len(msg.Content))
	case schema.MsgInterruptRequest:
		if engine == nil {
			log.Warn("hub interrupt dropped", "err", schema.ErrNoEngine)
			return
		}
		engine.OnInterrupt()
		log.Info("hub interrupt")
	case schema.MsgToolConfirmationResponse:
		resp := payload.(schema.ConfirmationResponse)
		clog := logx.WithCall(log, resp.CallID)
		h.mu.Lock()
		_, answerErr := h.session.AnswerConfirmation(resp.CallID)
		if answerErr == nil {
			h.broadcast(schema.MsgToolConfirmationRemoval, schema.ConfirmationRemovalPayload{CallID: resp.CallID})
		}
		h.mu.Unlock()
		if answerErr != nil {
			clog.Debug("hub confirmation response ignored", "err", answerErr)
			return
		}
		if engine != nil {
			engine.OnConfirmation(resp)
		}
		clog.Info("hub confirmation response", "outcome", resp.Outcome)
	default:
		// Hub-to-viewer types arriving inbound are a protocol error.
		log.Warn("hub inbound unexpected type", "type", env.Type)
	}
}

// SetEngine registers the session engine handlers for viewer input.
func (h *Hub) SetEngine(engine core.Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session.SetEngine(engine)
}

func (h *Hub) engine() core.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Engine()
}

// broadcast serializes one envelope and hands it to every connection.
// Callers hold h.mu. A failed hand-off prunes that connection only.
func (h *Hub) broadcast(msgType schema.MessageType, payload any) {
	env, err := schema.NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("hub encode failed", "type", msgType, "err", err)
		return
	}
	for id, conn := range h.conns {
		if err := conn.Send(env); err != nil {
			delete(h.conns, id)
			_ = conn.Close()
			h.logger.Info("hub pruned viewer", "conn", id, "err", err)
		}
	}
}

// sendTo delivers one bootstrap envelope to a single connection.
// Callers hold h.mu.
func (h *Hub) sendTo(conn Conn, msgType schema.MessageType, payload any) {
	env, err := schema.NewEnvelope(msgType, payload)
	if err != nil {
		h.logger.Error("hub encode failed", "type", msgType, "err", err)
		return
	}
	if err := conn.Send(env); err != nil {
		delete(h.conns, conn.ID())
		_ = conn.Close()
		h.logger.Info("hub pruned viewer during bootstrap", "conn", conn.ID(), "err", err)
	}
}
