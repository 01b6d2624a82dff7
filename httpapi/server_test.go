package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/periscope/core"
	"pkt.systems/periscope/schema"
)

func newTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	hub := newTestHub()
	server := NewServer(Config{}, hub)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, hub
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Clients != 0 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestWebsocketBootstrapOverWire(t *testing.T) {
	ts, hub := newTestServer(t)
	hub.OnHistory(schema.HistoryEntry{Kind: schema.HistoryUser, Text: "hi"})

	sock, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = sock.Close() }()
	_ = sock.SetReadDeadline(time.Now().Add(5 * time.Second))

	var sawConnection, sawHistory bool
	for !sawConnection || !sawHistory {
		var env schema.Envelope
		if err := sock.ReadJSON(&env); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch env.Type {
		case schema.MsgConnection:
			sawConnection = true
		case schema.MsgHistorySync:
			var sync schema.HistorySyncPayload
			if err := json.Unmarshal(env.Data, &sync); err != nil {
				t.Fatalf("unmarshal history sync: %v", err)
			}
			if len(sync.History) != 1 || sync.History[0].Text != "hi" {
				t.Fatalf("unexpected history: %+v", sync.History)
			}
			sawHistory = true
		}
	}
}

func TestWebsocketInboundRouting(t *testing.T) {
	ts, hub := newTestServer(t)
	received := make(chan string, 1)
	hub.SetEngine(&channelEngine{messages: received})

	sock, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = sock.Close() }()

	env, err := schema.NewEnvelope(schema.MsgUserMessage, schema.UserMessagePayload{Content: "do it"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if err := sock.WriteJSON(env); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	select {
	case msg := <-received:
		if msg != "do it" {
			t.Fatalf("engine received %q", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("engine never received the user message")
	}
}

type channelEngine struct {
	messages chan string
}

func (e *channelEngine) OnUserMessage(content string) error {
	e.messages <- content
	return nil
}

func (e *channelEngine) OnInterrupt() {}

func (e *channelEngine) OnConfirmation(schema.ConfirmationResponse) {}

var _ core.Engine = (*channelEngine)(nil)
