package viewerclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/periscope/reconcile"
	"pkt.systems/periscope/schema"
)

// scriptedHub is a minimal hub stand-in: it pushes a fixed bootstrap,
// waits for one inbound frame, and closes. Closing after the writes
// makes the client's Done channel a safe point to inspect the engine.
func scriptedHub(t *testing.T, inbound chan<- schema.Envelope) http.Handler {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer func() { _ = sock.Close() }()

		sync, err := schema.NewEnvelope(schema.MsgHistorySync, schema.HistorySyncPayload{
			History: []schema.HistoryEntry{{ID: "a1", Kind: schema.HistoryAgentText, Text: "hello"}},
		})
		if err != nil {
			t.Errorf("NewEnvelope: %v", err)
			return
		}
		footer, err := schema.NewEnvelope(schema.MsgFooterData, schema.FooterData{Model: "m1"})
		if err != nil {
			t.Errorf("NewEnvelope: %v", err)
			return
		}
		if err := sock.WriteJSON(sync); err != nil {
			t.Errorf("write sync: %v", err)
			return
		}
		if err := sock.WriteJSON(footer); err != nil {
			t.Errorf("write footer: %v", err)
			return
		}

		_ = sock.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := sock.ReadMessage()
		if err != nil {
			// The client may close without sending anything.
			return
		}
		var env schema.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Errorf("unmarshal inbound: %v", err)
			return
		}
		inbound <- env
		_ = sock.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	})
}

func TestDialRoundTrip(t *testing.T) {
	inbound := make(chan schema.Envelope, 1)
	ts := httptest.NewServer(scriptedHub(t, inbound))
	defer ts.Close()

	engine := reconcile.NewEngine(nil)
	client, err := Dial(context.Background(), ts.URL, engine)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer func() { _ = client.Close() }()

	if err := client.SendUserMessage("ping"); err != nil {
		t.Fatalf("SendUserMessage: %v", err)
	}

	select {
	case env := <-inbound:
		if env.Type != schema.MsgUserMessage {
			t.Fatalf("inbound type = %s", env.Type)
		}
		var msg schema.UserMessagePayload
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.Fatalf("unmarshal user message: %v", err)
		}
		if msg.Content != "ping" {
			t.Fatalf("content = %q", msg.Content)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("hub never received the user message")
	}

	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("read loop never finished")
	}

	// The read loop has exited; the engine is safe to inspect.
	entries := engine.Entries()
	if len(entries) != 1 || entries[0].Text != "hello" {
		t.Fatalf("bootstrap not applied: %+v", entries)
	}
	footer, ok := engine.Footer()
	if !ok || footer.Model != "m1" {
		t.Fatalf("footer not applied: %+v ok=%v", footer, ok)
	}
}

func TestDialContextCancelClosesClient(t *testing.T) {
	inbound := make(chan schema.Envelope, 1)
	ts := httptest.NewServer(scriptedHub(t, inbound))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client, err := Dial(ctx, ts.URL, reconcile.NewEngine(nil))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	cancel()

	select {
	case <-client.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("cancellation did not close the client")
	}
	if err := client.SendUserMessage("late"); err == nil {
		t.Fatalf("send on a closed client must fail")
	}
}

func TestPushURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:8744", "ws://127.0.0.1:8744/ws"},
		{"https://example.com", "wss://example.com/ws"},
		{"ws://example.com/other", "ws://example.com/ws"},
	}
	for _, tc := range cases {
		got, err := pushURL(tc.in)
		if err != nil {
			t.Fatalf("pushURL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("pushURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, err := pushURL("ftp://example.com"); err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Fatalf("expected unsupported scheme error, got %v", err)
	}
}
