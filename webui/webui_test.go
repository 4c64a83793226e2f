package webui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/birabittoh/relaybot/telegram"
	"github.com/gorilla/websocket"
)

func newTestBot(t *testing.T) *telegram.RelayBot {
	t.Helper()
	rules, err := telegram.NewRuleTable([]telegram.Rule{{Trigger: "#news", Destination: -1001}})
	if err != nil {
		t.Fatal(err)
	}
	return &telegram.RelayBot{
		Rules: rules,
		Store: telegram.NewStore(""), // in-memory
	}
}

func TestStatsHandler(t *testing.T) {
	bot := newTestBot(t)
	bot.Store.IncrementStats(123, []telegram.StatKind{telegram.StatText})
	bot.Store.IncrementStats(456, []telegram.StatKind{telegram.StatPhoto, telegram.StatText})

	rr := httptest.NewRecorder()
	statsHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	var all map[string]telegram.ChatStats
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 chats, got %d", len(all))
	}
	if all["456"][telegram.StatPhoto] != 1 {
		t.Errorf("expected 1 photo for chat 456, got %v", all["456"])
	}

	rr = httptest.NewRecorder()
	statsHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats?id=123", nil))
	var one telegram.ChatStats
	if err := json.Unmarshal(rr.Body.Bytes(), &one); err != nil {
		t.Fatal(err)
	}
	if one[telegram.StatText] != 1 {
		t.Errorf("expected 1 text for chat 123, got %v", one)
	}

	rr = httptest.NewRecorder()
	statsHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats?id=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestResetStatsHandler(t *testing.T) {
	bot := newTestBot(t)
	bot.Store.IncrementStats(123, []telegram.StatKind{telegram.StatText})

	rr := httptest.NewRecorder()
	resetStatsHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats/reset?id=123", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}

	form := url.Values{"id": {"123"}}
	req := httptest.NewRequest(http.MethodPost, "/api/stats/reset", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	resetStatsHandler(bot).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("POST status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := bot.Store.GetStats(123)[telegram.StatText]; got != 0 {
		t.Errorf("text count after reset = %d, want 0", got)
	}
}

func TestRulesAndPendingHandlers(t *testing.T) {
	bot := newTestBot(t)
	bot.Store.AppendToBuffer("album", telegram.IncomingMessage{ID: 1, MediaGroupID: "album"})

	rr := httptest.NewRecorder()
	rulesHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	var rules []telegram.Rule
	if err := json.Unmarshal(rr.Body.Bytes(), &rules); err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Trigger != "#news" {
		t.Errorf("rules = %v", rules)
	}

	rr = httptest.NewRecorder()
	pendingHandler(bot).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/pending", nil))
	var pending map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &pending); err != nil {
		t.Fatal(err)
	}
	if pending["album"] != 1 {
		t.Errorf("pending = %v", pending)
	}
}

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub()
	srv := httptest.NewServer(newRouter(newTestBot(t), hub))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	want := telegram.RelayEvent{Type: telegram.EventBatchForwarded, MediaGroupID: "album", Destination: -1001}
	// registration is asynchronous, keep broadcasting until the client sees an event
	deadline := time.Now().Add(2 * time.Second)
	conn.SetReadDeadline(deadline)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(20 * time.Millisecond):
				hub.Broadcast(want)
			}
		}
	}()
	defer close(done)

	var got telegram.RelayEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != want.Type || got.MediaGroupID != want.MediaGroupID || got.Destination != want.Destination {
		t.Errorf("event = %+v, want %+v", got, want)
	}
}
