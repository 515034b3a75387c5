package gateway_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/gateway"
	"github.com/sagecouncil/council/pkg/gen"
	"github.com/sagecouncil/council/pkg/kv"
	"github.com/sagecouncil/council/pkg/ledger"
	"github.com/sagecouncil/council/pkg/store"
)

func newTestServer(t *testing.T, client gen.Client, initialCredits int) *httptest.Server {
	t.Helper()
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	st := store.New(mem)
	l := ledger.New(st)
	g := gateway.New(council.New(client, l, st), st, l)
	g.InitialCredits = initialCredits
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func createSession(t *testing.T, srv *httptest.Server) (sessionID string, credits int) {
	t.Helper()
	resp, out := postJSON(t, srv.URL+"/api/session", map[string]string{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(out["sessionId"], &sessionID); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out["credits"], &credits); err != nil {
		t.Fatal(err)
	}
	return sessionID, credits
}

func echoClient() *gen.Scripted {
	return &gen.Scripted{Script: func(prompt string) gen.Take {
		switch {
		case strings.Contains(prompt, "You are Buddha"):
			return gen.Take{Chunks: []string{"Breathe ", "and let go."}}
		case strings.Contains(prompt, "You are Rumi"):
			return gen.Take{Chunks: []string{"Dance ", "in the light."}}
		default:
			return gen.Take{Err: gen.Transient(errors.New("unscripted"))}
		}
	}}
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, echoClient(), 0)

	sessionID, credits := createSession(t, srv)
	if sessionID == "" {
		t.Fatal("no session id issued")
	}
	if credits != gateway.DefaultInitialCredits {
		t.Fatalf("credits = %d, want %d", credits, gateway.DefaultInitialCredits)
	}

	// Revisiting the same session must not re-grant.
	resp, out := postJSON(t, srv.URL+"/api/session", map[string]string{"sessionId": sessionID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("revisit status = %d", resp.StatusCode)
	}
	var again int
	if err := json.Unmarshal(out["credits"], &again); err != nil {
		t.Fatal(err)
	}
	if again != credits {
		t.Fatalf("revisit credits = %d, want %d", again, credits)
	}
}

func TestChatFallback(t *testing.T) {
	srv := newTestServer(t, echoClient(), 0)
	sessionID, _ := createSession(t, srv)

	resp, out := postJSON(t, srv.URL+"/api/chat", map[string]any{
		"content":       "How do I find peace?",
		"selectedSages": []string{"buddha", "rumi"},
		"sessionId":     sessionID,
		"messageId":     42,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d: %s", resp.StatusCode, out["error"])
	}
	var responses map[string]string
	if err := json.Unmarshal(out["responses"], &responses); err != nil {
		t.Fatal(err)
	}
	if responses["buddha"] != "Breathe and let go." || responses["rumi"] != "Dance in the light." {
		t.Fatalf("responses = %+v", responses)
	}

	// The client's message id comes back so it can match its optimistic state.
	var msgID int64
	if err := json.Unmarshal(out["messageId"], &msgID); err != nil {
		t.Fatal(err)
	}
	if msgID != 42 {
		t.Fatalf("messageId = %d, want 42", msgID)
	}

	// The consultation is on the record.
	hist, err := http.Get(srv.URL + "/api/messages/" + sessionID)
	if err != nil {
		t.Fatal(err)
	}
	defer hist.Body.Close()
	var msgs []*store.Message
	if err := json.NewDecoder(hist.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "How do I find peace?" {
		t.Fatalf("history = %+v", msgs)
	}
}

func TestChatStatusMapping(t *testing.T) {
	srv := newTestServer(t, echoClient(), 1)
	sessionID, _ := createSession(t, srv)

	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"empty content", map[string]any{"content": "", "selectedSages": []string{"buddha"}, "sessionId": sessionID}, http.StatusBadRequest},
		{"no valid sages", map[string]any{"content": "q", "selectedSages": []string{"socrates"}, "sessionId": sessionID}, http.StatusBadRequest},
		{"unknown session", map[string]any{"content": "q", "selectedSages": []string{"buddha"}, "sessionId": "ghost"}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		resp, out := postJSON(t, srv.URL+"/api/chat", tc.body)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, resp.StatusCode, tc.status, out["error"])
		}
	}

	// Spend the single credit, then the next consultation is forbidden.
	if resp, out := postJSON(t, srv.URL+"/api/chat", map[string]any{
		"content": "q", "selectedSages": []string{"buddha"}, "sessionId": sessionID,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("spend status = %d (%s)", resp.StatusCode, out["error"])
	}
	if resp, _ := postJSON(t, srv.URL+"/api/chat", map[string]any{
		"content": "q", "selectedSages": []string{"buddha"}, "sessionId": sessionID,
	}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("at zero status = %d, want 403", resp.StatusCode)
	}

	// A purchase unblocks the session.
	if resp, _ := postJSON(t, srv.URL+"/api/credits/purchase", map[string]any{
		"sessionId": sessionID, "amount": 5,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase status = %d", resp.StatusCode)
	}
	if resp, _ := postJSON(t, srv.URL+"/api/chat", map[string]any{
		"content": "q", "selectedSages": []string{"buddha"}, "sessionId": sessionID,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("after purchase status = %d", resp.StatusCode)
	}
}

func TestChatTotalFailure(t *testing.T) {
	down := &gen.Scripted{Script: func(string) gen.Take {
		return gen.Take{Err: gen.Transient(errors.New("backend down"))}
	}}
	srv := newTestServer(t, down, 0)
	sessionID, credits := createSession(t, srv)

	resp, _ := postJSON(t, srv.URL+"/api/chat", map[string]any{
		"content": "q", "selectedSages": []string{"buddha"}, "sessionId": sessionID,
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	// Total failure refunds: the balance is untouched.
	_, out := postJSON(t, srv.URL+"/api/session", map[string]string{"sessionId": sessionID})
	var after int
	if err := json.Unmarshal(out["credits"], &after); err != nil {
		t.Fatal(err)
	}
	if after != credits {
		t.Fatalf("credits after total failure = %d, want %d", after, credits)
	}
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebSocketStreaming(t *testing.T) {
	srv := newTestServer(t, echoClient(), 0)
	sessionID, _ := createSession(t, srv)
	conn := dialWS(t, srv)

	start := council.Frame{
		Type:          council.TypeStartChat,
		Content:       "How do I find peace?",
		SelectedSages: []string{"buddha", "rumi"},
		SessionID:     sessionID,
		MessageID:     42,
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatal(err)
	}

	chunks := map[string]string{}
	completes := map[string]string{}
	for len(completes) < 2 {
		var f council.Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v (completes so far: %v)", err, completes)
		}
		if f.MessageID != 42 {
			t.Fatalf("frame for message %d, want 42", f.MessageID)
		}
		switch f.Type {
		case council.TypeStream:
			chunks[f.SageID] += f.Chunk
		case council.TypeComplete:
			completes[f.SageID] = f.Response
		case council.TypeError:
			t.Fatalf("unexpected error frame: %s", f.Message)
		}
	}

	for sageID, want := range map[string]string{
		"buddha": "Breathe and let go.",
		"rumi":   "Dance in the light.",
	} {
		if completes[sageID] != want {
			t.Errorf("%s complete = %q, want %q", sageID, completes[sageID], want)
		}
		if chunks[sageID] != want {
			t.Errorf("%s streamed = %q, want %q", sageID, chunks[sageID], want)
		}
	}

	// Exactly one credit spent for the whole fan-out.
	_, out := postJSON(t, srv.URL+"/api/session", map[string]string{"sessionId": sessionID})
	var after int
	if err := json.Unmarshal(out["credits"], &after); err != nil {
		t.Fatal(err)
	}
	if after != gateway.DefaultInitialCredits-1 {
		t.Fatalf("credits = %d, want %d", after, gateway.DefaultInitialCredits-1)
	}
}

func TestWebSocketRequestError(t *testing.T) {
	srv := newTestServer(t, echoClient(), 0)
	conn := dialWS(t, srv)

	start := council.Frame{
		Type:          council.TypeStartChat,
		Content:       "q",
		SelectedSages: []string{"buddha"},
		SessionID:     "ghost",
		MessageID:     7,
	}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatal(err)
	}
	var f council.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != council.TypeError || f.MessageID != 7 {
		t.Fatalf("frame = %+v, want error for message 7", f)
	}
	if f.Message != "Session not found" {
		t.Fatalf("message = %q", f.Message)
	}
}

func TestWebSocketSupersede(t *testing.T) {
	srv := newTestServer(t, echoClient(), 0)
	sessionID, _ := createSession(t, srv)

	first := dialWS(t, srv)
	start := council.Frame{
		Type: council.TypeStartChat, Content: "q",
		SelectedSages: []string{"buddha"}, SessionID: sessionID, MessageID: 1,
	}
	if err := first.WriteJSON(start); err != nil {
		t.Fatal(err)
	}
	// Drain the first consultation so the claim is established.
	for {
		var f council.Frame
		if err := first.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if f.Type == council.TypeComplete {
			break
		}
	}

	second := dialWS(t, srv)
	start.MessageID = 2
	if err := second.WriteJSON(start); err != nil {
		t.Fatal(err)
	}
	// The second socket works...
	sawComplete := false
	for !sawComplete {
		var f council.Frame
		if err := second.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		sawComplete = f.Type == council.TypeComplete
	}
	// ...and the first has been closed by the supersede.
	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f council.Frame
	if err := first.ReadJSON(&f); err == nil {
		t.Fatalf("superseded socket still live, read %+v", f)
	}
}
