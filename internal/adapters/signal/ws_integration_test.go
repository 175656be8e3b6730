package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/liliumshare/liliumshare/internal/store"
)

func newTestServer(t *testing.T, ctl *Controller) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, pubkey string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + url.Values{"pubkey": {pubkey}}.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return m
}

func TestWSRejectsMissingPubkey(t *testing.T) {
	srv := newTestServer(t, newTestController(store.NewMemory()))

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail without pubkey")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func TestWSJoinFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.AcceptFriendship(ctx, "h1", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := mem.SetPermissions(ctx, "h1", "v1", map[string]bool{"keyboard": true, "autoJoin": true}); err != nil {
		t.Fatal(err)
	}
	ctl := newTestController(mem)
	srv := newTestServer(t, ctl)

	host := dialWS(t, srv, "h1")
	viewer := dialWS(t, srv, "v1")

	if m := readEnvelope(t, host); m["type"] != "hello" || m["you"] != "h1" {
		t.Fatalf("host hello = %v", m)
	}
	if m := readEnvelope(t, viewer); m["type"] != "hello" || m["you"] != "v1" {
		t.Fatalf("viewer hello = %v", m)
	}

	if err := viewer.WriteMessage(websocket.TextMessage, []byte(`{"type":"join-request","host":"h1","viewer":"v1"}`)); err != nil {
		t.Fatal(err)
	}
	m := readEnvelope(t, host)
	if m["type"] != "incoming-join" || m["viewer"] != "v1" {
		t.Fatalf("incoming-join = %v", m)
	}
	perms, _ := m["permissions"].(map[string]any)
	if perms["keyboard"] != true || perms["autoJoin"] != true {
		t.Fatalf("permissions = %v", perms)
	}

	// Host answers with an offer relayed opaquely back to the viewer.
	if err := host.WriteMessage(websocket.TextMessage, []byte(`{"type":"offer","to":"v1","sdp":"v=0 fake"}`)); err != nil {
		t.Fatal(err)
	}
	if m := readEnvelope(t, viewer); m["type"] != "offer" || m["sdp"] != "v=0 fake" {
		t.Fatalf("relayed offer = %v", m)
	}
}

func TestWSReplacementEvictsOldConnection(t *testing.T) {
	mem := store.NewMemory()
	ctl := newTestController(mem)
	srv := newTestServer(t, ctl)

	first := dialWS(t, srv, "x")
	if m := readEnvelope(t, first); m["type"] != "hello" {
		t.Fatalf("first hello = %v", m)
	}

	second := dialWS(t, srv, "x")
	if m := readEnvelope(t, second); m["type"] != "hello" {
		t.Fatalf("second hello = %v", m)
	}

	// The superseded connection is closed by the server.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Fatalf("expected first connection to be closed")
	}

	// Envelopes addressed to x reach only the current connection.
	sender := dialWS(t, srv, "s")
	if m := readEnvelope(t, sender); m["type"] != "hello" {
		t.Fatalf("sender hello = %v", m)
	}
	if err := sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat-msg","to":"x","body":"hi"}`)); err != nil {
		t.Fatal(err)
	}
	if m := readEnvelope(t, second); m["type"] != "chat-msg" || m["body"] != "hi" {
		t.Fatalf("relay to current connection = %v", m)
	}
}
