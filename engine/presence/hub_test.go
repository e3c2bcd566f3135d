package presence

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"golang.org/x/net/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return ws
}

func receivePresence(t *testing.T, ws *websocket.Conn) Presence {
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var p Presence
	if err := websocket.JSON.Receive(ws, &p); err != nil {
		t.Fatalf("receive: %v", err)
	}
	return p
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for h.NumSubscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", n, h.NumSubscribers())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubLastPresence(t *testing.T) {
	h := NewHub()
	_, ok := h.Last()
	assert.T(t, !ok, "no presence yet")

	p := Presence{Text: "No active world", Level: Idle}
	h.SetPresence(p)
	last, ok := h.Last()
	assert.T(t, ok)
	assert.Equal(t, p, last)
}

func TestHubFeed(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	first := Presence{Text: "No active world", Level: Idle}
	h.SetPresence(first)

	ws := dialHub(t, srv)
	defer ws.Close()
	assert.Equal(t, first, receivePresence(t, ws))

	waitSubscribers(t, h, 1)
	second := Presence{Text: "w1 (1 online)", Level: Online}
	h.SetPresence(second)
	assert.Equal(t, second, receivePresence(t, ws))

	ws.Close()
	waitSubscribers(t, h, 0)
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	ws := dialHub(t, srv)
	defer ws.Close()
	waitSubscribers(t, h, 1)

	h.Close()
	waitSubscribers(t, h, 0)

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var p Presence
	assert.T(t, websocket.JSON.Receive(ws, &p) != nil, "feed should end when the hub closes")
}
