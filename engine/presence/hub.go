package presence

import (
	"sync"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"golang.org/x/net/websocket"
)

type subscriber struct {
	ch chan Presence
}

// Hub fans presence updates out to websocket subscribers.
// New subscribers receive the last presence immediately.
type Hub struct {
	mu     sync.Mutex
	last   *Presence
	subs   map[*subscriber]struct{}
	closed bool
}

// NewHub creates an empty Hub
func NewHub() *Hub {
	return &Hub{subs: map[*subscriber]struct{}{}}
}

// SetPresence records p and queues it to every subscriber.
// A slow subscriber only ever sees the latest presence.
func (h *Hub) SetPresence(p Presence) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &p
	for sub := range h.subs {
		sub.push(p)
	}
	return nil
}

// Last returns the last presence, if any
func (h *Hub) Last() (Presence, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.last == nil {
		return Presence{}, false
	}
	return *h.last, true
}

// NumSubscribers returns the number of connected subscribers
func (h *Hub) NumSubscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (sub *subscriber) push(p Presence) {
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- p
}

func (h *Hub) subscribe() *subscriber {
	sub := &subscriber{ch: make(chan Presence, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	if h.last != nil {
		sub.push(*h.last)
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Close disconnects all subscribers and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Handler returns the websocket handler serving the presence feed
func (h *Hub) Handler() websocket.Handler {
	return websocket.Handler(h.ServeConn)
}

// ServeConn sends presence updates as json text frames until the peer goes away
func (h *Hub) ServeConn(ws *websocket.Conn) {
	fslog.Debugf("Presence subscriber connected: %s", ws.Request().RemoteAddr)
	sub := h.subscribe()
	defer h.unsubscribe(sub)
	defer ws.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		var msg string
		for websocket.Message.Receive(ws, &msg) == nil {
		}
	}()

	for {
		select {
		case p, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, p); err != nil {
				fslog.Debugf("Presence subscriber %s: %v", ws.Request().RemoteAddr, err)
				return
			}
		case <-gone:
			fslog.Debugf("Presence subscriber disconnected: %s", ws.Request().RemoteAddr)
			return
		}
	}
}
