// Package sse pushes outline changes and navigation hints to connected
// views over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	TypeNoteCreated = "note.created"
	TypeNoteUpdated = "note.updated"
	TypeNoteDeleted = "note.deleted"
	TypeTreeUpdated = "tree.updated"
	TypeNavigate    = "navigate"
)

// Change kinds accepted by PublishNoteEvent.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

var noteEventTypes = map[string]string{
	Created: TypeNoteCreated,
	Updated: TypeNoteUpdated,
	Deleted: TypeNoteDeleted,
}

// Event is one SSE frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// encode renders e in text/event-stream framing.
func (e Event) encode() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload)), nil
}

const clientBuffer = 64

// Broker fans events out to subscribers.
//
// Note events go out as they happen. tree.updated is throttled: the first
// request in a quiet period is sent at once and any further requests within
// the throttle window collapse into one trailing event. Navigate hints are
// latest-wins, so a burst of cursor moves delivers only the final target.
type Broker struct {
	throttle time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event // note events only
	tree   chan struct{}
	count  chan chan int

	navMu   sync.Mutex
	navNext *Event
	navWake chan struct{}

	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewBroker starts a broker that sends at most one tree.updated per
// treeThrottle. A non-positive value means two seconds.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}
	b := &Broker{
		throttle: treeThrottle,
		join:     make(chan chan []byte),
		leave:    make(chan chan []byte),
		events:   make(chan Event, 256),
		tree:     make(chan struct{}, 1),
		count:    make(chan chan int),
		navWake:  make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// hub is the state owned by the loop goroutine.
type hub struct {
	clients map[chan []byte]struct{}

	lastTree    time.Time
	treeTimer   *time.Timer
	treePending bool
}

func (h *hub) send(e Event) {
	frame, err := e.encode()
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- frame:
		default: // client is behind; it misses this frame
		}
	}
}

func (b *Broker) loop() {
	defer close(b.done)

	h := &hub{clients: make(map[chan []byte]struct{})}
	var treeDue <-chan time.Time

	sendTree := func(now time.Time) {
		h.lastTree = now
		h.treePending = false
		treeDue = nil
		h.send(Event{Type: TypeTreeUpdated, Data: struct{}{}})
	}
	requestTree := func() {
		now := time.Now()
		wait := b.throttle - now.Sub(h.lastTree)
		switch {
		case h.treePending:
		case wait <= 0:
			sendTree(now)
		default:
			h.treePending = true
			if h.treeTimer == nil {
				h.treeTimer = time.NewTimer(wait)
			} else {
				h.treeTimer.Reset(wait)
			}
			treeDue = h.treeTimer.C
		}
	}

	for {
		select {
		case <-b.quit:
			if h.treeTimer != nil {
				h.treeTimer.Stop()
			}
			for ch := range h.clients {
				close(ch)
			}
			return

		case ch := <-b.join:
			h.clients[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}

		case e := <-b.events:
			h.send(e)
			requestTree()

		case <-b.tree:
			requestTree()

		case now := <-treeDue:
			sendTree(now)

		case <-b.navWake:
			b.navMu.Lock()
			next := b.navNext
			b.navNext = nil
			b.navMu.Unlock()
			if next != nil {
				h.send(*next)
			}

		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

// Close stops the broker and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a client. The returned channel is closed when the
// client is unsubscribed or the broker stops.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.done:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.done:
		return 0
	}
}

// PublishNoteEvent announces a note change and requests a tree.updated.
// Unknown kinds are ignored.
func (b *Broker) PublishNoteEvent(kind, id string) {
	t, ok := noteEventTypes[kind]
	if !ok || b.closed.Load() {
		return
	}
	select {
	case b.events <- Event{Type: t, Data: map[string]string{"id": id}}:
	case <-b.done:
	}
}

// PublishTreeUpdated requests a tree.updated without a note event, e.g.
// after the backing file was edited outside the app. It shares the throttle
// with note changes.
func (b *Broker) PublishTreeUpdated() {
	if b.closed.Load() {
		return
	}
	select {
	case b.tree <- struct{}{}:
	default: // a request is already queued
	}
}

// Navigate asks views to move to the row described by data. A hint that
// has not been sent yet is replaced by the newer one.
func (b *Broker) Navigate(data any) {
	if b.closed.Load() {
		return
	}
	b.navMu.Lock()
	b.navNext = &Event{Type: TypeNavigate, Data: data}
	b.navMu.Unlock()
	select {
	case b.navWake <- struct{}{}:
	default:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
