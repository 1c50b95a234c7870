// Package sse implements a Server-Sent Events broker that pushes graph
// interaction events to connected canvases.
//
// Every broadcast carries a sequence id. A client may restrict its stream to
// some event types with ?types=a,b; graph.updated follows the same filter.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscription is one connected client.
type Subscription struct {
	C     <-chan []byte
	ch    chan []byte
	types map[string]bool // nil accepts every type
}

func (s *Subscription) wants(kind string) bool {
	return s.types == nil || s.types[kind]
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithHeartbeat sets how often idle streams get a keep-alive comment.
func WithHeartbeat(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.heartbeat = d
	}
}

// WithRetry sets the reconnect delay advertised to clients.
func WithRetry(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.retry = d
	}
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set, the sequence counter and the
// graph.updated throttle. Public methods talk to it over channels.
type Broker struct {
	graphMin  time.Duration
	heartbeat time.Duration
	retry     time.Duration

	subscribeCh   chan *Subscription
	unsubscribeCh chan *Subscription
	publishCh     chan Event
	graphEventCh  chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration, opts ...BrokerOption) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		heartbeat:     15 * time.Second,
		retry:         3 * time.Second,
		subscribeCh:   make(chan *Subscription),
		unsubscribeCh: make(chan *Subscription),
		publishCh:     make(chan Event, 256),
		graphEventCh:  make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func frame(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[*Subscription]struct{})
	var (
		seq       uint64
		lastGraph time.Time
	)

	broadcast := func(event Event) {
		seq++
		raw, err := frame(seq, event)
		if err != nil {
			return
		}
		for s := range clients {
			if !s.wants(event.Type) {
				continue
			}
			select {
			case s.ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for s := range clients {
				close(s.ch)
			}
			return

		case s := <-b.subscribeCh:
			clients[s] = struct{}{}

		case s := <-b.unsubscribeCh:
			if _, ok := clients[s]; ok {
				delete(clients, s)
				close(s.ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case event := <-b.graphEventCh:
			broadcast(event)

			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: GraphUpdated, Data: GraphChange{Cause: event.Type, Seq: seq}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client receiving the given event types, or every
// type when none are given.
func (b *Broker) Subscribe(types ...string) *Subscription {
	ch := make(chan []byte, 64)
	s := &Subscription{C: ch, ch: ch}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	if b.closed.Load() {
		close(ch)
		return s
	}

	select {
	case b.subscribeCh <- s:
	case <-b.stopped:
		close(ch)
	}
	return s
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(s *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- s:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishGraphEvent publishes an event that changed the visible graph,
// followed by a throttled graph.updated event.
func (b *Broker) PublishGraphEvent(kind string, data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.graphEventCh <- Event{Type: kind, Data: data}:
	case <-b.stopped:
	}
}

// parseTypes reads the comma separated ?types= filter.
func parseTypes(r *http.Request) []string {
	var out []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.retry.Milliseconds())
	flusher.Flush()

	sub := b.Subscribe(parseTypes(r)...)
	defer b.Unsubscribe(sub)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
