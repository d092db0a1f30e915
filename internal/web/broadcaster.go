package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/MechGo/internal/telemetry"
)

// SSE event names.
const (
	EventStatus    = "status"
	EventTelemetry = "telemetry"
)

// Event is one SSE message: an event name and a JSON payload.
type Event struct {
	Name string
	Data string
}

// StatusEvent is the payload of a status (log) event.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// TableEvent is one telemetry table in a telemetry event.
type TableEvent struct {
	Table  string             `json:"table"`
	Values map[string]float64 `json:"values"`
}

// Broadcaster distributes events to multiple SSE clients.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
	now     func() time.Time
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan Event]struct{}),
		now:     time.Now,
	}
}

// Subscribe returns a channel that receives broadcast events and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Clients returns the number of subscribers.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) send(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	evt := Event{Name: name, Data: string(data)}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- evt:
		default:
			// slow client, drop
		}
	}
}

// Broadcast sends a status message: {"t":"...","l":"info","msg":"..."}.
// Slow clients may miss messages (non-blocking, buffered).
func (b *Broadcaster) Broadcast(level, msg string) {
	b.send(EventStatus, StatusEvent{
		Time:  b.now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	})
}

// PublishTables sends the given tables as one telemetry event.
func (b *Broadcaster) PublishTables(tables []telemetry.Table) {
	if len(tables) == 0 {
		return
	}
	out := make([]TableEvent, len(tables))
	for i, t := range tables {
		out[i] = TableEvent{Table: t.Name, Values: t.Values}
	}
	b.send(EventTelemetry, out)
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to SSE clients.
func BroadcastWriter(b *Broadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps Broadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *Broadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(string(p), "\n") {
		if msg := strings.TrimSpace(line); msg != "" {
			w.b.Broadcast("info", msg)
		}
	}
	return len(p), nil
}
