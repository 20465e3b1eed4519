// internal/events/hub.go

// Package events fans committed ledger events out to in-process watchers,
// one set of watchers per lobby.
package events

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	log "github.com/sirupsen/logrus"
)

// Watcher is one subscriber's view of a lobby's event stream.
type Watcher struct {
	ID      uuid.UUID
	Lobby   string
	OutChan chan ledger.Event

	dropped atomic.Int64
}

// Dropped counts events skipped because OutChan was full.
func (w *Watcher) Dropped() int64 {
	return w.dropped.Load()
}

// Hub tracks watchers by lobby address. It implements ledger.EventSink.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[uuid.UUID]*Watcher
	buffer   int
}

// NewHub creates a hub whose watchers buffer up to buffer events each.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		watchers: make(map[string]map[uuid.UUID]*Watcher),
		buffer:   buffer,
	}
}

// Subscribe registers a watcher for lobby.
func (h *Hub) Subscribe(lobby string) *Watcher {
	w := &Watcher{
		ID:      uuid.New(),
		Lobby:   lobby,
		OutChan: make(chan ledger.Event, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[lobby]
	if !ok {
		set = make(map[uuid.UUID]*Watcher)
		h.watchers[lobby] = set
	}
	set[w.ID] = w
	return w
}

// Unsubscribe removes the watcher and closes its channel. Safe to call twice.
func (h *Hub) Unsubscribe(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[w.Lobby]
	if !ok {
		return
	}
	if _, ok := set[w.ID]; !ok {
		return
	}
	delete(set, w.ID)
	close(w.OutChan)
	if len(set) == 0 {
		delete(h.watchers, w.Lobby)
	}
}

// Publish delivers ev to every watcher of its lobby without blocking. A
// watcher that is not keeping up misses the event.
func (h *Hub) Publish(_ context.Context, ev ledger.Event) error {
	if ev.Lobby == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.watchers[ev.Lobby] {
		select {
		case w.OutChan <- ev:
		default:
			w.dropped.Add(1)
			log.WithFields(log.Fields{"watcher": w.ID, "lobby": ev.Lobby}).Warn("watcher too slow, dropping event")
		}
	}
	return nil
}

// Count returns the number of watchers across all lobbies.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.watchers {
		n += len(set)
	}
	return n
}
