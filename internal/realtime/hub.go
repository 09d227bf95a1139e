package realtime

import (
	"context"
	"sync"

	"github.com/baharkarakas/custodial-ledger/internal/metrics"
	"github.com/baharkarakas/custodial-ledger/internal/models"
)

// Notifier delivers an event to whatever sessions belong to ev.AccountID.
type Notifier interface {
	Notify(ctx context.Context, ev models.Event)
}

const DefaultSessionBuffer = 16

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSessionBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

type Subscription struct {
	AccountID string
	C         <-chan models.Event

	ch   chan models.Event
	hub  *Hub
	once sync.Once
}

// Subscribe registers a session channel for accountID. Close must be called when the session ends.
func (h *Hub) Subscribe(accountID string) *Subscription {
	ch := make(chan models.Event, h.buffer)
	s := &Subscription{AccountID: accountID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	set, ok := h.subs[accountID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[accountID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	metrics.RealtimeSessions.Inc()
	return s
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		if set, ok := h.subs[s.AccountID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.AccountID)
			}
		}
		close(s.ch)
		h.mu.Unlock()
		metrics.RealtimeSessions.Dec()
	})
}

// Sessions returns the number of live subscriptions for accountID.
func (h *Hub) Sessions(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

// Publish hands ev to every subscription of its account without blocking.
func (h *Hub) Publish(ev models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.AccountID] {
		select {
		case s.ch <- ev:
		default:
			metrics.NotificationsDropped.WithLabelValues("buffer_full").Inc()
		}
	}
}

func (h *Hub) Notify(_ context.Context, ev models.Event) { h.Publish(ev) }
