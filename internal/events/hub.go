package events

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Hub fans committed events out to subscribers. Publish never blocks: a
// subscriber that cannot keep up loses events and the loss is counted.
// Events reach the hub only after their transaction committed, so everything
// a subscriber sees is durable.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscription

	buffer  int
	logger  *zap.Logger
	dropped uint64
}

type subscription struct {
	kind string // empty subscribes to every kind
	ch   chan Event
}

func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   map[uint64]*subscription{},
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers for events of one kind, or all kinds when kind is
// empty. The caller must Unsubscribe with the returned id when done.
func (h *Hub) Subscribe(kind string) (uint64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	sub := &subscription{kind: kind, ch: make(chan Event, h.buffer)}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) Publish(items ...Event) {
	if h == nil || len(items) == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, item := range items {
		for _, sub := range h.subs {
			if sub.kind != "" && sub.kind != item.Kind {
				continue
			}
			select {
			case sub.ch <- item:
			default:
				// Drop when subscriber is slow; publishing must not block.
				atomic.AddUint64(&h.dropped, 1)
			}
		}
	}
}

func (h *Hub) Dropped() uint64 {
	if h == nil {
		return 0
	}
	return atomic.LoadUint64(&h.dropped)
}

func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
