package sync

import (
	"sync"

	"bottlebank/models"
)

// eventBus fans committed change events out to subscribers. Events for one
// entity are published while that entity's lock is still held, so each
// subscriber observes per-entity mutations in commit order.
type eventBus struct {
	mu     sync.RWMutex
	subs   map[int]func(models.ChangeEvent)
	nextID int
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]func(models.ChangeEvent))}
}

// subscribe registers fn and returns an unsubscribe func.
func (b *eventBus) subscribe(fn func(models.ChangeEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *eventBus) publish(ev models.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(ev)
	}
}
