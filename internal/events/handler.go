// internal/events/handler.go
package events

import (
	"context"
	"sync"
)

// Handler reacts to one event. Handlers run on the bus dispatcher, so a slow
// handler delays every later event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Subscription is returned by Subscribe. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id      uint64
	typ     EventType
	handler Handler
	bus     *Bus
	once    sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.unsubscribe(s) })
}
