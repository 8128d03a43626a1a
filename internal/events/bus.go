// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// DefaultBufferSize is used when NewBus is given a non-positive size.
const DefaultBufferSize = 256

var (
	ErrBusClosed  = errors.New("event bus is shutting down")
	ErrBufferFull = errors.New("event queue full")
)

// Bus fans program events out to subscribers.
//
// Publish never blocks the committing operation: events are queued and a
// single dispatcher delivers them in publish order. An operation publishes
// only after its commit returns, so events from one caller arrive in the
// order that caller committed them. A full queue drops the event and reports
// ErrBufferFull.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]*subscription
	nextID uint64
	closed bool

	queue  chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	delivered atomic.Uint64
	dropped   atomic.Uint64
	logger    *zap.Logger
}

// NewBus starts the dispatcher.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subs:   make(map[EventType][]*subscription),
		queue:  make(chan Event, bufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("event_bus"),
	}
	go b.dispatch()
	return b
}

// Subscribe registers handler for one event type. Handlers of the same type
// run in subscription order.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &subscription{id: b.nextID, typ: eventType, handler: handler, bus: b}
	b.subs[eventType] = append(b.subs[eventType], s)

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.Uint64("subscription_id", s.id))
	return s
}

// SubscribeFunc is Subscribe for a plain function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues event for asynchronous delivery.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.String("event_id", event.ID().String()))
		return ErrBufferFull
	}
}

// PublishSync delivers event on the caller's goroutine and joins handler
// errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range b.snapshot(event.Type()) {
		if err := b.deliver(ctx, s, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handler(s) failed for %s: %w", len(errs), event.Type(), errors.Join(errs...))
	}
	return nil
}

func (b *Bus) snapshot(t EventType) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*subscription(nil), b.subs[t]...)
}

// deliver runs one handler. A panicking handler is logged and reported as an
// error; it never takes the dispatcher down.
func (b *Bus) deliver(ctx context.Context, s *subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panicked: %v", s.id, r)
		}
		if err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("event_id", event.ID().String()),
				zap.Uint64("subscription_id", s.id),
				zap.Error(err))
		}
	}()
	return s.handler.Handle(ctx, event)
}

func (b *Bus) dispatch() {
	defer close(b.done)
	// queue закрывается в Shutdown, range дочитывает остаток
	for event := range b.queue {
		_ = b.PublishSync(b.ctx, event)
		b.delivered.Add(1)
	}
}

func (b *Bus) unsubscribe(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[s.typ]
	for i, cur := range list {
		if cur == s {
			b.subs[s.typ] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[s.typ]) == 0 {
		delete(b.subs, s.typ)
	}
}

// Shutdown stops accepting events and waits for the queue to drain. If ctx
// expires first, handlers still running see their context cancelled.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
		b.logger.Info("Shutting down event bus", zap.Int("pending", len(b.queue)))
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		b.cancel()
		return nil
	case <-ctx.Done():
		b.cancel()
		b.logger.Warn("Event bus shutdown timeout", zap.Int("pending", len(b.queue)))
		return ctx.Err()
	}
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	BufferSize  int
	Pending     int
	Delivered   uint64
	Dropped     uint64
	Subscribers map[EventType]int
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{
		BufferSize:  cap(b.queue),
		Pending:     len(b.queue),
		Delivered:   b.delivered.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: make(map[EventType]int, len(b.subs)),
	}
	for t, list := range b.subs {
		st.Subscribers[t] = len(list)
	}
	return st
}
