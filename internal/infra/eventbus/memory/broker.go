// Package memory provides an in-memory implementation of the message bus.
// It offers a lightweight, non-persistent broker suitable for testing and for
// single-process deployments where durability is not required.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/taskflow/internal/domain/execution"
)

// subscription pairs a handler with the entrypoints it listens on. An empty
// entrypoint set means the handler receives every envelope.
type subscription struct {
	entrypoints map[string]struct{}
	handler     execution.MessageHandler
}

func (s subscription) matches(entrypoint string) bool {
	if len(s.entrypoints) == 0 {
		return true
	}
	_, ok := s.entrypoints[entrypoint]
	return ok
}

// Broker provides an in-memory implementation of execution.MessageBus.
// It enables decoupled communication between components through message
// passing, making it useful for testing and development environments where
// persistence is not required.
type Broker struct {
	mu            sync.RWMutex
	subscriptions map[int]subscription
	nextID        int
	closed        bool
}

var _ execution.MessageBus = (*Broker)(nil)

// NewBroker creates and initializes a new in-memory message broker.
func NewBroker() *Broker {
	return &Broker{subscriptions: make(map[int]subscription)}
}

// Publish delivers an envelope synchronously to every subscriber matching its
// entrypoint, stopping at the first handler error. Handlers are copied before
// iteration to avoid holding the lock while they execute.
func (b *Broker) Publish(ctx context.Context, msg execution.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New("broker is closed")
	}
	matching := make([]execution.MessageHandler, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		if sub.matches(msg.Entrypoint()) {
			matching = append(matching, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range matching {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers a handler for the given entrypoints. The subscription is
// removed when ctx is cancelled.
func (b *Broker) Subscribe(ctx context.Context, entrypoints []string, handler execution.MessageHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	set := make(map[string]struct{}, len(entrypoints))
	for _, ep := range entrypoints {
		set[ep] = struct{}{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("broker is closed")
	}
	id := b.nextID
	b.nextID++
	b.subscriptions[id] = subscription{entrypoints: set, handler: handler}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subscriptions, id)
	}()

	return nil
}

// Close drops every subscription and rejects further publishes.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscriptions = make(map[int]subscription)
	return nil
}
