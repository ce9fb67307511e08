package broker

import (
	"context"
	"sync"

	"wetalk/internal/domain"
)

// MemoryBroker delivers within a single process. Publishing is serialized so
// every subscriber of a group sees events in the same order.
type MemoryBroker struct {
	reg *registry

	mu     sync.Mutex
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{reg: newRegistry()}
}

func (b *MemoryBroker) Subscribe(_ context.Context, group string, sub Subscriber) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	b.reg.add(group, sub)
	return nil
}

func (b *MemoryBroker) Unsubscribe(_ context.Context, group string, sub Subscriber) error {
	b.reg.remove(group, sub)
	return nil
}

func (b *MemoryBroker) Publish(_ context.Context, group string, evt domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.reg.snapshot(group) {
		sub.Deliver(evt)
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
