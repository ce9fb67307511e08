// Package broker fans events out to every connection subscribed to a group,
// across all server processes.
package broker

import (
	"context"
	"errors"

	"wetalk/internal/domain"
)

var ErrClosed = errors.New("broker closed")

// Subscriber is a local receiver of group events. Deliver must not block.
type Subscriber interface {
	ID() string
	Deliver(evt domain.Event)
}

type Broker interface {
	Subscribe(ctx context.Context, group string, sub Subscriber) error
	Unsubscribe(ctx context.Context, group string, sub Subscriber) error
	Publish(ctx context.Context, group string, evt domain.Event) error
	Close() error
}
