package service

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"wetalk/internal/broker"
	"wetalk/internal/domain"
	"wetalk/internal/metrics"
	apperrors "wetalk/pkg/errors"
	"wetalk/pkg/logger"
)

// Notifier announces stored messages to the room group: the message event
// first, then the notification event. Each message id is announced once.
type Notifier interface {
	MessagePersisted(ctx context.Context, msg *domain.Message) error
}

type notifier struct {
	broker broker.Broker
	seen   *lru.Cache
	log    logger.Logger
}

func NewNotifier(b broker.Broker, dedupSize int, log logger.Logger) (Notifier, error) {
	if dedupSize <= 0 {
		dedupSize = 1024
	}
	seen, err := lru.New(dedupSize)
	if err != nil {
		return nil, fmt.Errorf("create notifier cache: %w", err)
	}
	return &notifier{broker: b, seen: seen, log: log.With("component", "notifier")}, nil
}

func (n *notifier) MessagePersisted(ctx context.Context, msg *domain.Message) error {
	if found, _ := n.seen.ContainsOrAdd(msg.ID, struct{}{}); found {
		n.log.Debug("Message already announced", "message_id", msg.ID)
		return nil
	}

	group := domain.GroupName(msg.RoomID)

	var errs []error
	for _, evt := range []domain.Event{domain.NewMessageEvent(msg), domain.NewNotificationEvent(msg)} {
		if err := n.broker.Publish(ctx, group, evt); err != nil {
			metrics.FanoutFailures.WithLabelValues(evt.Type).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", evt.Type, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperrors.ErrFanout, errors.Join(errs...))
	}
	return nil
}
