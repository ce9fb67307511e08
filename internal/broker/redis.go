package broker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"wetalk/internal/domain"
	"wetalk/pkg/logger"
)

// RedisBroker relays events through Redis pub/sub so that subscribers on
// other processes receive them. One PUBSUB connection is shared per process;
// a group's channel is subscribed while it has at least one local subscriber.
type RedisBroker struct {
	client *redis.Client
	prefix string
	log    logger.Logger
	reg    *registry

	// subMu orders channel SUBSCRIBE/UNSUBSCRIBE with registry changes.
	subMu sync.Mutex
	ps    *redis.PubSub

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewRedisBroker(client *redis.Client, prefix string, log logger.Logger) *RedisBroker {
	b := &RedisBroker{
		client: client,
		prefix: prefix,
		log:    log.With("component", "redis_broker"),
		reg:    newRegistry(),
		done:   make(chan struct{}),
	}
	// PubSub без каналов: подписки добавляются по мере появления групп
	b.ps = client.Subscribe(context.Background())

	b.wg.Add(1)
	go b.dispatch()
	return b
}

func (b *RedisBroker) channel(group string) string {
	return b.prefix + group
}

func (b *RedisBroker) Subscribe(ctx context.Context, group string, sub Subscriber) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}

	b.subMu.Lock()
	defer b.subMu.Unlock()

	if !b.reg.add(group, sub) {
		return nil
	}
	if err := b.ps.Subscribe(ctx, b.channel(group)); err != nil {
		b.reg.remove(group, sub)
		b.log.Error("Failed to subscribe to channel", "error", err, "group", group)
		return err
	}
	return nil
}

func (b *RedisBroker) Unsubscribe(ctx context.Context, group string, sub Subscriber) error {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if !b.reg.remove(group, sub) {
		return nil
	}
	if err := b.ps.Unsubscribe(ctx, b.channel(group)); err != nil {
		b.log.Warn("Failed to unsubscribe from channel", "error", err, "group", group)
		return err
	}
	return nil
}

func (b *RedisBroker) Publish(ctx context.Context, group string, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel(group), payload).Err(); err != nil {
		b.log.Error("Failed to publish event", "error", err, "group", group, "type", evt.Type)
		return err
	}
	return nil
}

func (b *RedisBroker) dispatch() {
	defer b.wg.Done()

	ch := b.ps.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var evt domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.log.Warn("Dropping malformed event", "error", err, "channel", msg.Channel)
				continue
			}
			group := strings.TrimPrefix(msg.Channel, b.prefix)
			for _, sub := range b.reg.snapshot(group) {
				sub.Deliver(evt)
			}
		}
	}
}

func (b *RedisBroker) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		err = b.ps.Close()
		b.wg.Wait()
	})
	return err
}
