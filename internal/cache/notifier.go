package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/ravematch/internal/docstore"
)

// RedisCache doubles as the document store change feed over Redis pub/sub.
var _ docstore.Notifier = (*RedisCache)(nil)

func changeChannel(collection string) string {
	return "docstore:changes:" + collection
}

// Publish announces a document write on the collection's channel.
func (c *RedisCache) Publish(ctx context.Context, ch docstore.Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return c.Client.Publish(ctx, changeChannel(ch.Collection), payload).Err()
}

// Subscribe listens to the changes of one collection. The subscription is
// confirmed before returning, so writes published afterwards are delivered.
func (c *RedisCache) Subscribe(ctx context.Context, collection string) (docstore.Subscription, error) {
	ps := c.Client.Subscribe(ctx, changeChannel(collection))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	sub := &redisSubscription{
		ps:   ps,
		out:  make(chan docstore.Change, 16),
		stop: make(chan struct{}),
	}
	go sub.run(ps.Channel())
	return sub, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	out  chan docstore.Change
	stop chan struct{}
	once sync.Once
}

func (s *redisSubscription) run(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.stop:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			var ch docstore.Change
			if err := json.Unmarshal([]byte(msg.Payload), &ch); err != nil {
				continue
			}
			select {
			case s.out <- ch:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *redisSubscription) Changes() <-chan docstore.Change { return s.out }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		err = s.ps.Close()
	})
	return err
}
