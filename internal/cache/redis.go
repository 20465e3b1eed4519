// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "pokerbets_events"

// ConnectRedis initializes the global Redis client and pings it.
func ConnectRedis(ctx context.Context, addr string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// Publisher pushes ledger events onto a Redis list. It implements
// ledger.EventSink.
type Publisher struct {
	Client *redis.Client
	Queue  string
}

func NewPublisher(client *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{Client: client, Queue: queue}
}

// Publish serializes the event to JSON and RPUSHes it onto the queue.
func (p *Publisher) Publish(ctx context.Context, ev ledger.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}
	if err := p.Client.RPush(ctx, p.Queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.Queue, err)
	}
	return nil
}

// PopEvent blocks up to timeout for the next event on queue. It returns
// (nil, nil) when the wait times out.
func PopEvent(ctx context.Context, client *redis.Client, queue string, timeout time.Duration) (*ledger.Event, error) {
	res, err := client.BLPop(ctx, timeout, queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop: %w", err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var ev ledger.Event
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return nil, fmt.Errorf("invalid event record: %w", err)
	}
	return &ev, nil
}
