package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anjiri1684/skillazon/models"
	"github.com/go-redis/redis/v8"
)

// RedisRelay shares chat messages between instances over a pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(redisURL, channel string) (*RedisRelay, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		// Plain host:port, as accepted by REDIS_URL in development.
		opts = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Println("🔧 Redis chat relay connected on channel:", channel)
	return &RedisRelay{client: client, channel: channel}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, msg *models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

func (r *RedisRelay) Subscribe(ctx context.Context, deliver func(*models.Message)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg models.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("⚠️ Dropping malformed chat payload: %v", err)
				continue
			}
			deliver(&msg)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
