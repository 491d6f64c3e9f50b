package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisHistory stores entries as JSON in a capped list.
type RedisHistory struct {
	client redis.Cmdable
	key    string
	max    int
}

func NewRedisHistory(client redis.Cmdable, key string, maxEntries int) (*RedisHistory, error) {
	if client == nil {
		return nil, fmt.Errorf("chat: redis history requires a client")
	}
	if key == "" {
		return nil, fmt.Errorf("chat: redis history requires a key")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &RedisHistory{client: client, key: key, max: maxEntries}, nil
}

func (h *RedisHistory) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateAll(entries); err != nil {
		return err
	}
	values := make([]any, 0, len(entries))
	for _, e := range stamp(entries) {
		b, err := json.Marshal(redisEntry(e))
		if err != nil {
			return fmt.Errorf("chat: encode entry: %w", err)
		}
		values = append(values, b)
	}
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, h.key, values...)
		pipe.LTrim(ctx, h.key, int64(-h.max), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat: append entries: %w", err)
	}
	return nil
}

func (h *RedisHistory) List(ctx context.Context) ([]Entry, error) {
	raw, err := h.client.LRange(ctx, h.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: list entries: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e redisEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("chat: decode entry: %w", err)
		}
		out = append(out, Entry(e))
	}
	return out, nil
}

func (h *RedisHistory) Clear(ctx context.Context) error {
	if err := h.client.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("chat: clear history: %w", err)
	}
	return nil
}
