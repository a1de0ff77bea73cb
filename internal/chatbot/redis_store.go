package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "helpdesk:chat:"

// RedisSessionStore keeps each user's history in a Redis list trimmed to
// maxMessages, expiring idle sessions after ttl.
type RedisSessionStore struct {
	client      redis.UniversalClient
	maxMessages int
	ttl         time.Duration
}

// NewRedisSessionStore builds the Redis-backed store.
func NewRedisSessionStore(client redis.UniversalClient, maxMessages int, ttl time.Duration) *RedisSessionStore {
	if maxMessages <= 0 {
		maxMessages = 10
	}
	return &RedisSessionStore{client: client, maxMessages: maxMessages, ttl: ttl}
}

func (s *RedisSessionStore) History(ctx context.Context, key string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, sessionKeyPrefix+key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *RedisSessionStore) Append(ctx context.Context, key string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		values = append(values, encoded)
	}

	redisKey := sessionKeyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, redisKey, values...)
		pipe.LTrim(ctx, redisKey, int64(-s.maxMessages), -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, redisKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append chat history: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, sessionKeyPrefix+key).Err()
}
