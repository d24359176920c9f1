package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SaiNageswarS/course-rag/llm"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "course-rag:session:"

// RedisStore keeps each session as a Redis list of JSON encoded messages.
type RedisStore struct {
	client     *redis.Client
	maxHistory int
	ttl        time.Duration
	prefix     string
}

// NewRedisStore connects to addr. A zero ttl keeps sessions until evicted.
func NewRedisStore(addr, password string, db, maxHistory int, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreWith(rdb, maxHistory, ttl)
}

func NewRedisStoreWith(client *redis.Client, maxHistory int, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, maxHistory: maxHistory, ttl: ttl, prefix: defaultKeyPrefix}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// CreateSession only allocates an id; the list is created by the first exchange.
func (s *RedisStore) CreateSession(ctx context.Context) string {
	return uuid.New().String()
}

func (s *RedisStore) GetHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	values, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	history := make([]llm.Message, 0, len(values))
	for _, v := range values {
		var msg llm.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			logger.Error("Skipping malformed session message", zap.String("sessionId", sessionID), zap.Error(err))
			continue
		}
		history = append(history, msg)
	}
	return history, nil
}

// AddExchange appends both messages and trims the list in one MULTI/EXEC.
func (s *RedisStore) AddExchange(ctx context.Context, sessionID, question, answer string) error {
	key := s.key(sessionID)
	if s.maxHistory <= 0 {
		return s.client.Del(ctx, key).Err()
	}

	user, err := json.Marshal(llm.Message{Role: "user", Content: question})
	if err != nil {
		return err
	}
	assistant, err := json.Marshal(llm.Message{Role: "assistant", Content: answer})
	if err != nil {
		return err
	}

	keep := int64(2 * s.maxHistory)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, string(user), string(assistant))
		pipe.LTrim(ctx, key, -keep, -1)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}
