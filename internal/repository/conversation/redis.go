package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/dochelper/ragcore/internal/domain"
)

var convKeyPrefix = domain.KeyPrefix + "conv:"

// listStore is the consumer interface for the Redis driver (ISP).
type listStore interface {
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// storedMessage is the wire form of one message in the Redis list.
type storedMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RedisStore keeps conversation windows in Redis lists, one list per
// conversation. RPUSH+LTRIM maintain the sliding window server-side, so
// concurrent appends for the same id serialize on the Redis command stream.
// Stale conversations expire via TTL instead of LRU eviction.
type RedisStore struct {
	store  listStore
	window int
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed conversation store. ttl 0 disables
// expiry.
func NewRedisStore(store listStore, window int, ttl time.Duration) (*RedisStore, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d: %w",
			window, domain.ErrInvalidConfig)
	}
	return &RedisStore{store: store, window: window, ttl: ttl}, nil
}

// Append pushes a message and trims the list to the window size.
func (s *RedisStore) Append(ctx context.Context, id int64, msg domain.Message) error {
	data, err := json.Marshal(storedMessage{Role: string(msg.Role), Text: msg.Text})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := convKey(id)
	if err := s.store.RPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	if err := s.store.LTrim(ctx, key, int64(-s.window), -1); err != nil {
		return fmt.Errorf("trim window: %w", err)
	}
	if s.ttl > 0 {
		if err := s.store.Expire(ctx, key, s.ttl); err != nil {
			return fmt.Errorf("refresh ttl: %w", err)
		}
	}
	return nil
}

// Window returns the last windowSize messages, oldest first.
func (s *RedisStore) Window(ctx context.Context, id int64) ([]domain.Message, error) {
	vals, err := s.store.LRange(ctx, convKey(id), int64(-s.window), -1)
	if err != nil {
		return nil, fmt.Errorf("read window: %w", err)
	}

	msgs := make([]domain.Message, 0, len(vals))
	for i, v := range vals {
		var sm storedMessage
		if err := json.Unmarshal([]byte(v), &sm); err != nil {
			return nil, fmt.Errorf("unmarshal message [%d]: %w", i, err)
		}
		msgs = append(msgs, domain.Message{Role: domain.Role(sm.Role), Text: sm.Text})
	}
	return msgs, nil
}

func convKey(id int64) string {
	return convKeyPrefix + strconv.FormatInt(id, 10)
}
