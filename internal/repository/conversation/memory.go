// Package conversation stores per-conversation sliding-window message history.
package conversation

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/dochelper/ragcore/internal/domain"
)

// DefaultMaxConversations bounds the number of live conversations held by the
// in-process store. Least-recently-used conversations are evicted past this
// count. 0 disables eviction.
const DefaultMaxConversations = 1024

// conv is one conversation's window. Its own mutex serializes Append/Window
// for the same id without blocking other conversations.
type conv struct {
	mu       sync.Mutex
	messages []domain.Message
	elem     *list.Element // LRU position, guarded by MemoryStore.mu
}

// MemoryStore is the in-process conversation memory. State lives for the
// process lifetime; the Redis driver in this package is the persistent
// alternative.
type MemoryStore struct {
	mu       sync.Mutex // guards convs and lru
	window   int
	maxConvs int
	convs    map[int64]*conv
	lru      *list.List // front = most recently used, values are int64 ids
}

// NewMemoryStore creates an in-process store with the given window capacity
// and conversation-count bound.
func NewMemoryStore(window, maxConversations int) (*MemoryStore, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d: %w",
			window, domain.ErrInvalidConfig)
	}
	if maxConversations < 0 {
		return nil, fmt.Errorf("max conversations must be non-negative, got %d: %w",
			maxConversations, domain.ErrInvalidConfig)
	}
	return &MemoryStore{
		window:   window,
		maxConvs: maxConversations,
		convs:    make(map[int64]*conv),
		lru:      list.New(),
	}, nil
}

// Append adds a message to the conversation, evicting the oldest message once
// the window is full. The conversation is created lazily on first append.
func (s *MemoryStore) Append(_ context.Context, id int64, msg domain.Message) error {
	c := s.touch(id, true)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	if len(c.messages) > s.window {
		// FIFO eviction; shift in place so the backing array does not pin
		// evicted messages.
		n := copy(c.messages, c.messages[len(c.messages)-s.window:])
		c.messages = c.messages[:n]
	}
	return nil
}

// Window returns a copy of the conversation's messages, oldest first.
// An unknown id yields an empty window, not an error.
func (s *MemoryStore) Window(_ context.Context, id int64) ([]domain.Message, error) {
	c := s.touch(id, false)
	if c == nil {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out, nil
}

// Len returns the number of live conversations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// touch looks up (optionally creating) a conversation and marks it as most
// recently used. Eviction happens here, under the store lock only — message
// slices are never touched while holding s.mu.
func (s *MemoryStore) touch(id int64, create bool) *conv {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[id]
	if !ok {
		if !create {
			return nil
		}
		c = &conv{}
		c.elem = s.lru.PushFront(id)
		s.convs[id] = c
		s.evictLocked()
		return c
	}
	s.lru.MoveToFront(c.elem)
	return c
}

// evictLocked drops least-recently-used conversations past maxConvs.
func (s *MemoryStore) evictLocked() {
	if s.maxConvs == 0 {
		return
	}
	for len(s.convs) > s.maxConvs {
		back := s.lru.Back()
		if back == nil {
			return
		}
		id := back.Value.(int64)
		s.lru.Remove(back)
		delete(s.convs, id)
	}
}
