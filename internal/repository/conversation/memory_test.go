package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dochelper/ragcore/internal/domain"
)

func userMsg(text string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Text: text}
}

func TestNewMemoryStore_InvalidWindow(t *testing.T) {
	for _, window := range []int{0, -1} {
		_, err := NewMemoryStore(window, 0)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Fatalf("window %d: expected ErrInvalidConfig, got %v", window, err)
		}
	}
}

func TestMemoryStore_UnknownConversationEmptyWindow(t *testing.T) {
	s, err := NewMemoryStore(10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	window, err := s.Window(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("expected empty window, got %d messages", len(window))
	}
	if s.Len() != 0 {
		t.Fatal("reading an unknown conversation must not create it")
	}
}

func TestMemoryStore_AppendAndWindowOrder(t *testing.T) {
	s, _ := NewMemoryStore(10, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, 1, userMsg(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	window, err := s.Window(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(window))
	}
	for i, m := range window {
		if m.Text != fmt.Sprintf("m%d", i) {
			t.Fatalf("message %d out of order: %q", i, m.Text)
		}
	}
}

func TestMemoryStore_WindowEvictsOldest(t *testing.T) {
	s, _ := NewMemoryStore(3, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Append(ctx, 1, userMsg(fmt.Sprintf("m%d", i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	window, _ := s.Window(ctx, 1)
	if len(window) != 3 {
		t.Fatalf("expected window of 3, got %d", len(window))
	}
	want := []string{"m2", "m3", "m4"}
	for i, m := range window {
		if m.Text != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, m.Text, want[i])
		}
	}
}

func TestMemoryStore_ConversationsIsolated(t *testing.T) {
	s, _ := NewMemoryStore(10, 0)
	ctx := context.Background()

	_ = s.Append(ctx, 1, userMsg("for one"))
	_ = s.Append(ctx, 2, userMsg("for two"))

	w1, _ := s.Window(ctx, 1)
	w2, _ := s.Window(ctx, 2)

	if len(w1) != 1 || w1[0].Text != "for one" {
		t.Fatalf("conversation 1 polluted: %v", w1)
	}
	if len(w2) != 1 || w2[0].Text != "for two" {
		t.Fatalf("conversation 2 polluted: %v", w2)
	}
}

func TestMemoryStore_WindowReturnsCopy(t *testing.T) {
	s, _ := NewMemoryStore(10, 0)
	ctx := context.Background()

	_ = s.Append(ctx, 1, userMsg("original"))

	window, _ := s.Window(ctx, 1)
	window[0].Text = "mutated"

	again, _ := s.Window(ctx, 1)
	if again[0].Text != "original" {
		t.Fatal("Window must return a copy, not the backing slice")
	}
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	s, _ := NewMemoryStore(10, 2)
	ctx := context.Background()

	_ = s.Append(ctx, 1, userMsg("a"))
	_ = s.Append(ctx, 2, userMsg("b"))

	// Touch 1 so that 2 becomes the eviction candidate.
	if _, err := s.Window(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = s.Append(ctx, 3, userMsg("c"))

	if s.Len() != 2 {
		t.Fatalf("expected 2 live conversations, got %d", s.Len())
	}
	w2, _ := s.Window(ctx, 2)
	if len(w2) != 0 {
		t.Fatal("expected conversation 2 evicted")
	}
	w1, _ := s.Window(ctx, 1)
	if len(w1) != 1 {
		t.Fatal("expected conversation 1 kept")
	}
}

func TestMemoryStore_ZeroMaxDisablesEviction(t *testing.T) {
	s, _ := NewMemoryStore(10, 0)
	ctx := context.Background()

	for id := int64(0); id < 100; id++ {
		_ = s.Append(ctx, id, userMsg("x"))
	}
	if s.Len() != 100 {
		t.Fatalf("expected all conversations kept, got %d", s.Len())
	}
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s, _ := NewMemoryStore(5, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for id := int64(0); id < 8; id++ {
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_ = s.Append(ctx, id, userMsg("m"))
			}(id)
		}
	}
	wg.Wait()

	for id := int64(0); id < 8; id++ {
		window, err := s.Window(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(window) != 5 {
			t.Fatalf("conversation %d: expected full window of 5, got %d", id, len(window))
		}
	}
}
