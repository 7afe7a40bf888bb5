package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// TestAppendAssignsMonotonicSeq 验证同一 session 的 seq 单调递增，
// 且不同 session 的 seq 互不影响。
func TestAppendAssignsMonotonicSeq(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		seq, err := store.Append(ctx, "s1", &model.TimelineEntry{
			Kind:     model.TimelineUserSpeech,
			Text:     "hello",
			ServerTS: time.Now(),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != int64(i) {
			t.Fatalf("expected seq %d, got %d", i, seq)
		}
	}

	seq, err := store.Append(ctx, "s2", &model.TimelineEntry{Kind: model.TimelineUserClick})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected independent seq per session, got %d", seq)
	}
}

// TestListReturnsOrderedCopy 验证 List 按序返回且是副本。
func TestListReturnsOrderedCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	kinds := []model.TimelineKind{model.TimelineUserSpeech, model.TimelineUIAction, model.TimelineUserClick}
	for _, k := range kinds {
		if _, err := store.Append(ctx, "s1", &model.TimelineEntry{Kind: k}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.List(ctx, "s1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != len(kinds) {
		t.Fatalf("expected %d entries, got %d", len(kinds), len(entries))
	}
	for i, k := range kinds {
		if entries[i].Kind != k || entries[i].Seq != int64(i+1) || entries[i].SessionID != "s1" {
			t.Fatalf("entry %d mismatch: %+v", i, entries[i])
		}
	}

	// 修改返回值不应影响内部数据。
	entries[0].Text = "mutated"
	fresh, _ := store.List(ctx, "s1")
	if fresh[0].Text == "mutated" {
		t.Fatalf("List must return a copy")
	}
}

// TestListUnknownSessionIsEmpty 验证未知 session 返回空列表而不是错误。
func TestListUnknownSessionIsEmpty(t *testing.T) {
	store := NewInMemoryStore()

	entries, err := store.List(context.Background(), "nope")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(entries))
	}
}
