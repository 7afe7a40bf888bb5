package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// TestGetOrCreateLazilyCreatesInitialState 验证未知 session id 自愈为初始状态。
func TestGetOrCreateLazilyCreatesInitialState(t *testing.T) {
	store := NewInMemoryStore()

	st, err := store.GetOrCreate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if st.SessionID != "s1" || st.Mode != model.ModeNone || st.Step != model.StepStart {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.Emotion != model.EmotionNeutral || st.Asked == nil {
		t.Fatalf("expected neutral emotion and initialized asked set")
	}

	again, err := store.GetOrCreate(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if again != st {
		t.Fatalf("expected the same state instance on repeat lookup")
	}
}

// TestResetReplacesExistingState 验证 Reset 返回全新初始状态。
func TestResetReplacesExistingState(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	st, _ := store.GetOrCreate(ctx, "s1")
	st.Mode = model.ModeBills
	st.Biller = model.BillerGas
	st.Amount = 500
	st.ExpectedClick = "#tileBills"
	st.Asked[model.SlotBiller] = struct{}{}

	fresh, err := store.Reset(ctx, "s1")
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if fresh == st {
		t.Fatalf("expected a new state instance")
	}
	if fresh.Mode != model.ModeNone || fresh.Step != model.StepStart || fresh.Biller != "" || fresh.Amount != 0 {
		t.Fatalf("expected pristine state, got %+v", fresh)
	}

	got, _ := store.GetOrCreate(ctx, "s1")
	if got != fresh {
		t.Fatalf("expected store to hold the fresh state")
	}
}

// TestDeleteIsIdempotent 验证删除不存在的会话不是错误。
func TestDeleteIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "s1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete again: %v", err)
	}

	st, _ := store.GetOrCreate(ctx, "s1")
	if st.Mode != model.ModeNone {
		t.Fatalf("expected fresh state after delete")
	}
}

// TestConcurrentDistinctKeys 验证不同 key 的并发创建互不干扰。
func TestConcurrentDistinctKeys(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			st, err := store.GetOrCreate(ctx, id)
			if err != nil {
				t.Errorf("GetOrCreate %s: %v", id, err)
				return
			}
			st.Amount = i
			if err := store.Save(ctx, st); err != nil {
				t.Errorf("Save %s: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("s%d", i)
		st, _ := store.GetOrCreate(ctx, id)
		if st.Amount != i {
			t.Fatalf("session %s corrupted: amount=%d", id, st.Amount)
		}
	}
}
