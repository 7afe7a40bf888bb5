package timeline

import (
	"context"
	"sync"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// InMemoryStore 是一个基于内存的转写流水实现。
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]model.TimelineEntry
	seq     map[string]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string][]model.TimelineEntry),
		seq:     make(map[string]int64),
	}
}

// Append 追加记录，并为该 session 分配单调递增 seq。
func (s *InMemoryStore) Append(_ context.Context, sessionID string, entry *model.TimelineEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[sessionID]++
	seq := s.seq[sessionID]

	entryCopy := *entry
	entryCopy.Seq = seq
	entryCopy.SessionID = sessionID
	s.entries[sessionID] = append(s.entries[sessionID], entryCopy)

	return seq, nil
}

// List 返回某个 session 的全部记录（按 seq 顺序）。
// 兼容性：返回切片副本，避免调用方修改内部数据。
func (s *InMemoryStore) List(_ context.Context, sessionID string) ([]model.TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[sessionID]
	out := make([]model.TimelineEntry, len(entries))
	copy(out, entries)
	return out, nil
}
