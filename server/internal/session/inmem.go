package session

import (
	"context"
	"sync"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// InMemoryStore 是一个基于内存的 Session 存储实现。
//
// 状态按约定是短命的（连接生命周期内有效），所以内存 store 就是最终形态，
// 不是过渡方案。不同 key 的并发创建/查询是安全的；同一 session 的串行化
// 由上层的 TurnQueue 保证，store 只负责 map 本身不被写坏。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]*model.SessionState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]*model.SessionState)}
}

// GetOrCreate 返回 SessionID 对应的状态，不存在时创建初始状态。
func (s *InMemoryStore) GetOrCreate(_ context.Context, id string) (*model.SessionState, error) {
	s.mu.RLock()
	state, ok := s.data[id]
	s.mu.RUnlock()
	if ok {
		return state, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 双检：两个不同连接不会共用 session id，但防御性地处理竞争创建。
	if state, ok := s.data[id]; ok {
		return state, nil
	}
	state = model.NewSessionState(id)
	s.data[id] = state
	return state, nil
}

// Save 保存或更新 SessionState。
func (s *InMemoryStore) Save(_ context.Context, state *model.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[state.SessionID] = state
	return nil
}

// Reset 用全新的初始状态整体替换并返回。
func (s *InMemoryStore) Reset(_ context.Context, id string) (*model.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := model.NewSessionState(id)
	s.data[id] = state
	return state, nil
}

// Delete 移除会话状态。删除不存在的 id 不是错误。
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, id)
	return nil
}
