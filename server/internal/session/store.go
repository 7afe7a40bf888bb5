package session

import (
	"context"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

// Store 管理会话状态的生命周期。
//
// 契约：
// - GetOrCreate：不存在时创建初始状态（懒创建），未知 session id 永远不是错误。
// - Reset：用全新的初始状态整体替换并返回，是唯一清空 mode/槽位/Asked 的操作。
// - Delete：连接断开时由 transport 调用，状态不跨连接存活。
type Store interface {
	GetOrCreate(ctx context.Context, id string) (*model.SessionState, error)
	Save(ctx context.Context, s *model.SessionState) error
	Reset(ctx context.Context, id string) (*model.SessionState, error)
	Delete(ctx context.Context, id string) error
}
