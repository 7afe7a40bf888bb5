package timeline

import (
	"context"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
)

type Store interface {
	// Append 以 append-first 的契约写入转写流水，返回本次写入的 seq。
	// 约定：同一 session 的 seq 单调递增。
	Append(ctx context.Context, sessionID string, entry *model.TimelineEntry) (int64, error)
	// List 返回该 session 的全量记录，用于回放与验收。
	List(ctx context.Context, sessionID string) ([]model.TimelineEntry, error)
}
