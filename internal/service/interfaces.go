package service

import (
	"context"

	"github.com/yuqie6/ProgressMirror/internal/eventbus"
	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

// StateRepository 命名空间快照的持久化后端；SaveAll 必须整组原子提交
type StateRepository interface {
	LoadAll(ctx context.Context) ([]schema.StateBlob, error)
	SaveAll(ctx context.Context, blobs []schema.StateBlob) error
}

// Publisher 进程内事件发布（展示层订阅解锁通知）
type Publisher interface {
	Publish(evt eventbus.Event)
}
