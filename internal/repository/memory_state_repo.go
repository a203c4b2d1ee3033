package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// MemoryStateRepository 进程内状态仓储，用于测试与临时运行
type MemoryStateRepository struct {
	mu    sync.Mutex
	blobs map[string]schema.StateBlob
}

// NewMemoryStateRepository 创建空仓储
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{blobs: make(map[string]schema.StateBlob)}
}

// LoadAll 按命名空间顺序返回副本
func (r *MemoryStateRepository) LoadAll(ctx context.Context) ([]schema.StateBlob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]schema.StateBlob, 0, len(r.blobs))
	for _, b := range r.blobs {
		b.Payload = append([]byte(nil), b.Payload...)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out, nil
}

// SaveAll 整组替换
func (r *MemoryStateRepository) SaveAll(ctx context.Context, blobs []schema.StateBlob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range blobs {
		b.Payload = append([]byte(nil), b.Payload...)
		r.blobs[b.Namespace] = b
	}
	return nil
}

// Close 无资源需要释放
func (r *MemoryStateRepository) Close() error {
	return nil
}
