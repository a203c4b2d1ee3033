package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSafeMode 安全模式下拒绝写入，避免覆盖无法识别的旧数据
var ErrSafeMode = errors.New("数据库处于安全模式")

// StateRepository 状态快照仓储（SQLite）
type StateRepository struct {
	db       *gorm.DB
	readOnly bool
}

// NewStateRepository 创建仓储
func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// NewStateRepositoryFor 按数据库状态创建仓储，安全模式下只读
func NewStateRepositoryFor(d *Database) *StateRepository {
	return &StateRepository{db: d.DB, readOnly: d.SafeMode}
}

// LoadAll 读取全部命名空间
func (r *StateRepository) LoadAll(ctx context.Context) ([]schema.StateBlob, error) {
	var blobs []schema.StateBlob
	if err := r.db.WithContext(ctx).Order("namespace ASC").Find(&blobs).Error; err != nil {
		return nil, fmt.Errorf("读取状态失败: %w", err)
	}
	return blobs, nil
}

// SaveAll 在单个事务中写入全部命名空间，任一失败则整体回滚
func (r *StateRepository) SaveAll(ctx context.Context, blobs []schema.StateBlob) error {
	if r.readOnly {
		return ErrSafeMode
	}
	if len(blobs) == 0 {
		return nil
	}

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range blobs {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "namespace"}},
				UpdateAll: true,
			}).Create(&blobs[i]).Error; err != nil {
				return fmt.Errorf("写入 %s 失败: %w", blobs[i].Namespace, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存状态失败: %w", err)
	}

	slog.Debug("保存状态成功", "namespaces", len(blobs), "duration", time.Since(start))
	return nil
}

// Close 由 Database 负责关闭连接
func (r *StateRepository) Close() error {
	return nil
}
