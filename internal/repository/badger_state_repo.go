package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/yuqie6/ProgressMirror/internal/schema"
)

const badgerStatePrefix = "state/"

// BadgerStateRepository 状态快照仓储（BadgerDB）
type BadgerStateRepository struct {
	db *badger.DB
}

// OpenBadgerStateRepository 打开（或创建）Badger 数据目录
func OpenBadgerStateRepository(dir string) (*BadgerStateRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("打开 BadgerDB 失败: %w", err)
	}

	slog.Info("Badger 存储初始化成功", "path", dir)
	return &BadgerStateRepository{db: db}, nil
}

// LoadAll 读取全部命名空间
func (r *BadgerStateRepository) LoadAll(ctx context.Context) ([]schema.StateBlob, error) {
	var blobs []schema.StateBlob
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerStatePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			ns := strings.TrimPrefix(string(item.Key()), badgerStatePrefix)
			err := item.Value(func(val []byte) error {
				var blob schema.StateBlob
				if err := json.Unmarshal(val, &blob); err != nil {
					// 单条损坏交给上层按命名空间降级
					blob = schema.StateBlob{Namespace: ns, Payload: append([]byte(nil), val...)}
				}
				blob.Namespace = ns
				blobs = append(blobs, blob)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("读取状态失败: %w", err)
	}
	return blobs, nil
}

// SaveAll 在单个事务中写入全部命名空间
func (r *BadgerStateRepository) SaveAll(ctx context.Context, blobs []schema.StateBlob) error {
	if len(blobs) == 0 {
		return nil
	}
	err := r.db.Update(func(txn *badger.Txn) error {
		for _, blob := range blobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(blob)
			if err != nil {
				return fmt.Errorf("序列化 %s 失败: %w", blob.Namespace, err)
			}
			if err := txn.Set([]byte(badgerStatePrefix+blob.Namespace), data); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", blob.Namespace, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("保存状态失败: %w", err)
	}
	return nil
}

// Close 关闭 BadgerDB
func (r *BadgerStateRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
