package schema

import "time"

// ViewEvent 一次浏览事件（追加后不可变）
// 数据量级：万级/年，超过保留期后从日志中裁剪
type ViewEvent struct {
	ID           string    `json:"id"`                      // ULID，按时间有序
	ItemID       string    `json:"item_id"`                 // 目录条目 ID
	Title        string    `json:"title"`                   // 浏览时的标题
	CategoryName string    `json:"category_name,omitempty"` // 分类，空串表示无分类
	OccurredAt   time.Time `json:"occurred_at"`             // 发生时间
	Minutes      int       `json:"minutes"`                 // 计入当日的活跃分钟
}

// HasCategory 是否带分类
func (e ViewEvent) HasCategory() bool {
	return e.CategoryName != ""
}
