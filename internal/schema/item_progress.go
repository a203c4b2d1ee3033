package schema

import "time"

// ItemProgress 单个条目的浏览进度，每个 ItemID 一条
type ItemProgress struct {
	ItemID        string    `json:"item_id"`
	Title         string    `json:"title"`                   // 最近一次浏览的标题
	CategoryName  string    `json:"category_name,omitempty"` // 最近一次浏览的分类
	ViewCount     int       `json:"view_count"`
	FirstViewedAt time.Time `json:"first_viewed_at"`
	LastViewedAt  time.Time `json:"last_viewed_at"`
}
