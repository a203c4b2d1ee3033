package service

import (
	"sort"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// ItemProgressAggregator 按条目聚合浏览进度
type ItemProgressAggregator struct {
	items map[string]*schema.ItemProgress
}

// NewItemProgressAggregator 基于已持久化的进度创建聚合器
func NewItemProgressAggregator(items []schema.ItemProgress) *ItemProgressAggregator {
	a := &ItemProgressAggregator{items: make(map[string]*schema.ItemProgress, len(items))}
	for _, it := range items {
		if it.ItemID == "" {
			continue
		}
		cp := it
		a.items[it.ItemID] = &cp
	}
	return a
}

// Update 计入一次浏览
// 标题/分类跟随最近一次浏览；乱序到达的旧事件只计数，不回退最近浏览时间
func (a *ItemProgressAggregator) Update(event schema.ViewEvent) schema.ItemProgress {
	p, ok := a.items[event.ItemID]
	if !ok {
		p = &schema.ItemProgress{
			ItemID:        event.ItemID,
			Title:         event.Title,
			CategoryName:  event.CategoryName,
			ViewCount:     1,
			FirstViewedAt: event.OccurredAt,
			LastViewedAt:  event.OccurredAt,
		}
		a.items[event.ItemID] = p
		return *p
	}

	p.ViewCount++
	if !event.OccurredAt.Before(p.LastViewedAt) {
		p.Title = event.Title
		p.CategoryName = event.CategoryName
		p.LastViewedAt = event.OccurredAt
	}
	if event.OccurredAt.Before(p.FirstViewedAt) {
		p.FirstViewedAt = event.OccurredAt
	}
	return *p
}

// Get 按条目 ID 查询
func (a *ItemProgressAggregator) Get(itemID string) (schema.ItemProgress, bool) {
	p, ok := a.items[itemID]
	if !ok {
		return schema.ItemProgress{}, false
	}
	return *p, true
}

// Len 已浏览的不同条目数
func (a *ItemProgressAggregator) Len() int {
	return len(a.items)
}

// All 按条目 ID 排序的全部进度
func (a *ItemProgressAggregator) All() []schema.ItemProgress {
	out := a.snapshot()
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

// History 浏览历史，最近浏览的在前
func (a *ItemProgressAggregator) History() []schema.ItemProgress {
	out := a.snapshot()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastViewedAt.Equal(out[j].LastViewedAt) {
			return out[i].LastViewedAt.After(out[j].LastViewedAt)
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// Reset 清空
func (a *ItemProgressAggregator) Reset() {
	a.items = make(map[string]*schema.ItemProgress)
}

func (a *ItemProgressAggregator) snapshot() []schema.ItemProgress {
	out := make([]schema.ItemProgress, 0, len(a.items))
	for _, p := range a.items {
		out = append(out, *p)
	}
	return out
}
