package service

import (
	"sort"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// MaxMinutesPerDay 单日活跃分钟上限
const MaxMinutesPerDay = 24 * 60

// DailyActivityAggregator 按自然日聚合活跃度
type DailyActivityAggregator struct {
	loc        *time.Location
	maxMinutes int
	days       map[string]*schema.DailyActivity
}

// NewDailyActivityAggregator 创建聚合器；maxMinutes<=0 或超过 24h 时取 24h
func NewDailyActivityAggregator(days []schema.DailyActivity, loc *time.Location, maxMinutes int) *DailyActivityAggregator {
	if loc == nil {
		loc = time.Local
	}
	if maxMinutes <= 0 || maxMinutes > MaxMinutesPerDay {
		maxMinutes = MaxMinutesPerDay
	}
	a := &DailyActivityAggregator{
		loc:        loc,
		maxMinutes: maxMinutes,
		days:       make(map[string]*schema.DailyActivity, len(days)),
	}
	for _, d := range days {
		if d.Day == "" {
			continue
		}
		cp := d
		if existing, ok := a.days[d.Day]; ok {
			existing.ItemsViewedCount += cp.ItemsViewedCount
			existing.MinutesActive = minInt(existing.MinutesActive+cp.MinutesActive, maxMinutes)
			continue
		}
		a.days[d.Day] = &cp
	}
	return a
}

// Update 计入一次浏览，分钟数按事件增量累加并封顶
func (a *DailyActivityAggregator) Update(event schema.ViewEvent) schema.DailyActivity {
	day := DayKey(event.OccurredAt, a.loc)
	d, ok := a.days[day]
	if !ok {
		d = &schema.DailyActivity{Day: day}
		a.days[day] = d
	}
	d.ItemsViewedCount++
	if event.Minutes > 0 {
		d.MinutesActive = minInt(d.MinutesActive+event.Minutes, a.maxMinutes)
	}
	return *d
}

// Get 按日键查询
func (a *DailyActivityAggregator) Get(day string) (schema.DailyActivity, bool) {
	d, ok := a.days[day]
	if !ok {
		return schema.DailyActivity{}, false
	}
	return *d, true
}

// Len 活跃天数
func (a *DailyActivityAggregator) Len() int {
	return len(a.days)
}

// All 按日期升序
func (a *DailyActivityAggregator) All() []schema.DailyActivity {
	out := make([]schema.DailyActivity, 0, len(a.days))
	for _, d := range a.days {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// SetMaxMinutes 调整单日分钟上限，只影响之后的累加
func (a *DailyActivityAggregator) SetMaxMinutes(maxMinutes int) {
	if maxMinutes <= 0 || maxMinutes > MaxMinutesPerDay {
		maxMinutes = MaxMinutesPerDay
	}
	a.maxMinutes = maxMinutes
}

// Location 日界所用时区
func (a *DailyActivityAggregator) Location() *time.Location {
	return a.loc
}

// Reset 清空
func (a *DailyActivityAggregator) Reset() {
	a.days = make(map[string]*schema.DailyActivity)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
