package service

import (
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// EventLog 只追加的浏览事件日志
type EventLog struct {
	events []schema.ViewEvent
}

// NewEventLog 基于已持久化的事件创建日志
func NewEventLog(events []schema.ViewEvent) *EventLog {
	return &EventLog{events: append([]schema.ViewEvent(nil), events...)}
}

// Append 追加事件，同一条目重复浏览照常记录
func (l *EventLog) Append(event schema.ViewEvent) {
	l.events = append(l.events, event)
}

// Len 当前保留的事件数
func (l *EventLog) Len() int {
	return len(l.events)
}

// Events 返回副本
func (l *EventLog) Events() []schema.ViewEvent {
	return append([]schema.ViewEvent(nil), l.events...)
}

// Recent 最近追加的 limit 条，新的在前；limit<=0 返回全部
func (l *EventLog) Recent(limit int) []schema.ViewEvent {
	n := len(l.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]schema.ViewEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.events[i])
	}
	return out
}

// PruneBefore 删除 cutoff 之前发生的事件，返回删除条数
// 只裁剪日志本身，已派生的聚合不受影响
func (l *EventLog) PruneBefore(cutoff time.Time) int {
	kept := l.events[:0]
	removed := 0
	for _, e := range l.events {
		if e.OccurredAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	// 清掉尾部残留引用
	for i := len(kept); i < len(l.events); i++ {
		l.events[i] = schema.ViewEvent{}
	}
	l.events = kept
	return removed
}

// Reset 清空日志
func (l *EventLog) Reset() {
	l.events = nil
}
