package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/yuqie6/ProgressMirror/internal/eventbus"
	"github.com/yuqie6/ProgressMirror/internal/observability"
	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// ErrInvalidViewEvent 浏览事件缺少条目 ID 或标题
var ErrInvalidViewEvent = errors.New("无效的浏览事件")

// ClearPolicy 清空历史时已解锁成就的处理策略
type ClearPolicy string

const (
	ClearPreserveAchievements ClearPolicy = "preserve" // 保留已解锁成就和进度
	ClearResetAchievements    ClearPolicy = "reset"    // 成就回到未解锁
)

// EngagementConfig 引擎配置
type EngagementConfig struct {
	Location              *time.Location // 日界时区
	DefaultMinutesPerView int            // 未提供分钟数时每次浏览计入的分钟
	MaxMinutesPerDay      int            // 单日活跃分钟上限
	RetentionDays         int            // 事件日志保留天数，<=0 不裁剪
	ClearPolicy           ClearPolicy
	Catalog               []AchievementRule
	Now                   func() time.Time
}

// DefaultEngagementConfig 默认配置
func DefaultEngagementConfig() *EngagementConfig {
	return &EngagementConfig{
		Location:              time.Local,
		DefaultMinutesPerView: 1,
		MaxMinutesPerDay:      MaxMinutesPerDay,
		RetentionDays:         180,
		ClearPolicy:           ClearPreserveAchievements,
		Catalog:               DefaultCatalog(),
		Now:                   time.Now,
	}
}

// ViewInput 展示层上报的一次浏览
type ViewInput struct {
	ItemID       string
	Title        string
	CategoryName string
	OccurredAt   time.Time // 零值取当前时间
	MinutesHint  *int      // nil 取默认值
}

// RecordResult 一次浏览写入后的结果
type RecordResult struct {
	Event         schema.ViewEvent     `json:"event"`
	Item          schema.ItemProgress  `json:"item"`
	Day           schema.DailyActivity `json:"day"`
	NewlyUnlocked []schema.Achievement `json:"newly_unlocked,omitempty"`
}

// EngagementService 本地浏览进度与成就引擎
// 所有写操作串行并在写锁内落盘；读操作返回一致快照的副本
type EngagementService struct {
	mu sync.RWMutex

	cfg   EngagementConfig
	store *StateStore
	bus   Publisher

	log          *EventLog
	items        *ItemProgressAggregator
	days         *DailyActivityAggregator
	achievements *AchievementEngine

	longestHighWater int
	dirty            bool
}

// NewEngagementService 加载持久化状态并创建引擎
// 状态损坏时以默认值启动；仅成就目录无效时返回错误
func NewEngagementService(ctx context.Context, store *StateStore, bus Publisher, cfg *EngagementConfig) (*EngagementService, error) {
	c := normalizeConfig(cfg)

	state, report := store.Load(ctx)

	achievements, err := NewAchievementEngine(c.Catalog, state.Achievements)
	if err != nil {
		return nil, err
	}

	s := &EngagementService{
		cfg:              c,
		store:            store,
		bus:              bus,
		log:              NewEventLog(state.Events),
		items:            NewItemProgressAggregator(state.Items),
		days:             NewDailyActivityAggregator(state.Days, c.Location, c.MaxMinutesPerDay),
		achievements:     achievements,
		longestHighWater: state.LongestStreak,
	}

	if report.RebuildItems || report.RebuildDays {
		s.rebuildFromLog(report.RebuildItems, report.RebuildDays)
		s.dirty = true
	}
	if state.CatalogVersion != 0 && state.CatalogVersion != CatalogVersion {
		slog.Info("成就目录版本变更", "from", state.CatalogVersion, "to", CatalogVersion)
	}

	slog.Info("进度引擎已加载",
		"events", s.log.Len(),
		"items", s.items.Len(),
		"days", s.days.Len(),
		"degraded", report.Degraded(),
	)
	return s, nil
}

func normalizeConfig(cfg *EngagementConfig) EngagementConfig {
	c := *DefaultEngagementConfig()
	if cfg == nil {
		return c
	}
	if cfg.Location != nil {
		c.Location = cfg.Location
	}
	if cfg.DefaultMinutesPerView >= 0 {
		c.DefaultMinutesPerView = cfg.DefaultMinutesPerView
	}
	if cfg.MaxMinutesPerDay > 0 && cfg.MaxMinutesPerDay <= MaxMinutesPerDay {
		c.MaxMinutesPerDay = cfg.MaxMinutesPerDay
	}
	c.RetentionDays = cfg.RetentionDays
	if cfg.ClearPolicy == ClearResetAchievements {
		c.ClearPolicy = ClearResetAchievements
	}
	if len(cfg.Catalog) > 0 {
		c.Catalog = cfg.Catalog
	}
	if cfg.Now != nil {
		c.Now = cfg.Now
	}
	return c
}

// rebuildFromLog 由事件日志重放损坏的聚合
func (s *EngagementService) rebuildFromLog(items, days bool) {
	if items {
		s.items.Reset()
	}
	if days {
		s.days.Reset()
	}
	for _, e := range s.log.Events() {
		if items {
			s.items.Update(e)
		}
		if days {
			s.days.Update(e)
		}
	}
	slog.Warn("已由事件日志重建聚合", "items", items, "days", days, "events", s.log.Len())
}

// RecordView 记录一次浏览并评估成就
// 仅输入无效时返回 ErrInvalidViewEvent；落盘失败只记日志，下次写入时重试
func (s *EngagementService) RecordView(ctx context.Context, in ViewInput) (RecordResult, error) {
	in.ItemID = strings.TrimSpace(in.ItemID)
	in.Title = strings.TrimSpace(in.Title)
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	if in.ItemID == "" || in.Title == "" {
		observability.RecordInvalidView()
		slog.Warn("忽略无效浏览事件", "item_id", in.ItemID, "title", in.Title)
		return RecordResult{}, ErrInvalidViewEvent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	} else if occurredAt.After(now) {
		// 时钟异常：照常入账，按事件时间取日界
		slog.Debug("浏览事件时间晚于当前时间", "item_id", in.ItemID, "occurred_at", occurredAt)
	}

	minutes := s.cfg.DefaultMinutesPerView
	if in.MinutesHint != nil {
		minutes = *in.MinutesHint
	}
	if minutes < 0 {
		minutes = 0
	}

	event := schema.ViewEvent{
		ID:           newEventID(now),
		ItemID:       in.ItemID,
		Title:        in.Title,
		CategoryName: in.CategoryName,
		OccurredAt:   occurredAt,
		Minutes:      minutes,
	}

	s.log.Append(event)
	item := s.items.Update(event)
	day := s.days.Update(event)

	snapshot := s.snapshotLocked(now)
	if snapshot.LongestStreak > s.longestHighWater {
		s.longestHighWater = snapshot.LongestStreak
	}
	_, newly := s.achievements.Evaluate(snapshot, now)

	s.dirty = true
	s.commitLocked(ctx, now)

	observability.RecordViewRecorded()
	s.publish(eventbus.Event{
		Type: eventbus.TypeViewRecorded,
		Data: map[string]any{"item_id": event.ItemID, "day": day.Day, "view_count": item.ViewCount},
	})
	for _, a := range newly {
		observability.RecordAchievementUnlocked(string(a.Tier))
		slog.Info("解锁成就", "id", a.ID, "tier", a.Tier)
		s.publish(eventbus.Event{
			Type: eventbus.TypeAchievementUnlocked,
			Data: map[string]any{"id": a.ID, "name": a.Name, "tier": string(a.Tier), "icon": a.Icon},
		})
	}

	return RecordResult{Event: event, Item: item, Day: day, NewlyUnlocked: newly}, nil
}

// Statistics 当前统计快照
func (s *EngagementService) Statistics() schema.StatisticsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(s.cfg.Now())
}

// Achievements 目录顺序的成就列表
func (s *EngagementService) Achievements() []schema.Achievement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.achievements.Achievements()
}

// ItemHistory 浏览历史，最近浏览的在前
func (s *EngagementService) ItemHistory() []schema.ItemProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.History()
}

// WeeklyActivity reference 所在日及前 6 天；零值取今天
func (s *EngagementService) WeeklyActivity(reference time.Time) []schema.DailyActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if reference.IsZero() {
		reference = s.cfg.Now()
	}
	return WeeklyActivity(s.days.All(), reference, s.cfg.Location)
}

// RecentEvents 最近的浏览事件，新的在前
func (s *EngagementService) RecentEvents(limit int) []schema.ViewEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Recent(limit)
}

// ClearHistory 清空事件日志、条目进度、日活跃和连续记录
// 成就按 ClearPolicy 保留或重置
func (s *EngagementService) ClearHistory(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Now()
	s.log.Reset()
	s.items.Reset()
	s.days.Reset()
	s.longestHighWater = 0
	if s.cfg.ClearPolicy == ClearResetAchievements {
		s.achievements.Reset()
	}

	s.dirty = true
	s.commitLocked(ctx, now)

	slog.Info("已清空浏览历史", "policy", s.cfg.ClearPolicy)
	s.publish(eventbus.Event{
		Type: eventbus.TypeHistoryCleared,
		Data: map[string]any{"policy": string(s.cfg.ClearPolicy)},
	})
}

// PruneEvents 删除 before 之前的事件日志，聚合不变
func (s *EngagementService) PruneEvents(ctx context.Context, before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.log.PruneBefore(before)
	if n == 0 {
		return 0
	}

	s.dirty = true
	s.commitLocked(ctx, s.cfg.Now())

	observability.RecordEventsPruned(n)
	slog.Info("裁剪过期浏览事件", "deleted", n, "before", before.Format(time.RFC3339))
	s.publish(eventbus.Event{
		Type: eventbus.TypeEventsPruned,
		Data: map[string]any{"deleted": n},
	})
	return n
}

// PruneExpired 按保留天数裁剪事件日志
func (s *EngagementService) PruneExpired(ctx context.Context) int {
	s.mu.RLock()
	days := s.cfg.RetentionDays
	now := s.cfg.Now().In(s.cfg.Location)
	s.mu.RUnlock()

	if days <= 0 {
		return 0
	}
	return s.PruneEvents(ctx, now.AddDate(0, 0, -days))
}

// Retune 热更新计时与保留参数；负值表示保持不变
func (s *EngagementService) Retune(defaultMinutesPerView, maxMinutesPerDay, retentionDays int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if defaultMinutesPerView >= 0 {
		s.cfg.DefaultMinutesPerView = defaultMinutesPerView
	}
	if maxMinutesPerDay > 0 && maxMinutesPerDay <= MaxMinutesPerDay {
		s.cfg.MaxMinutesPerDay = maxMinutesPerDay
		s.days.SetMaxMinutes(maxMinutesPerDay)
	}
	if retentionDays >= 0 {
		s.cfg.RetentionDays = retentionDays
	}
	slog.Info("引擎参数已更新",
		"default_minutes_per_view", s.cfg.DefaultMinutesPerView,
		"max_minutes_per_day", s.cfg.MaxMinutesPerDay,
		"retention_days", s.cfg.RetentionDays,
	)
}

// Flush 重试尚未成功的落盘
func (s *EngagementService) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.commitLocked(ctx, s.cfg.Now())
}

// Close 退出前落盘
func (s *EngagementService) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return fmt.Errorf("关闭前保存状态失败: %w", err)
	}
	return nil
}

// Dirty 是否存在未成功落盘的修改
func (s *EngagementService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// snapshotLocked 调用者必须持有锁
func (s *EngagementService) snapshotLocked(now time.Time) schema.StatisticsSnapshot {
	days := s.days.All()
	streaks := ComputeStreaks(days, DayKey(now, s.cfg.Location))
	if s.longestHighWater > streaks.Longest {
		streaks.Longest = s.longestHighWater
	}
	return BuildStatistics(s.items.All(), days, streaks)
}

// commitLocked 整体落盘，失败时保持 dirty 以便下次写入重试（调用者必须持有写锁）
func (s *EngagementService) commitLocked(ctx context.Context, now time.Time) error {
	state := PersistedState{
		Events:         s.log.Events(),
		Items:          s.items.All(),
		Days:           s.days.All(),
		Achievements:   s.achievements.States(),
		LongestStreak:  s.longestHighWater,
		CatalogVersion: CatalogVersion,
		SavedAt:        now,
	}
	if err := s.store.Save(ctx, state); err != nil {
		observability.RecordSaveFailure()
		slog.Error("保存进度失败，将在下次写入时重试", "error", err)
		return err
	}
	s.dirty = false
	return nil
}

func (s *EngagementService) publish(evt eventbus.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(evt)
}

// newEventID 事件 ID（ULID，按记录时间有序）
func newEventID(now time.Time) string {
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
