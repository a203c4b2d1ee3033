package service

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/yuqie6/ProgressMirror/internal/observability"
	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// 持久化命名空间，跨版本保持稳定
const (
	NamespaceEvents       = "progress.events"
	NamespaceItems        = "progress.items"
	NamespaceDays         = "progress.days"
	NamespaceAchievements = "progress.achievements"
	NamespaceStreaks      = "progress.streaks"
)

// stateVersion 快照编码版本，不一致时按损坏处理
const stateVersion = 1

// PersistedState 引擎的可持久化状态
type PersistedState struct {
	Events         []schema.ViewEvent
	Items          []schema.ItemProgress
	Days           []schema.DailyActivity
	Achievements   []schema.AchievementState
	LongestStreak  int
	CatalogVersion int
	SavedAt        time.Time
}

type streakState struct {
	Longest        int       `json:"longest"`
	CatalogVersion int       `json:"catalog_version"`
	SavedAt        time.Time `json:"saved_at"`
}

// LoadReport 读取过程中的降级情况
type LoadReport struct {
	Fallbacks    []string // 使用默认值的命名空间
	RebuildItems bool     // 条目进度需由事件日志重放
	RebuildDays  bool     // 日活跃需由事件日志重放
}

// Degraded 是否发生过降级
func (r LoadReport) Degraded() bool {
	return len(r.Fallbacks) > 0
}

// StateStore 持久化适配器：编码/校验/解码各命名空间
type StateStore struct {
	repo StateRepository
}

// NewStateStore 创建适配器
func NewStateStore(repo StateRepository) *StateStore {
	return &StateStore{repo: repo}
}

// Load 读取状态，任何读取或解码失败都降级为默认值，不向上返回错误
func (s *StateStore) Load(ctx context.Context) (PersistedState, LoadReport) {
	var state PersistedState
	var report LoadReport

	if s == nil || s.repo == nil {
		return state, report
	}

	blobs, err := s.repo.LoadAll(ctx)
	if err != nil {
		slog.Warn("读取持久化状态失败，使用空状态", "error", err)
		observability.RecordLoadFallback("all")
		report.Fallbacks = append(report.Fallbacks, "all")
		return state, report
	}

	byNS := make(map[string]schema.StateBlob, len(blobs))
	for _, b := range blobs {
		byNS[b.Namespace] = b
	}

	fallback := func(ns string, err error) {
		slog.Warn("持久化数据损坏，使用默认值", "namespace", ns, "error", err)
		observability.RecordLoadFallback(ns)
		report.Fallbacks = append(report.Fallbacks, ns)
	}

	eventsOK := true
	if b, ok := byNS[NamespaceEvents]; ok {
		if err := decodeBlob(b, &state.Events); err != nil {
			state.Events = nil
			eventsOK = false
			fallback(NamespaceEvents, err)
		}
	}
	if b, ok := byNS[NamespaceItems]; ok {
		if err := decodeBlob(b, &state.Items); err != nil {
			state.Items = nil
			fallback(NamespaceItems, err)
			report.RebuildItems = eventsOK && len(state.Events) > 0
		}
	}
	if b, ok := byNS[NamespaceDays]; ok {
		if err := decodeBlob(b, &state.Days); err != nil {
			state.Days = nil
			fallback(NamespaceDays, err)
			report.RebuildDays = eventsOK && len(state.Events) > 0
		}
	}
	if b, ok := byNS[NamespaceAchievements]; ok {
		if err := decodeBlob(b, &state.Achievements); err != nil {
			state.Achievements = nil
			fallback(NamespaceAchievements, err)
		}
	}
	if b, ok := byNS[NamespaceStreaks]; ok {
		var st streakState
		if err := decodeBlob(b, &st); err != nil {
			fallback(NamespaceStreaks, err)
		} else {
			state.LongestStreak = st.Longest
			state.CatalogVersion = st.CatalogVersion
			state.SavedAt = st.SavedAt
		}
	}

	return state, report
}

// Save 编码全部命名空间并一次性提交；编码失败时不触碰已提交数据
func (s *StateStore) Save(ctx context.Context, state PersistedState) error {
	if s == nil || s.repo == nil {
		return nil
	}

	entries := []struct {
		ns string
		v  any
	}{
		{NamespaceEvents, nonNil(state.Events)},
		{NamespaceItems, nonNil(state.Items)},
		{NamespaceDays, nonNil(state.Days)},
		{NamespaceAchievements, nonNil(state.Achievements)},
		{NamespaceStreaks, streakState{Longest: state.LongestStreak, CatalogVersion: state.CatalogVersion, SavedAt: state.SavedAt}},
	}

	blobs := make([]schema.StateBlob, 0, len(entries))
	for _, e := range entries {
		b, err := encodeBlob(e.ns, e.v)
		if err != nil {
			return err
		}
		blobs = append(blobs, b)
	}

	if err := s.repo.SaveAll(ctx, blobs); err != nil {
		return fmt.Errorf("提交状态失败: %w", err)
	}
	return nil
}

func encodeBlob(ns string, v any) (schema.StateBlob, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return schema.StateBlob{}, fmt.Errorf("序列化 %s 失败: %w", ns, err)
	}
	return schema.StateBlob{
		Namespace: ns,
		Version:   stateVersion,
		Checksum:  checksum(payload),
		Payload:   payload,
	}, nil
}

func decodeBlob(b schema.StateBlob, v any) error {
	if b.Version != stateVersion {
		return fmt.Errorf("版本不匹配: %d", b.Version)
	}
	if b.Checksum != checksum(b.Payload) {
		return fmt.Errorf("校验和不匹配")
	}
	if err := json.Unmarshal(b.Payload, v); err != nil {
		return fmt.Errorf("反序列化失败: %w", err)
	}
	return nil
}

func checksum(payload []byte) string {
	return strconv.FormatUint(uint64(crc32.ChecksumIEEE(payload)), 16)
}

// nonNil 空切片编码为 [] 而不是 null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
