package service

import (
	"fmt"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// AchievementEngine 表驱动的成就评估器
type AchievementEngine struct {
	catalog []AchievementRule
	states  map[string]schema.AchievementState
}

// NewAchievementEngine 创建评估器；不在目录中的已保存状态会被丢弃
func NewAchievementEngine(catalog []AchievementRule, states []schema.AchievementState) (*AchievementEngine, error) {
	if err := ValidateCatalog(catalog); err != nil {
		return nil, fmt.Errorf("成就目录无效: %w", err)
	}
	known := make(map[string]struct{}, len(catalog))
	for _, r := range catalog {
		known[r.ID] = struct{}{}
	}

	e := &AchievementEngine{
		catalog: append([]AchievementRule(nil), catalog...),
		states:  make(map[string]schema.AchievementState, len(catalog)),
	}
	for _, st := range states {
		if _, ok := known[st.ID]; !ok {
			continue
		}
		if st.Progress < 0 {
			st.Progress = 0
		}
		e.states[st.ID] = st
	}
	return e, nil
}

// Evaluate 按快照评估全部规则，返回更新后的成就与本次新解锁的成就
func (e *AchievementEngine) Evaluate(snapshot schema.StatisticsSnapshot, now time.Time) (updated []schema.Achievement, newlyUnlocked []schema.Achievement) {
	updated = make([]schema.Achievement, 0, len(e.catalog))
	for _, rule := range e.catalog {
		st, unlocked := evaluateRule(rule, e.states[rule.ID], snapshot, now)
		e.states[rule.ID] = st
		a := toAchievement(rule, st)
		updated = append(updated, a)
		if unlocked {
			newlyUnlocked = append(newlyUnlocked, a)
		}
	}
	return updated, newlyUnlocked
}

// Achievements 目录顺序的成就视图
func (e *AchievementEngine) Achievements() []schema.Achievement {
	out := make([]schema.Achievement, 0, len(e.catalog))
	for _, rule := range e.catalog {
		out = append(out, toAchievement(rule, e.states[rule.ID]))
	}
	return out
}

// States 待持久化的状态，按目录顺序
func (e *AchievementEngine) States() []schema.AchievementState {
	out := make([]schema.AchievementState, 0, len(e.states))
	for _, rule := range e.catalog {
		if st, ok := e.states[rule.ID]; ok {
			out = append(out, copyState(st))
		}
	}
	return out
}

// Reset 全部回到未解锁
func (e *AchievementEngine) Reset() {
	e.states = make(map[string]schema.AchievementState, len(e.catalog))
}

// evaluateRule 单条规则评估：进度只增不减，解锁只发生一次
func evaluateRule(rule AchievementRule, st schema.AchievementState, snapshot schema.StatisticsSnapshot, now time.Time) (schema.AchievementState, bool) {
	st.ID = rule.ID
	value, _ := snapshot.Value(rule.Statistic)

	if p := clampInt(value, 0, rule.Requirement); p > st.Progress {
		st.Progress = p
	}
	if st.UnlockedAt != nil || value < rule.Requirement {
		return st, false
	}
	t := now
	st.UnlockedAt = &t
	return st, true
}

func toAchievement(rule AchievementRule, st schema.AchievementState) schema.Achievement {
	a := schema.Achievement{
		ID:          rule.ID,
		Name:        rule.Name,
		Description: rule.Description,
		Icon:        rule.Icon,
		Tier:        rule.Tier,
		Statistic:   rule.Statistic,
		Requirement: rule.Requirement,
		Progress:    clampInt(st.Progress, 0, rule.Requirement),
	}
	if st.UnlockedAt != nil {
		t := *st.UnlockedAt
		a.UnlockedAt = &t
	}
	return a
}

func copyState(st schema.AchievementState) schema.AchievementState {
	if st.UnlockedAt != nil {
		t := *st.UnlockedAt
		st.UnlockedAt = &t
	}
	return st
}

// clampInt 将数值限制在指定范围内
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
