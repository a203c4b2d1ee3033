package schema

import "time"

// Tier 成就等级，仅作展示用
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid 是否为已知等级
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// Statistic 成就绑定的统计量
type Statistic string

const (
	StatUniqueItems   Statistic = "unique_items"
	StatCategories    Statistic = "categories"
	StatCurrentStreak Statistic = "current_streak"
	StatLongestStreak Statistic = "longest_streak"
	StatTotalMinutes  Statistic = "total_minutes"
	StatTotalViews    Statistic = "total_views"
	StatActiveDays    Statistic = "active_days"
)

// AchievementState 成就的持久化状态（按成就 ID 关联目录）
type AchievementState struct {
	ID         string     `json:"id"`
	Progress   int        `json:"progress"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Achievement 展示层读取的成就视图
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Tier        Tier       `json:"tier"`
	Statistic   Statistic  `json:"statistic"`
	Requirement int        `json:"requirement"`
	Progress    int        `json:"progress"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Unlocked 是否已解锁
func (a Achievement) Unlocked() bool {
	return a.UnlockedAt != nil
}

// Percent 完成百分比 [0,100]
func (a Achievement) Percent() float64 {
	if a.Requirement <= 0 {
		return 0
	}
	p := float64(a.Progress) / float64(a.Requirement) * 100
	if p > 100 {
		return 100
	}
	return p
}
