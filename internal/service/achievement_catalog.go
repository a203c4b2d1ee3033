package service

import (
	"fmt"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// CatalogVersion 成就目录版本；修改成就 ID 会使其已保存进度失效
const CatalogVersion = 1

// AchievementRule 成就规则：一个统计量 + 一个阈值
type AchievementRule struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Tier        schema.Tier
	Statistic   schema.Statistic
	Requirement int
}

// DefaultCatalog 内置成就目录，顺序即展示顺序
func DefaultCatalog() []AchievementRule {
	return []AchievementRule{
		{ID: "first_view", Name: "初次探索", Description: "浏览第 1 个条目", Icon: "sparkles", Tier: schema.TierBronze, Statistic: schema.StatUniqueItems, Requirement: 1},
		{ID: "curious_mind", Name: "好奇心", Description: "浏览 5 个不同条目", Icon: "eye", Tier: schema.TierBronze, Statistic: schema.StatUniqueItems, Requirement: 5},
		{ID: "avid_reader", Name: "博览", Description: "浏览 25 个不同条目", Icon: "book", Tier: schema.TierSilver, Statistic: schema.StatUniqueItems, Requirement: 25},
		{ID: "completionist", Name: "集大成者", Description: "浏览 100 个不同条目", Icon: "library", Tier: schema.TierGold, Statistic: schema.StatUniqueItems, Requirement: 100},

		{ID: "explorer", Name: "探索者", Description: "涉猎 3 个分类", Icon: "compass", Tier: schema.TierBronze, Statistic: schema.StatCategories, Requirement: 3},
		{ID: "globetrotter", Name: "行者", Description: "涉猎 6 个分类", Icon: "map", Tier: schema.TierSilver, Statistic: schema.StatCategories, Requirement: 6},
		{ID: "polymath", Name: "通才", Description: "涉猎 10 个分类", Icon: "globe", Tier: schema.TierGold, Statistic: schema.StatCategories, Requirement: 10},

		{ID: "streak_3", Name: "三日不辍", Description: "连续 3 天有浏览", Icon: "flame", Tier: schema.TierBronze, Statistic: schema.StatCurrentStreak, Requirement: 3},
		{ID: "streak_7", Name: "一周坚持", Description: "连续 7 天有浏览", Icon: "calendar", Tier: schema.TierSilver, Statistic: schema.StatCurrentStreak, Requirement: 7},
		{ID: "streak_30", Name: "月度常客", Description: "连续 30 天有浏览", Icon: "trophy", Tier: schema.TierGold, Statistic: schema.StatCurrentStreak, Requirement: 30},

		{ID: "hour_spent", Name: "沉浸一小时", Description: "累计活跃 60 分钟", Icon: "clock", Tier: schema.TierBronze, Statistic: schema.StatTotalMinutes, Requirement: 60},
		{ID: "ten_hours", Name: "十小时", Description: "累计活跃 600 分钟", Icon: "hourglass", Tier: schema.TierSilver, Statistic: schema.StatTotalMinutes, Requirement: 600},
		{ID: "devotee", Name: "忠实用户", Description: "累计活跃 3000 分钟", Icon: "crown", Tier: schema.TierGold, Statistic: schema.StatTotalMinutes, Requirement: 3000},

		{ID: "regular", Name: "熟客", Description: "累计 20 天有浏览", Icon: "star", Tier: schema.TierSilver, Statistic: schema.StatActiveDays, Requirement: 20},
	}
}

// ValidateCatalog 校验目录：ID 唯一、阈值为正、统计量与等级已知
func ValidateCatalog(rules []AchievementRule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("第 %d 条成就缺少 ID", i)
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("成就 ID 重复: %s", r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.Requirement <= 0 {
			return fmt.Errorf("成就 %s 阈值必须为正: %d", r.ID, r.Requirement)
		}
		if !r.Tier.Valid() {
			return fmt.Errorf("成就 %s 等级未知: %s", r.ID, r.Tier)
		}
		if _, ok := (schema.StatisticsSnapshot{}).Value(r.Statistic); !ok {
			return fmt.Errorf("成就 %s 统计量未知: %s", r.ID, r.Statistic)
		}
	}
	return nil
}
