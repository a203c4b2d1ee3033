package service

import "github.com/yuqie6/ProgressMirror/internal/schema"

// BuildStatistics 由聚合结果构建统计快照（纯函数）
func BuildStatistics(items []schema.ItemProgress, days []schema.DailyActivity, streaks Streaks) schema.StatisticsSnapshot {
	categories := make(map[string]struct{})
	totalViews := 0
	for _, it := range items {
		totalViews += it.ViewCount
		if it.CategoryName != "" {
			categories[it.CategoryName] = struct{}{}
		}
	}

	totalMinutes := 0
	activeDays := 0
	for _, d := range days {
		totalMinutes += d.MinutesActive
		if d.ItemsViewedCount > 0 {
			activeDays++
		}
	}

	return schema.StatisticsSnapshot{
		UniqueItemsViewed:     len(items),
		CategoriesCount:       len(categories),
		CurrentStreak:         streaks.Current,
		LongestStreak:         streaks.Longest,
		TotalTimeSpentMinutes: totalMinutes,
		TotalViews:            totalViews,
		ActiveDays:            activeDays,
	}
}
