package schema

// StatisticsSnapshot 派生统计快照，不单独持久化
type StatisticsSnapshot struct {
	UniqueItemsViewed     int `json:"unique_items_viewed"`
	CategoriesCount       int `json:"categories_count"`
	CurrentStreak         int `json:"current_streak"`
	LongestStreak         int `json:"longest_streak"`
	TotalTimeSpentMinutes int `json:"total_time_spent_minutes"`
	TotalViews            int `json:"total_views"`
	ActiveDays            int `json:"active_days"`
}

// Value 返回指定统计量的原始值，未知统计量返回 false
func (s StatisticsSnapshot) Value(stat Statistic) (int, bool) {
	switch stat {
	case StatUniqueItems:
		return s.UniqueItemsViewed, true
	case StatCategories:
		return s.CategoriesCount, true
	case StatCurrentStreak:
		return s.CurrentStreak, true
	case StatLongestStreak:
		return s.LongestStreak, true
	case StatTotalMinutes:
		return s.TotalTimeSpentMinutes, true
	case StatTotalViews:
		return s.TotalViews, true
	case StatActiveDays:
		return s.ActiveDays, true
	}
	return 0, false
}
