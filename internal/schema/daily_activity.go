package schema

// DailyActivity 单日活跃汇总，每天至多一条
type DailyActivity struct {
	Day              string `json:"day"`                // YYYY-MM-DD（按配置时区的自然日）
	MinutesActive    int    `json:"minutes_active"`     // 估算活跃分钟，当日单调不减
	ItemsViewedCount int    `json:"items_viewed_count"` // 当日浏览事件数（非去重）
}

// EmptyDay 零值日
func EmptyDay(day string) DailyActivity {
	return DailyActivity{Day: day}
}
