package service

import (
	"fmt"
	"time"
)

// DayLayout 自然日键格式
const DayLayout = "2006-01-02"

// DayKey 按指定时区取自然日键（本地零点为日界）
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDayKey 将 YYYY-MM-DD 解析为该时区当日零点
func ParseDayKey(day string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DayLayout, day, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期失败: %w", err)
	}
	return t, nil
}

// shiftDay 日键平移 n 天，按日历计算，不受夏令时影响
func shiftDay(day string, n int) (string, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return "", fmt.Errorf("解析日期失败: %w", err)
	}
	return t.AddDate(0, 0, n).Format(DayLayout), nil
}

// daysBetween 返回 b-a 的日历天数
func daysBetween(a, b string) (int, error) {
	ta, err := time.Parse(DayLayout, a)
	if err != nil {
		return 0, fmt.Errorf("解析日期失败: %w", err)
	}
	tb, err := time.Parse(DayLayout, b)
	if err != nil {
		return 0, fmt.Errorf("解析日期失败: %w", err)
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
