package service

import (
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// WeekLength 周视图固定天数
const WeekLength = 7

// WeeklyActivity 截取 reference 所在日及之前 6 天，按日期升序，缺失日补零
func WeeklyActivity(days []schema.DailyActivity, reference time.Time, loc *time.Location) []schema.DailyActivity {
	byDay := make(map[string]schema.DailyActivity, len(days))
	for _, d := range days {
		byDay[d.Day] = d
	}

	end := DayKey(reference, loc)
	out := make([]schema.DailyActivity, 0, WeekLength)
	for offset := WeekLength - 1; offset >= 0; offset-- {
		day, err := shiftDay(end, -offset)
		if err != nil {
			// DayKey 输出的格式总能解析
			day = end
		}
		if d, ok := byDay[day]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, schema.EmptyDay(day))
	}
	return out
}
