package service

import (
	"sort"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

// Streaks 连续活跃天数
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// ComputeStreaks 根据日活跃记录计算连续天数
//
// Current 从 today 或昨天起向前数连续日（今天尚未活跃不算断档）；
// Longest 为全部历史中最长的连续段。today 之后的日期（时钟异常）只参与 Longest。
func ComputeStreaks(days []schema.DailyActivity, today string) Streaks {
	keys := activeDayKeys(days)
	if len(keys) == 0 {
		return Streaks{}
	}

	// 升序扫一遍求最长段
	longest, run := 1, 1
	for i := 1; i < len(keys); i++ {
		gap, err := daysBetween(keys[i-1], keys[i])
		if err == nil && gap == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	current := 0
	prev := ""
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		if k > today {
			continue
		}
		if prev == "" {
			gap, err := daysBetween(k, today)
			if err != nil || gap > 1 {
				break
			}
			current = 1
			prev = k
			continue
		}
		gap, err := daysBetween(k, prev)
		if err != nil || gap != 1 {
			break
		}
		current++
		prev = k
	}

	if current > longest {
		longest = current
	}
	return Streaks{Current: current, Longest: longest}
}

// activeDayKeys 去重后的升序活跃日
func activeDayKeys(days []schema.DailyActivity) []string {
	seen := make(map[string]struct{}, len(days))
	keys := make([]string, 0, len(days))
	for _, d := range days {
		if d.Day == "" || d.ItemsViewedCount <= 0 {
			continue
		}
		if _, ok := seen[d.Day]; ok {
			continue
		}
		seen[d.Day] = struct{}{}
		keys = append(keys, d.Day)
	}
	sort.Strings(keys)
	return keys
}
