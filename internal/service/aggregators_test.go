package service

import (
	"testing"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/schema"
)

func viewAt(itemID, title, category string, at time.Time, minutes int) schema.ViewEvent {
	return schema.ViewEvent{ItemID: itemID, Title: title, CategoryName: category, OccurredAt: at, Minutes: minutes}
}

func TestItemProgressAggregatorUpdate(t *testing.T) {
	a := NewItemProgressAggregator(nil)
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	first := a.Update(viewAt("i1", "Old title", "blog", t0, 1))
	if first.ViewCount != 1 || !first.FirstViewedAt.Equal(t0) {
		t.Fatalf("first=%+v, want viewCount 1", first)
	}

	second := a.Update(viewAt("i1", "New title", "events", t0.Add(time.Hour), 1))
	if second.ViewCount != 2 || second.Title != "New title" || second.CategoryName != "events" {
		t.Fatalf("second=%+v, want latest title/category and count 2", second)
	}

	// 乱序的旧事件只计数
	late := a.Update(viewAt("i1", "Stale", "stale", t0.Add(-time.Hour), 1))
	if late.ViewCount != 3 || late.Title != "New title" || !late.LastViewedAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("late=%+v, want count 3 without rewinding recency", late)
	}
	if !late.FirstViewedAt.Equal(t0.Add(-time.Hour)) {
		t.Fatalf("firstViewedAt=%v, want %v", late.FirstViewedAt, t0.Add(-time.Hour))
	}
}

func TestItemProgressHistoryOrder(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	a := NewItemProgressAggregator(nil)
	a.Update(viewAt("a", "A", "", t0, 1))
	a.Update(viewAt("b", "B", "", t0.Add(2*time.Hour), 1))
	a.Update(viewAt("c", "C", "", t0.Add(time.Hour), 1))
	a.Update(viewAt("d", "D", "", t0.Add(time.Hour), 1))

	got := a.History()
	want := []string{"b", "c", "d", "a"}
	if len(got) != len(want) {
		t.Fatalf("len=%d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ItemID != id {
			t.Fatalf("history[%d]=%s, want %s", i, got[i].ItemID, id)
		}
	}
}

func TestDailyActivityAggregatorBucketsByLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	a := NewDailyActivityAggregator(nil, loc, 0)

	// UTC 17:00 已是东八区次日凌晨
	d := a.Update(viewAt("i1", "T", "", time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC), 5))
	if d.Day != "2026-03-10" {
		t.Fatalf("day=%s, want 2026-03-10", d.Day)
	}
	d = a.Update(viewAt("i1", "T", "", time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), 5))
	if d.Day != "2026-03-10" || d.ItemsViewedCount != 2 || d.MinutesActive != 10 {
		t.Fatalf("day=%+v, want 2 views 10 minutes on 2026-03-10", d)
	}
	if a.Len() != 1 {
		t.Fatalf("len=%d, want 1", a.Len())
	}
}

func TestDailyActivityAggregatorCapsMinutes(t *testing.T) {
	a := NewDailyActivityAggregator(nil, time.UTC, 30)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	a.Update(viewAt("i1", "T", "", at, 20))
	d := a.Update(viewAt("i2", "T", "", at, 20))
	if d.MinutesActive != 30 {
		t.Fatalf("minutes=%d, want capped 30", d.MinutesActive)
	}
	d = a.Update(viewAt("i3", "T", "", at, 0))
	if d.MinutesActive != 30 || d.ItemsViewedCount != 3 {
		t.Fatalf("day=%+v, want 30 minutes 3 views", d)
	}
	if capped := NewDailyActivityAggregator(nil, time.UTC, 99999); capped.maxMinutes != MaxMinutesPerDay {
		t.Fatalf("maxMinutes=%d, want %d", capped.maxMinutes, MaxMinutesPerDay)
	}
}

func TestNewDailyActivityAggregatorMergesDuplicateDays(t *testing.T) {
	a := NewDailyActivityAggregator([]schema.DailyActivity{
		{Day: "2026-03-10", ItemsViewedCount: 1, MinutesActive: 4},
		{Day: "2026-03-10", ItemsViewedCount: 2, MinutesActive: 6},
	}, time.UTC, 0)
	d, ok := a.Get("2026-03-10")
	if !ok || d.ItemsViewedCount != 3 || d.MinutesActive != 10 {
		t.Fatalf("day=%+v ok=%v, want merged 3/10", d, ok)
	}
}

func TestEventLogPruneAndRecent(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l := NewEventLog(nil)
	l.Append(viewAt("old", "T", "", t0.AddDate(0, 0, -200), 1))
	l.Append(viewAt("mid", "T", "", t0.AddDate(0, 0, -10), 1))
	l.Append(viewAt("new", "T", "", t0, 1))

	recent := l.Recent(2)
	if len(recent) != 2 || recent[0].ItemID != "new" || recent[1].ItemID != "mid" {
		t.Fatalf("recent=%+v, want new,mid", recent)
	}

	if n := l.PruneBefore(t0.AddDate(0, 0, -180)); n != 1 {
		t.Fatalf("pruned=%d, want 1", n)
	}
	if l.Len() != 2 || l.Events()[0].ItemID != "mid" {
		t.Fatalf("events=%+v, want mid,new", l.Events())
	}
	if len(l.Recent(0)) != 2 {
		t.Fatalf("Recent(0) should return all")
	}
}

func TestBuildStatistics(t *testing.T) {
	items := []schema.ItemProgress{
		{ItemID: "a", CategoryName: "blog", ViewCount: 2},
		{ItemID: "b", CategoryName: "blog", ViewCount: 1},
		{ItemID: "c", CategoryName: "", ViewCount: 4},
		{ItemID: "d", CategoryName: "events", ViewCount: 1},
	}
	days := []schema.DailyActivity{
		{Day: "2026-03-09", MinutesActive: 15, ItemsViewedCount: 3},
		{Day: "2026-03-10", MinutesActive: 5, ItemsViewedCount: 5},
	}
	got := BuildStatistics(items, days, Streaks{Current: 2, Longest: 4})

	want := schema.StatisticsSnapshot{
		UniqueItemsViewed:     4,
		CategoriesCount:       2,
		CurrentStreak:         2,
		LongestStreak:         4,
		TotalTimeSpentMinutes: 20,
		TotalViews:            8,
		ActiveDays:            2,
	}
	if got != want {
		t.Fatalf("got=%+v, want %+v", got, want)
	}
	if empty := BuildStatistics(nil, nil, Streaks{}); empty != (schema.StatisticsSnapshot{}) {
		t.Fatalf("empty=%+v, want zero snapshot", empty)
	}
}

func TestWeeklyActivityZeroFills(t *testing.T) {
	ref := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	days := []schema.DailyActivity{
		{Day: "2026-03-01", MinutesActive: 9, ItemsViewedCount: 9},
		{Day: "2026-03-04", MinutesActive: 3, ItemsViewedCount: 2},
		{Day: "2026-03-10", MinutesActive: 7, ItemsViewedCount: 4},
	}

	got := WeeklyActivity(days, ref, time.UTC)
	if len(got) != WeekLength {
		t.Fatalf("len=%d, want 7", len(got))
	}
	wantDays := []string{"2026-03-04", "2026-03-05", "2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09", "2026-03-10"}
	for i, d := range wantDays {
		if got[i].Day != d {
			t.Fatalf("got[%d].Day=%s, want %s", i, got[i].Day, d)
		}
	}
	if got[0].ItemsViewedCount != 2 || got[6].MinutesActive != 7 {
		t.Fatalf("edges=%+v,%+v, want data kept", got[0], got[6])
	}
	for i := 1; i < 6; i++ {
		if got[i].ItemsViewedCount != 0 || got[i].MinutesActive != 0 {
			t.Fatalf("got[%d]=%+v, want zero-filled", i, got[i])
		}
	}

	empty := WeeklyActivity(nil, ref, time.UTC)
	if len(empty) != WeekLength || empty[6].Day != "2026-03-10" {
		t.Fatalf("empty=%+v, want 7 zero days ending 2026-03-10", empty)
	}
}
