package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/pkg/config"
	"github.com/yuqie6/ProgressMirror/internal/service"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Driver = driver
	cfg.Storage.DBPath = filepath.Join(dir, "progress.db")
	cfg.Storage.BadgerDir = filepath.Join(dir, "badger")
	cfg.Tracking.Timezone = "UTC"
	return cfg
}

func TestCoreDriversPersistAcrossRestart(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverBadger} {
		cfg := testConfig(t, driver)
		ctx := context.Background()

		c, err := NewCoreWithConfig(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: NewCoreWithConfig error: %v", driver, err)
		}
		if _, err := c.Engine.RecordView(ctx, service.ViewInput{ItemID: "a", Title: "A", CategoryName: "blog"}); err != nil {
			t.Fatalf("%s: RecordView error: %v", driver, err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("%s: Close error: %v", driver, err)
		}

		c, err = NewCoreWithConfig(ctx, cfg)
		if err != nil {
			t.Fatalf("%s: reopen error: %v", driver, err)
		}
		stats := c.Engine.Statistics()
		if stats.UniqueItemsViewed != 1 || stats.CategoriesCount != 1 {
			t.Fatalf("%s: stats=%+v, want 1 item 1 category", driver, stats)
		}
		if !c.Engine.Achievements()[0].Unlocked() {
			t.Fatalf("%s: first achievement should survive restart", driver)
		}
		_ = c.Close()
	}
}

func TestCoreMemoryDriver(t *testing.T) {
	c, err := NewCoreWithConfig(context.Background(), testConfig(t, config.DriverMemory))
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	defer c.Close()
	if c.DB != nil {
		t.Fatalf("memory driver should not open sqlite")
	}
	if len(c.Engine.WeeklyActivity(time.Time{})) != 7 {
		t.Fatalf("weekly should have 7 entries")
	}
}

func TestEngineConfigMapping(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.Achievements.ClearPolicy = config.ClearPolicyReset
	cfg.Tracking.RetentionDays = 7

	ec, err := EngineConfig(cfg)
	if err != nil {
		t.Fatalf("EngineConfig error: %v", err)
	}
	if ec.ClearPolicy != service.ClearResetAchievements || ec.RetentionDays != 7 || ec.Location != time.UTC {
		t.Fatalf("ec=%+v", ec)
	}
}

func TestNewCoreWithConfigRejectsInvalid(t *testing.T) {
	cfg := testConfig(t, "postgres")
	if _, err := NewCoreWithConfig(context.Background(), cfg); err == nil {
		t.Fatalf("want error for unknown driver")
	}
}

func TestApplyConfigUpdatesTunables(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	c, err := NewCoreWithConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewCoreWithConfig error: %v", err)
	}
	defer c.Close()

	next := *cfg
	next.Tracking.DefaultMinutesPerView = 4
	next.Storage.Driver = config.DriverBadger
	c.ApplyConfig(&next)

	if c.Cfg.Tracking.DefaultMinutesPerView != 4 {
		t.Fatalf("minutes=%d, want 4", c.Cfg.Tracking.DefaultMinutesPerView)
	}
	if c.Cfg.Storage.Driver != config.DriverMemory {
		t.Fatalf("driver=%q, want unchanged memory", c.Cfg.Storage.Driver)
	}
	res, _ := c.Engine.RecordView(context.Background(), service.ViewInput{ItemID: "a", Title: "A"})
	if res.Event.Minutes != 4 {
		t.Fatalf("minutes=%d, want 4", res.Event.Minutes)
	}
}
