package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuqie6/ProgressMirror/internal/eventbus"
	"github.com/yuqie6/ProgressMirror/internal/pkg/config"
	"github.com/yuqie6/ProgressMirror/internal/repository"
	"github.com/yuqie6/ProgressMirror/internal/schema"
	"github.com/yuqie6/ProgressMirror/internal/service"
)

// StateBackend 可关闭的状态仓储
type StateBackend interface {
	LoadAll(ctx context.Context) ([]schema.StateBlob, error)
	SaveAll(ctx context.Context, blobs []schema.StateBlob) error
	Close() error
}

// Core 持有跨命令共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database // 仅 sqlite 驱动
	Repo      StateBackend
	Store     *service.StateStore
	Bus       *eventbus.Hub
	Engine    *service.EngagementService
	LogCloser io.Closer
}

// NewCore 加载配置、安装日志并构建引擎
func NewCore(ctx context.Context, cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logCloser, err := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})
	if err != nil {
		slog.Warn("日志文件不可用，仅输出到终端", "error", err)
	}

	c, err := NewCoreWithConfig(ctx, cfg)
	if err != nil {
		if logCloser != nil {
			_ = logCloser.Close()
		}
		return nil, err
	}
	c.LogCloser = logCloser
	return c, nil
}

// NewCoreWithConfig 按给定配置构建（不改动全局日志）
func NewCoreWithConfig(ctx context.Context, cfg *config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engineCfg, err := EngineConfig(cfg)
	if err != nil {
		return nil, err
	}

	c := &Core{Cfg: cfg, Bus: eventbus.NewHub()}
	if err := c.openBackend(); err != nil {
		return nil, err
	}
	c.Store = service.NewStateStore(c.Repo)

	engine, err := service.NewEngagementService(ctx, c.Store, c.Bus, engineCfg)
	if err != nil {
		_ = c.closeBackend()
		return nil, err
	}
	c.Engine = engine
	return c, nil
}

func (c *Core) openBackend() error {
	switch c.Cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := repository.NewDatabase(c.Cfg.Storage.DBPath)
		if err != nil {
			return err
		}
		c.DB = db
		c.Repo = repository.NewStateRepositoryFor(db)
		if db.SafeMode {
			slog.Warn("数据库处于安全模式，本次运行的修改不会保存", "reason", db.MigrationError)
		}
	case config.DriverBadger:
		repo, err := repository.OpenBadgerStateRepository(c.Cfg.Storage.BadgerDir)
		if err != nil {
			return err
		}
		c.Repo = repo
	case config.DriverMemory:
		c.Repo = repository.NewMemoryStateRepository()
	default:
		return fmt.Errorf("未知存储驱动: %q", c.Cfg.Storage.Driver)
	}
	slog.Debug("状态仓储已打开", "driver", c.Cfg.Storage.Driver)
	return nil
}

// EngineConfig 将应用配置映射为引擎配置
func EngineConfig(cfg *config.Config) (*service.EngagementConfig, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ec := service.DefaultEngagementConfig()
	ec.Location = loc
	ec.DefaultMinutesPerView = cfg.Tracking.DefaultMinutesPerView
	ec.MaxMinutesPerDay = cfg.Tracking.MaxMinutesPerDay
	ec.RetentionDays = cfg.Tracking.RetentionDays
	if cfg.Achievements.ClearPolicy == config.ClearPolicyReset {
		ec.ClearPolicy = service.ClearResetAchievements
	}
	return ec, nil
}

// ApplyConfig 热更新可在运行期调整的配置项
// 存储驱动、时区与清空策略需重启生效
func (c *Core) ApplyConfig(cfg *config.Config) {
	if c == nil || cfg == nil {
		return
	}
	config.SetLogLevel(cfg.App.LogLevel)
	if c.Engine != nil {
		c.Engine.Retune(cfg.Tracking.DefaultMinutesPerView, cfg.Tracking.MaxMinutesPerDay, cfg.Tracking.RetentionDays)
	}
	if cfg.Storage != c.Cfg.Storage || cfg.Tracking.Timezone != c.Cfg.Tracking.Timezone || cfg.Achievements != c.Cfg.Achievements {
		slog.Warn("部分配置需重启后生效", "driver", cfg.Storage.Driver, "timezone", cfg.Tracking.Timezone, "clear_policy", cfg.Achievements.ClearPolicy)
	}
	next := *c.Cfg
	next.App.LogLevel = cfg.App.LogLevel
	next.Tracking.DefaultMinutesPerView = cfg.Tracking.DefaultMinutesPerView
	next.Tracking.MaxMinutesPerDay = cfg.Tracking.MaxMinutesPerDay
	next.Tracking.RetentionDays = cfg.Tracking.RetentionDays
	c.Cfg = &next
}

// Close 落盘并关闭资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Engine != nil {
		if err := c.Engine.Close(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.closeBackend(); err != nil {
		errs = append(errs, err)
	}
	if c.LogCloser != nil {
		_ = c.LogCloser.Close()
	}
	return errors.Join(errs...)
}

func (c *Core) closeBackend() error {
	var errs []error
	if c.Repo != nil {
		if err := c.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
