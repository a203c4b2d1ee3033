package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 存储驱动
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// 清空历史时的成就策略
const (
	ClearPolicyPreserve = "preserve"
	ClearPolicyReset    = "reset"
)

// Config 应用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Tracking     TrackingConfig     `mapstructure:"tracking"`
	Achievements AchievementsConfig `mapstructure:"achievements"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	DBPath    string `mapstructure:"db_path"`
	BadgerDir string `mapstructure:"badger_dir"`
}

// TrackingConfig 浏览统计配置
type TrackingConfig struct {
	Timezone              string `mapstructure:"timezone"` // 空为系统时区
	DefaultMinutesPerView int    `mapstructure:"default_minutes_per_view"`
	MaxMinutesPerDay      int    `mapstructure:"max_minutes_per_day"`
	RetentionDays         int    `mapstructure:"retention_days"` // <=0 不裁剪
	PruneAt               string `mapstructure:"prune_at"`       // HH:MM
}

// AchievementsConfig 成就配置
type AchievementsConfig struct {
	ClearPolicy string `mapstructure:"clear_policy"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 PROGRESS_STORAGE_DRIVER
	v.SetEnvPrefix("PROGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else if configPath != "" && os.IsNotExist(err) {
			slog.Warn("配置文件不存在，使用默认配置", "path", configPath)
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Achievements.ClearPolicy = strings.ToLower(strings.TrimSpace(cfg.Achievements.ClearPolicy))
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.Storage.BadgerDir = resolvePath(cfg.Storage.BadgerDir)
	if cfg.App.LogPath != "" {
		cfg.App.LogPath = resolvePath(cfg.App.LogPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 不读文件的默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "progress")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")

	// Storage
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.db_path", "./data/progress.db")
	v.SetDefault("storage.badger_dir", "./data/badger")

	// Tracking
	v.SetDefault("tracking.timezone", "")
	v.SetDefault("tracking.default_minutes_per_view", 1)
	v.SetDefault("tracking.max_minutes_per_day", 24*60)
	v.SetDefault("tracking.retention_days", 180)
	v.SetDefault("tracking.prune_at", "03:30")

	// Achievements
	v.SetDefault("achievements.clear_policy", ClearPolicyPreserve)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverBadger, DriverMemory:
	default:
		return fmt.Errorf("未知存储驱动: %q", c.Storage.Driver)
	}
	switch c.Achievements.ClearPolicy {
	case ClearPolicyPreserve, ClearPolicyReset:
	default:
		return fmt.Errorf("未知清空策略: %q", c.Achievements.ClearPolicy)
	}
	if c.Tracking.DefaultMinutesPerView < 0 {
		return fmt.Errorf("default_minutes_per_view 不能为负: %d", c.Tracking.DefaultMinutesPerView)
	}
	if c.Tracking.MaxMinutesPerDay <= 0 || c.Tracking.MaxMinutesPerDay > 24*60 {
		return fmt.Errorf("max_minutes_per_day 需在 1-1440 之间: %d", c.Tracking.MaxMinutesPerDay)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.Tracking.PruneAt); err != nil {
		return fmt.Errorf("prune_at 格式应为 HH:MM: %q", c.Tracking.PruneAt)
	}
	return nil
}

// Location 日界时区；未配置时为系统时区
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Tracking.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	return loc, nil
}

// resolvePath 解析相对路径为可执行文件目录下的绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}

// LoggerOptions 日志配置
type LoggerOptions struct {
	Level     string
	Path      string // 非空时同时追加写入该文件
	Component string
}

// ParseLevel 解析日志级别，未知值为 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// logLevel 运行时可调的全局日志级别
var logLevel = new(slog.LevelVar)

// SetLogLevel 热更新日志级别
func SetLogLevel(level string) {
	logLevel.Set(ParseLevel(level))
}

// SetupLogger 安装全局 slog；返回的 Closer 用于关闭日志文件
func SetupLogger(opts LoggerOptions) (io.Closer, error) {
	logLevel.Set(ParseLevel(opts.Level))

	var out io.Writer = os.Stderr
	var closer io.Closer
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	slog.SetDefault(logger)
	return closer, nil
}
