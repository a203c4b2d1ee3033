package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "config", "config.yaml"), nil
}

func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
		},
		"storage": map[string]any{
			"driver":     cfg.Storage.Driver,
			"db_path":    cfg.Storage.DBPath,
			"badger_dir": cfg.Storage.BadgerDir,
		},
		"tracking": map[string]any{
			"timezone":                 cfg.Tracking.Timezone,
			"default_minutes_per_view": cfg.Tracking.DefaultMinutesPerView,
			"max_minutes_per_day":      cfg.Tracking.MaxMinutesPerDay,
			"retention_days":           cfg.Tracking.RetentionDays,
			"prune_at":                 cfg.Tracking.PruneAt,
		},
		"achievements": map[string]any{
			"clear_policy": cfg.Achievements.ClearPolicy,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
