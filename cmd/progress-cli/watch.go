package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/yuqie6/ProgressMirror/internal/eventbus"
	"github.com/yuqie6/ProgressMirror/internal/pkg/config"
	"github.com/yuqie6/ProgressMirror/internal/scheduler"
	"github.com/yuqie6/ProgressMirror/internal/service"
)

// flushInterval 落盘失败后的后台重试间隔
const flushInterval = 30 * time.Second

// viewLine 标准输入的一行浏览记录
type viewLine struct {
	ItemID     string     `json:"item_id"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	Minutes    *int       `json:"minutes,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

var errBlankLine = errors.New("空行")

func parseViewLine(line string) (service.ViewInput, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return service.ViewInput{}, errBlankLine
	}
	var v viewLine
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return service.ViewInput{}, fmt.Errorf("解析浏览记录失败: %w", err)
	}
	in := service.ViewInput{
		ItemID:       v.ItemID,
		Title:        v.Title,
		CategoryName: v.Category,
		MinutesHint:  v.Minutes,
	}
	if v.OccurredAt != nil {
		in.OccurredAt = *v.OccurredAt
	}
	return in, nil
}

// watchCmd 常驻模式：从标准输入读取浏览记录
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "常驻运行：从标准输入逐行读取 JSON 浏览记录",
		Long: `每行一条 JSON，例如 {"item_id":"a1","title":"标题","category":"blog","minutes":3}。
运行期间按配置每日裁剪过期事件，并在配置文件变更时热更新日志级别与计时参数。`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go printEvents(core.Bus.Subscribe(ctx, 64,
				eventbus.TypeViewRecorded,
				eventbus.TypeAchievementUnlocked,
				eventbus.TypeEventsPruned,
			))

			loc, _ := core.Cfg.Location()
			retention, err := scheduler.NewRetention(core.Engine, loc, core.Cfg.Tracking.PruneAt)
			if err != nil {
				fail("创建裁剪任务失败: %v", err)
			}
			if err := retention.Start(ctx); err != nil {
				fail("%v", err)
			}
			defer retention.Stop()

			if cfgFile != "" {
				if err := config.Watch(ctx, cfgFile, core.ApplyConfig); err != nil {
					slog.Warn("配置热更新不可用", "error", err)
				}
			}

			fmt.Println("👀 正在监听标准输入，Ctrl+C 退出")
			done := make(chan error, 1)
			go func() { done <- ingest(ctx, os.Stdin, core.Engine) }()

			ticker := time.NewTicker(flushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					fmt.Println("👋 已退出")
					return
				case err := <-done:
					if err != nil {
						slog.Warn("读取标准输入失败", "error", err)
					}
					return
				case <-ticker.C:
					if core.Engine.Dirty() {
						if err := core.Engine.Flush(ctx); err != nil {
							slog.Warn("后台重试保存失败", "error", err)
						}
					}
				}
			}
		},
	}
}

type recorder interface {
	RecordView(ctx context.Context, in service.ViewInput) (service.RecordResult, error)
}

// ingest 逐行记录，坏行跳过，返回读取错误（EOF 返回 nil）
func ingest(ctx context.Context, r io.Reader, rec recorder) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		in, err := parseViewLine(sc.Text())
		if errors.Is(err, errBlankLine) {
			continue
		}
		if err != nil {
			slog.Warn("跳过无法解析的行", "error", err)
			continue
		}
		// 无效记录引擎已记日志
		_, _ = rec.RecordView(ctx, in)
	}
	return sc.Err()
}

func printEvents(ch <-chan eventbus.Event) {
	for evt := range ch {
		switch evt.Type {
		case eventbus.TypeAchievementUnlocked:
			fmt.Printf("🏆 解锁成就: %v\n", evt.Data["name"])
		case eventbus.TypeViewRecorded:
			fmt.Printf("✅ %v 第 %v 次浏览\n", evt.Data["item_id"], evt.Data["view_count"])
		case eventbus.TypeEventsPruned:
			fmt.Printf("🧹 已裁剪 %v 条过期事件\n", evt.Data["deleted"])
		}
	}
}
