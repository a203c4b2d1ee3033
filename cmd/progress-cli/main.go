package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/yuqie6/ProgressMirror/internal/bootstrap"
	"github.com/yuqie6/ProgressMirror/internal/observability"
	"github.com/yuqie6/ProgressMirror/internal/pkg/buildinfo"
	"github.com/yuqie6/ProgressMirror/internal/pkg/config"
	"github.com/yuqie6/ProgressMirror/internal/schema"
	"github.com/yuqie6/ProgressMirror/internal/service"
)

var (
	cfgFile string
	asJSON  bool
	core    *bootstrap.Core
)

// 不需要打开状态仓储的命令
const skipCoreAnnotation = "skip-core"

func main() {
	rootCmd := &cobra.Command{
		Use:     "progress",
		Short:   "Progress - 本地浏览进度与成就引擎",
		Long:    `Progress 在本地记录条目浏览，统计连续活跃天数并解锁成就，数据不离开本机。`,
		Version: fmt.Sprintf("%s (%s)", buildinfo.Version, buildinfo.Commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Annotations[skipCoreAnnotation] == "true" {
				return
			}
			var err error
			core, err = bootstrap.NewCore(cmd.Context(), cfgFile)
			if err != nil {
				slog.Error("初始化失败", "error", err)
				os.Exit(1)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeCore()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "以 JSON 输出")

	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(achievementsCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(weeklyCmd())
	rootCmd.AddCommand(clearCmd())
	rootCmd.AddCommand(pruneCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(initConfigCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func closeCore() {
	if core == nil {
		return
	}
	if err := core.Close(); err != nil {
		slog.Warn("关闭时保存状态失败", "error", err)
	}
	core = nil
}

// fail 输出错误并退出，退出前仍会尝试落盘
func fail(format string, args ...any) {
	fmt.Printf("❌ "+format+"\n", args...)
	closeCore()
	os.Exit(1)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("序列化输出失败: %v", err)
	}
	fmt.Println(string(b))
}

// recordCmd 记录一次浏览
func recordCmd() *cobra.Command {
	var itemID, title, category, at string
	var minutes int

	cmd := &cobra.Command{
		Use:   "record",
		Short: "记录一次条目浏览",
		Run: func(cmd *cobra.Command, args []string) {
			in := service.ViewInput{ItemID: itemID, Title: title, CategoryName: category}
			if minutes >= 0 {
				m := minutes
				in.MinutesHint = &m
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					fail("时间格式应为 RFC3339: %v", err)
				}
				in.OccurredAt = t
			}

			res, err := core.Engine.RecordView(cmd.Context(), in)
			if err != nil {
				fail("记录失败: %v", err)
			}
			if asJSON {
				printJSON(res)
				return
			}

			fmt.Printf("✅ 已记录: %s（第 %d 次浏览）\n", res.Item.Title, res.Item.ViewCount)
			fmt.Printf("   %s 活跃 %d 分钟, 浏览 %d 次\n", res.Day.Day, res.Day.MinutesActive, res.Day.ItemsViewedCount)
			printUnlocks(res.NewlyUnlocked)
			if core.Engine.Dirty() {
				fmt.Println("⚠️  状态暂未保存，将在下次写入时重试")
			}
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "条目 ID")
	cmd.Flags().StringVar(&title, "title", "", "条目标题")
	cmd.Flags().StringVar(&category, "category", "", "分类名")
	cmd.Flags().IntVar(&minutes, "minutes", -1, "本次计入分钟数（默认取配置）")
	cmd.Flags().StringVar(&at, "at", "", "浏览时间 (RFC3339)，默认当前时间")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func printUnlocks(list []schema.Achievement) {
	for _, a := range list {
		fmt.Printf("🏆 解锁成就 [%s] %s - %s\n", tierLabel(a.Tier), a.Name, a.Description)
	}
}

func tierLabel(t schema.Tier) string {
	switch t {
	case schema.TierGold:
		return "🥇 金"
	case schema.TierSilver:
		return "🥈 银"
	default:
		return "🥉 铜"
	}
}

// statsCmd 统计命令
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "查看统计信息",
		Run: func(cmd *cobra.Command, args []string) {
			s := core.Engine.Statistics()
			if asJSON {
				printJSON(s)
				return
			}

			fmt.Println("📊 浏览统计")
			fmt.Println("═══════════════════════════════════════")
			fmt.Printf("  • 浏览条目: %d 个\n", s.UniqueItemsViewed)
			fmt.Printf("  • 涉猎分类: %d 个\n", s.CategoriesCount)
			fmt.Printf("  • 总浏览次数: %d 次\n", s.TotalViews)
			fmt.Printf("  • 活跃天数: %d 天\n", s.ActiveDays)
			fmt.Printf("  • 累计时长: %dh %dm\n", s.TotalTimeSpentMinutes/60, s.TotalTimeSpentMinutes%60)
			fmt.Printf("\n🔥 连续活跃\n")
			fmt.Printf("  • 当前: %d 天\n", s.CurrentStreak)
			fmt.Printf("  • 最长: %d 天\n", s.LongestStreak)
			fmt.Println("═══════════════════════════════════════")
		},
	}
}

// achievementsCmd 成就列表
func achievementsCmd() *cobra.Command {
	var unlockedOnly bool

	cmd := &cobra.Command{
		Use:   "achievements",
		Short: "查看成就",
		Run: func(cmd *cobra.Command, args []string) {
			list := core.Engine.Achievements()
			if unlockedOnly {
				kept := list[:0]
				for _, a := range list {
					if a.Unlocked() {
						kept = append(kept, a)
					}
				}
				list = kept
			}
			if asJSON {
				printJSON(list)
				return
			}

			if len(list) == 0 {
				fmt.Println("📚 还没有解锁任何成就")
				return
			}
			fmt.Println("🏆 成就")
			fmt.Println("═══════════════════════════════════════")
			for _, a := range list {
				mark := "🔒"
				if a.Unlocked() {
					mark = "✅"
				}
				fmt.Printf("%s [%s] %s  %s %d/%d\n", mark, tierLabel(a.Tier), a.Name, progressBar(a.Percent(), 10), a.Progress, a.Requirement)
				fmt.Printf("     %s", a.Description)
				if a.UnlockedAt != nil {
					fmt.Printf("（%s 解锁）", a.UnlockedAt.Format("2006-01-02"))
				}
				fmt.Println()
			}
		},
	}

	cmd.Flags().BoolVar(&unlockedOnly, "unlocked", false, "只显示已解锁")
	return cmd
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// historyCmd 浏览历史
func historyCmd() *cobra.Command {
	var limit int
	var events bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "查看浏览历史（最近的在前）",
		Run: func(cmd *cobra.Command, args []string) {
			if events {
				list := core.Engine.RecentEvents(limit)
				if asJSON {
					printJSON(list)
					return
				}
				for _, e := range list {
					fmt.Printf("  • %s  %s  %s (%d 分钟)\n", e.OccurredAt.Format("2006-01-02 15:04"), e.ItemID, e.Title, e.Minutes)
				}
				return
			}

			list := core.Engine.ItemHistory()
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			if asJSON {
				printJSON(list)
				return
			}
			if len(list) == 0 {
				fmt.Println("📚 还没有浏览记录")
				return
			}
			fmt.Println("🕘 浏览历史")
			fmt.Println("═══════════════════════════════════════")
			for _, p := range list {
				category := p.CategoryName
				if category == "" {
					category = "未分类"
				}
				fmt.Printf("  • %s [%s] 浏览 %d 次，最近 %s\n", p.Title, category, p.ViewCount, p.LastViewedAt.Format("2006-01-02 15:04"))
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "最大条数（0 为全部）")
	cmd.Flags().BoolVar(&events, "events", false, "显示原始浏览事件")
	return cmd
}

// weeklyCmd 周活跃
func weeklyCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "查看最近 7 天活跃度",
		Run: func(cmd *cobra.Command, args []string) {
			var ref time.Time
			if date != "" {
				loc, _ := core.Cfg.Location()
				t, err := service.ParseDayKey(date, loc)
				if err != nil {
					fail("日期格式应为 YYYY-MM-DD: %v", err)
				}
				ref = t.Add(12 * time.Hour)
			}

			week := core.Engine.WeeklyActivity(ref)
			if asJSON {
				printJSON(week)
				return
			}

			maxMinutes := 0
			for _, d := range week {
				if d.MinutesActive > maxMinutes {
					maxMinutes = d.MinutesActive
				}
			}
			fmt.Printf("📅 %s ~ %s\n", week[0].Day, week[len(week)-1].Day)
			fmt.Println("═══════════════════════════════════════")
			for _, d := range week {
				percent := 0.0
				if maxMinutes > 0 {
					percent = float64(d.MinutesActive) / float64(maxMinutes) * 100
				}
				fmt.Printf("  %s %s %3d 分钟 %2d 次\n", d.Day, progressBar(percent, 20), d.MinutesActive, d.ItemsViewedCount)
			}
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "截止日期 (YYYY-MM-DD)，默认今天")
	return cmd
}

// clearCmd 清空历史
func clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "清空浏览历史",
		Run: func(cmd *cobra.Command, args []string) {
			if !yes {
				fmt.Println("⚠️  将清空全部浏览历史与连续记录")
				fmt.Println("   确认请加 --yes")
				return
			}
			core.Engine.ClearHistory(cmd.Context())
			if core.Cfg.Achievements.ClearPolicy == config.ClearPolicyReset {
				fmt.Println("🧹 已清空浏览历史，成就已重置")
			} else {
				fmt.Println("🧹 已清空浏览历史，已解锁成就保留")
			}
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "确认清空")
	return cmd
}

// pruneCmd 裁剪事件日志
func pruneCmd() *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "裁剪过期浏览事件（统计不受影响）",
		Run: func(cmd *cobra.Command, args []string) {
			var n int
			if before != "" {
				loc, _ := core.Cfg.Location()
				t, err := service.ParseDayKey(before, loc)
				if err != nil {
					fail("日期格式应为 YYYY-MM-DD: %v", err)
				}
				n = core.Engine.PruneEvents(cmd.Context(), t)
			} else {
				if core.Cfg.Tracking.RetentionDays <= 0 {
					fmt.Println("ℹ️  未配置保留天数，跳过裁剪")
					return
				}
				n = core.Engine.PruneExpired(cmd.Context())
			}
			fmt.Printf("✅ 已裁剪 %d 条浏览事件\n", n)
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "删除该日期之前的事件 (YYYY-MM-DD)，默认按保留天数")
	return cmd
}

// metricsCmd 输出进程内指标
func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "输出本进程的诊断指标",
		Run: func(cmd *cobra.Command, args []string) {
			if err := observability.Dump(os.Stdout); err != nil {
				fail("输出指标失败: %v", err)
			}
		},
	}
}

// initConfigCmd 生成默认配置文件
func initConfigCmd() *cobra.Command {
	var path string
	var force bool

	cmd := &cobra.Command{
		Use:         "init-config",
		Short:       "生成默认配置文件",
		Annotations: map[string]string{skipCoreAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			target := path
			if target == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					fail("%v", err)
				}
				target = p
			}
			if _, err := os.Stat(target); err == nil && !force {
				fmt.Printf("⚠️  配置文件已存在: %s（覆盖请加 --force）\n", target)
				return
			}
			if err := config.WriteFile(target, config.Default()); err != nil {
				fail("%v", err)
			}
			fmt.Printf("✅ 已写入配置: %s\n", target)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "输出路径，默认可执行文件目录下 config/config.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有文件")
	return cmd
}
