package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultPruneAt 默认每日裁剪时间
const DefaultPruneAt = "03:30"

// Pruner 按保留天数裁剪事件日志
type Pruner interface {
	PruneExpired(ctx context.Context) int
}

// Retention 每日定时裁剪过期浏览事件
type Retention struct {
	scheduler *gocron.Scheduler
	pruner    Pruner
	at        string

	mu     sync.Mutex
	ctx    context.Context
	job    *gocron.Job
	active bool
}

// NewRetention 创建定时器；at 为 loc 时区下的 HH:MM
func NewRetention(pruner Pruner, loc *time.Location, at string) (*Retention, error) {
	if pruner == nil {
		return nil, fmt.Errorf("pruner 不能为空")
	}
	if loc == nil {
		loc = time.Local
	}
	if at == "" {
		at = DefaultPruneAt
	}
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("裁剪时间格式应为 HH:MM: %q", at)
	}

	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Retention{scheduler: s, pruner: pruner, at: at, ctx: context.Background()}, nil
}

// Start 注册每日任务并异步运行，ctx 传给每次裁剪
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil
	}
	if ctx != nil {
		r.ctx = ctx
	}

	job, err := r.scheduler.Every(1).Day().At(r.at).Do(r.run)
	if err != nil {
		return fmt.Errorf("注册裁剪任务失败: %w", err)
	}
	r.job = job
	r.scheduler.StartAsync()
	r.active = true
	slog.Info("事件裁剪任务已启动", "at", r.at, "next_run", job.NextRun())
	return nil
}

// Stop 停止调度，正在执行的裁剪会跑完
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.scheduler.Stop()
	r.active = false
}

// RunNow 立即执行一次裁剪
func (r *Retention) RunNow(ctx context.Context) int {
	return r.pruner.PruneExpired(ctx)
}

// NextRun 下一次计划执行时间，未启动时为零值
func (r *Retention) NextRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.job == nil {
		return time.Time{}
	}
	return r.job.NextRun()
}

func (r *Retention) run() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return
	}
	n := r.pruner.PruneExpired(ctx)
	slog.Debug("定时裁剪完成", "deleted", n)
}
