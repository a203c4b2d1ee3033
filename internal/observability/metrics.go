package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 进程内指标，仅用于本地诊断（不对外导出）
var (
	viewsRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progress_views_recorded_total",
		Help: "Total number of recorded view events",
	})

	viewsInvalidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progress_views_invalid_total",
		Help: "Total number of rejected view events",
	})

	achievementsUnlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_achievements_unlocked_total",
		Help: "Total number of unlocked achievements by tier",
	}, []string{"tier"})

	stateSaveFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progress_state_save_failures_total",
		Help: "Total number of failed state commits",
	})

	stateLoadFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "progress_state_load_fallbacks_total",
		Help: "Total number of namespaces replaced by defaults on load",
	}, []string{"namespace"})

	eventsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "progress_events_pruned_total",
		Help: "Total number of view events removed by retention",
	})
)

func RecordViewRecorded() { viewsRecordedTotal.Inc() }

func RecordInvalidView() { viewsInvalidTotal.Inc() }

func RecordAchievementUnlocked(tier string) { achievementsUnlockedTotal.WithLabelValues(tier).Inc() }

func RecordSaveFailure() { stateSaveFailuresTotal.Inc() }

func RecordLoadFallback(namespace string) { stateLoadFallbacksTotal.WithLabelValues(namespace).Inc() }

func RecordEventsPruned(n int) {
	if n > 0 {
		eventsPrunedTotal.Add(float64(n))
	}
}

// Dump 以 "name{labels} value" 形式输出 progress_ 前缀的计数器
func Dump(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("采集指标失败: %w", err)
	}

	lines := make([]string, 0)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "progress_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
