package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(viewsRecordedTotal)
	RecordViewRecorded()
	if got := testutil.ToFloat64(viewsRecordedTotal); got != before+1 {
		t.Fatalf("views=%v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(achievementsUnlockedTotal.WithLabelValues("gold"))
	RecordAchievementUnlocked("gold")
	if got := testutil.ToFloat64(achievementsUnlockedTotal.WithLabelValues("gold")); got != before+1 {
		t.Fatalf("gold unlocks=%v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(eventsPrunedTotal)
	RecordEventsPruned(0)
	RecordEventsPruned(3)
	if got := testutil.ToFloat64(eventsPrunedTotal); got != before+3 {
		t.Fatalf("pruned=%v, want %v", got, before+3)
	}
}

func TestDumpListsProgressCounters(t *testing.T) {
	RecordSaveFailure()
	RecordLoadFallback("progress.items")

	var buf bytes.Buffer
	if err := Dump(&buf); err != nil {
		t.Fatalf("Dump error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "progress_state_save_failures_total ") {
		t.Fatalf("missing save failures line:\n%s", out)
	}
	if !strings.Contains(out, `progress_state_load_fallbacks_total{namespace="progress.items"}`) {
		t.Fatalf("missing labelled fallback line:\n%s", out)
	}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if !strings.HasPrefix(line, "progress_") {
			t.Fatalf("unexpected line %q", line)
		}
	}
}
