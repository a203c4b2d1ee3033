package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/service"
)

func TestParseViewLine(t *testing.T) {
	in, err := parseViewLine(`{"item_id":"a1","title":"标题","category":"blog","minutes":3,"occurred_at":"2026-03-01T09:00:00Z"}`)
	if err != nil {
		t.Fatalf("parseViewLine error: %v", err)
	}
	if in.ItemID != "a1" || in.Title != "标题" || in.CategoryName != "blog" {
		t.Fatalf("in=%+v", in)
	}
	if in.MinutesHint == nil || *in.MinutesHint != 3 {
		t.Fatalf("minutes=%v, want 3", in.MinutesHint)
	}
	if !in.OccurredAt.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurredAt=%v", in.OccurredAt)
	}

	in, err = parseViewLine(`{"item_id":"a1","title":"t"}`)
	if err != nil || in.MinutesHint != nil || !in.OccurredAt.IsZero() {
		t.Fatalf("in=%+v err=%v, want defaults", in, err)
	}
	if _, err := parseViewLine("   "); err != errBlankLine {
		t.Fatalf("err=%v, want blank", err)
	}
	if _, err := parseViewLine("{oops"); err == nil {
		t.Fatalf("want parse error")
	}
}

type fakeRecorder struct {
	got []service.ViewInput
}

func (f *fakeRecorder) RecordView(ctx context.Context, in service.ViewInput) (service.RecordResult, error) {
	f.got = append(f.got, in)
	return service.RecordResult{}, nil
}

func TestIngestSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"item_id":"a","title":"A"}`,
		``,
		`not json`,
		`{"item_id":"b","title":"B"}`,
	}, "\n")
	rec := &fakeRecorder{}
	if err := ingest(context.Background(), strings.NewReader(input), rec); err != nil {
		t.Fatalf("ingest error: %v", err)
	}
	if len(rec.got) != 2 || rec.got[0].ItemID != "a" || rec.got[1].ItemID != "b" {
		t.Fatalf("got=%+v, want a,b", rec.got)
	}
}

func TestProgressBar(t *testing.T) {
	if got := progressBar(50, 10); got != "█████░░░░░" {
		t.Fatalf("bar=%q", got)
	}
	if got := progressBar(150, 4); got != "████" {
		t.Fatalf("bar=%q", got)
	}
}
