package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yuqie6/ProgressMirror/internal/eventbus"
	"github.com/yuqie6/ProgressMirror/internal/schema"
)

var errDiskFull = errors.New("磁盘已满")

// fakeStateRepo 进程内仓储，可按需让写入失败
type fakeStateRepo struct {
	mu        sync.Mutex
	blobs     map[string]schema.StateBlob
	failSave  bool
	failLoad  bool
	saveCalls int
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{blobs: make(map[string]schema.StateBlob)}
}

func (r *fakeStateRepo) LoadAll(ctx context.Context) ([]schema.StateBlob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failLoad {
		return nil, errDiskFull
	}
	out := make([]schema.StateBlob, 0, len(r.blobs))
	for _, b := range r.blobs {
		b.Payload = append([]byte(nil), b.Payload...)
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out, nil
}

func (r *fakeStateRepo) SaveAll(ctx context.Context, blobs []schema.StateBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.failSave {
		return errDiskFull
	}
	for _, b := range blobs {
		b.Payload = append([]byte(nil), b.Payload...)
		r.blobs[b.Namespace] = b
	}
	return nil
}

func (r *fakeStateRepo) setFailSave(v bool) {
	r.mu.Lock()
	r.failSave = v
	r.mu.Unlock()
}

// corrupt 改写负载但保留旧校验和
func (r *fakeStateRepo) corrupt(namespaces ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ns := range namespaces {
		b, ok := r.blobs[ns]
		if !ok {
			continue
		}
		b.Payload = []byte("{not json")
		r.blobs[ns] = b
	}
}

func (r *fakeStateRepo) has(ns string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blobs[ns]
	return ok
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(evt eventbus.Event) {
	p.mu.Lock()
	p.events = append(p.events, evt.Type)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
