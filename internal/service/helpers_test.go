package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
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

// flakyStore fails operations on the keys listed in failOn.
type flakyStore struct {
	kv.Store
	mu     sync.Mutex
	failOn map[string]bool
}

var errBackend = errors.New("backend unavailable")

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: kv.NewMemoryStore(), failOn: map[string]bool{}}
}

func (f *flakyStore) fail(key string, on bool) {
	f.mu.Lock()
	f.failOn[key] = on
	f.mu.Unlock()
}

func (f *flakyStore) check(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[key] {
		return errBackend
	}
	return nil
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, error) {
	if err := f.check(key); err != nil {
		return "", err
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if err := f.check(key); err != nil {
		return err
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyStore) Update(ctx context.Context, key string, fn kv.UpdateFunc) error {
	if err := f.check(key); err != nil {
		return err
	}
	return f.Store.Update(ctx, key, fn)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) subscribe(d events.Dispatcher, types ...events.EventType) {
	for _, typ := range types {
		d.Subscribe(typ, func(_ context.Context, e events.Event) error {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
			return nil
		})
	}
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func testOptions(t *testing.T, clock *fakeClock) WorkspaceOptions {
	t.Helper()
	return WorkspaceOptions{Clock: clock.Now}
}
