package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/polkiloo/fulfillrelay/internal/config"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
)

func newTestCache(source AllowListSource, clock *time.Time) *AllowListCache {
	cache := NewAllowListCache(&config.Config{Approval: config.ApprovalConfig{AllowedUsersTTL: 5 * time.Minute}}, source, testhelpers.DiscardLogger())
	cache.now = func() time.Time { return *clock }
	return cache
}

func TestAllowListCacheServesFreshList(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := &staticAllowList{users: allowed}
	cache := newTestCache(source, &clock)

	if got := cache.Users(context.Background()); len(got) != len(allowed) {
		t.Fatalf("unexpected users %+v", got)
	}
	clock = clock.Add(4 * time.Minute)
	cache.Users(context.Background())
	if source.calls != 1 {
		t.Fatalf("expected cached list within ttl, got %d fetches", source.calls)
	}

	clock = clock.Add(2 * time.Minute)
	cache.Users(context.Background())
	if source.calls != 2 {
		t.Fatalf("expected refresh after ttl, got %d fetches", source.calls)
	}
}

func TestAllowListCacheServesStaleListOnError(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	source := &staticAllowList{users: allowed}
	cache := newTestCache(source, &clock)
	cache.Users(context.Background())

	source.users, source.err = nil, errors.New("404")
	clock = clock.Add(time.Hour)

	if got := cache.Users(context.Background()); len(got) != len(allowed) {
		t.Fatalf("expected stale list, got %+v", got)
	}
}

func TestAllowListCacheFailsClosed(t *testing.T) {
	clock := time.Now()
	cache := newTestCache(&staticAllowList{err: errors.New("unreachable")}, &clock)

	got := cache.Users(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %#v", got)
	}
}

type blockingAllowList struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingAllowList) Fetch(context.Context) ([]model.AllowedUser, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return allowed, nil
}

func TestAllowListCacheCollapsesConcurrentRefreshes(t *testing.T) {
	source := &blockingAllowList{release: make(chan struct{})}
	cache := NewAllowListCache(&config.Config{Approval: config.ApprovalConfig{AllowedUsersTTL: time.Minute}}, source, testhelpers.DiscardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := cache.Users(context.Background()); len(got) != len(allowed) {
				t.Errorf("unexpected users %+v", got)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	if source.calls != 1 {
		t.Fatalf("expected a single fetch, got %d", source.calls)
	}
}
