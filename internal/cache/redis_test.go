package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew_NilClient(t *testing.T) {
	if c := New(nil, time.Minute, nil); c != nil {
		t.Fatalf("expected nil cache for nil client, got %+v", c)
	}
}

func TestRemember_NilCacheCallsLoad(t *testing.T) {
	ctx := context.Background()
	var c *Cache
	calls := 0
	load := func() ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	for i := 0; i < 2; i++ {
		got, err := Remember(ctx, c, "alerts", load)
		if err != nil {
			t.Fatalf("Remember: %v", err)
		}
		if len(got) != 3 {
			t.Errorf("got %v, want 3 elements", got)
		}
	}
	if calls != 2 {
		t.Errorf("load called %d times, want 2", calls)
	}
}

func TestRemember_NilCachePropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Remember(context.Background(), nil, "k", func() (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestNilCache_NoOps(t *testing.T) {
	var c *Cache
	c.Invalidate(context.Background())
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("nil cache Ping: %v", err)
	}
}

func TestVersionedKey(t *testing.T) {
	if got := versionedKey("7", "alerts:loc=3"); got != "reports:v7:alerts:loc=3" {
		t.Errorf("versionedKey = %q", got)
	}
}
