package app

import (
	"context"
	"errors"
	"testing"
)

func TestIntKey(t *testing.T) {
	n := 42
	if got := intKey(nil); got != "*" {
		t.Errorf("intKey(nil) = %q, want *", got)
	}
	if got := intKey(&n); got != "42" {
		t.Errorf("intKey(42) = %q", got)
	}
}

func TestInvalidateAfter_NilCache(t *testing.T) {
	ctx := context.Background()

	v, err := invalidateAfter(ctx, nil, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("got (%d, %v), want (7, nil)", v, err)
	}

	boom := errors.New("boom")
	if _, err := invalidateAfter(ctx, nil, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Errorf("expected the mutation error to pass through, got %v", err)
	}
}
