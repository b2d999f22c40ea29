package stockpile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unkn0wn-root/stockpile/internal/util"
)

func TestExpireCached(t *testing.T) {
	ctx := context.Background()
	sp, ms := newTestStockpile(t, Options{}, Database{})

	existed, err := sp.ExpireCached(ctx, "", "missing")
	if err != nil || existed {
		t.Fatalf("missing key: existed=%v err=%v", existed, err)
	}
	if ok, _ := ms.Exists(ctx, "missing"); ok {
		t.Fatalf("missing key should stay absent")
	}

	ms.put("k", []byte("42"), time.Minute)
	ms.put(util.LockKey("k"), []byte("1"), time.Minute)
	existed, err = sp.ExpireCached(ctx, "", "k")
	if err != nil || !existed {
		t.Fatalf("present key: existed=%v err=%v", existed, err)
	}
	if ok, _ := ms.Exists(ctx, "k"); ok {
		t.Fatalf("key should be gone immediately")
	}
	if ok, _ := ms.Exists(ctx, util.LockKey("k")); !ok {
		t.Fatalf("expire must not touch the lock")
	}
}

func TestRenewCached(t *testing.T) {
	ctx := context.Background()
	sp, ms := newTestStockpile(t, Options{}, Database{})

	if existed, err := sp.RenewCached(ctx, "", "missing", time.Minute); err != nil || existed {
		t.Fatalf("missing key: existed=%v err=%v", existed, err)
	}

	ms.put("k", []byte("42"), 5*time.Second)
	existed, err := sp.RenewCached(ctx, "", "k", time.Hour)
	if err != nil || !existed {
		t.Fatalf("present key: existed=%v err=%v", existed, err)
	}
	ttl, _, _ := ms.TTL(ctx, "k")
	if ttl > time.Hour || ttl <= time.Hour-5*time.Second {
		t.Fatalf("ttl = %v", ttl)
	}
	if raw, _ := ms.raw("k"); string(raw) != "42" {
		t.Fatalf("value changed: %q", raw)
	}

	// ttl 0 => DefaultTTL
	_, _ = sp.RenewCached(ctx, "", "k", 0)
	if ttl, _, _ := ms.TTL(ctx, "k"); ttl > DefaultTTL || ttl <= DefaultTTL-5*time.Second {
		t.Fatalf("default ttl = %v", ttl)
	}
}

func TestInvalidationRoutesByDatabase(t *testing.T) {
	ctx := context.Background()
	a, b := newMemStore(), newMemStore()
	reg, _ := NewRegistry("a", Database{Name: "a", Store: a}, Database{Name: "b", Store: b})
	sp, _ := New(reg, Options{})

	b.put("k", []byte("1"), time.Minute)
	if existed, _ := sp.ExpireCached(ctx, "a", "k"); existed {
		t.Fatalf("key lives in b, not a")
	}
	if existed, _ := sp.ExpireCached(ctx, "b", "k"); !existed {
		t.Fatalf("expected key in b")
	}
	if _, err := sp.ExpireCached(ctx, "c", "k"); !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
	}
	if _, err := sp.RenewCached(ctx, "c", "k", 0); !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
	}
}

func TestInvalidationStoreError(t *testing.T) {
	sp, ms := newTestStockpile(t, Options{}, Database{})
	ms.failOn("expire", errInjected)

	var se *StoreError
	if _, err := sp.ExpireCached(context.Background(), "", "k"); !errors.As(err, &se) || se.Op != "expire" {
		t.Fatalf("expected expire StoreError, got %v", err)
	}
	if _, err := sp.RenewCached(context.Background(), "", "k", 0); !errors.As(err, &se) || se.Op != "renew" {
		t.Fatalf("expected renew StoreError, got %v", err)
	}
}

func TestCacheInvalidationHelpers(t *testing.T) {
	ctx := context.Background()
	sp, _ := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	_ = cc.Set(ctx, "k", 1, time.Second)
	if ok, err := cc.Renew(ctx, "k", time.Minute); err != nil || !ok {
		t.Fatalf("Renew: ok=%v err=%v", ok, err)
	}
	if ok, err := cc.Expire(ctx, "k"); err != nil || !ok {
		t.Fatalf("Expire: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := cc.Get(ctx, "k"); ok {
		t.Fatalf("key should be gone")
	}
}
