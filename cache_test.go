package stockpile

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/unkn0wn-root/stockpile/codec"
)

type profile struct {
	ID    int               `json:"id" msgpack:"id"`
	Name  string            `json:"name" msgpack:"name"`
	Tags  []string          `json:"tags" msgpack:"tags"`
	Attrs map[string]string `json:"attrs" msgpack:"attrs"`
}

func newCache[V any](t *testing.T, sp *Stockpile, c codec.Codec[V]) *Cache[V] {
	t.Helper()
	cc, err := NewCache(sp, CacheOptions[V]{Codec: c})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cc
}

func TestNewCacheUnknownDatabase(t *testing.T) {
	sp, _ := newTestStockpile(t, Options{}, Database{})
	if _, err := NewCache(sp, CacheOptions[int]{Database: "nope"}); !errors.Is(err, ErrDatabaseNotFound) {
		t.Fatalf("expected ErrDatabaseNotFound, got %v", err)
	}
	if _, err := NewCache[int](nil, CacheOptions[int]{}); err == nil {
		t.Fatalf("expected error for nil Stockpile")
	}
}

func TestGetMissIsNotAnError(t *testing.T) {
	sp, _ := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	v, ok, err := cc.Get(context.Background(), "absent")
	if err != nil || ok || v != 0 {
		t.Fatalf("miss: v=%v ok=%v err=%v", v, ok, err)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	in := profile{ID: 7, Name: "ada", Tags: []string{"x", "y"}, Attrs: map[string]string{"k": "v"}}

	for _, compress := range []bool{false, true} {
		for name, c := range map[string]codec.Codec[profile]{
			"json":    codec.JSON[profile]{},
			"msgpack": codec.Msgpack[profile]{},
		} {
			sp, _ := newTestStockpile(t, Options{}, Database{Compression: compress})
			cc := newCache(t, sp, c)
			if err := cc.Set(ctx, "p", in, time.Minute); err != nil {
				t.Fatalf("%s/%v Set: %v", name, compress, err)
			}
			out, ok, err := cc.Get(ctx, "p")
			if err != nil || !ok {
				t.Fatalf("%s/%v Get: ok=%v err=%v", name, compress, ok, err)
			}
			if !reflect.DeepEqual(in, out) {
				t.Fatalf("%s/%v mismatch: %#v vs %#v", name, compress, in, out)
			}
		}
	}
}

func TestSetWritesTTLAndPlainJSON(t *testing.T) {
	ctx := context.Background()
	sp, ms := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	if err := cc.Set(ctx, "answer", 42, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if raw, _ := ms.raw("answer"); string(raw) != "42" {
		t.Fatalf("raw payload = %q", raw)
	}
	ttl, ok, _ := ms.TTL(ctx, "answer")
	if !ok || ttl > time.Minute || ttl <= 50*time.Second {
		t.Fatalf("ttl = %v ok=%v", ttl, ok)
	}

	// ttl 0 => DefaultTTL
	_ = cc.Set(ctx, "dflt", 1, 0)
	if ttl, _, _ := ms.TTL(ctx, "dflt"); ttl <= DefaultTTL-time.Second || ttl > DefaultTTL {
		t.Fatalf("default ttl = %v", ttl)
	}
}

func TestCompressedPayloadIsText(t *testing.T) {
	ctx := context.Background()
	sp, ms := newTestStockpile(t, Options{}, Database{Compression: true})
	cc := newCache[string](t, sp, nil)

	if err := cc.Set(ctx, "k", "hello hello hello hello", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := ms.raw("k")
	if _, err := base64.StdEncoding.DecodeString(string(raw)); err != nil {
		t.Fatalf("payload is not base64: %q (%v)", raw, err)
	}
}

func TestGetCorruptEntry(t *testing.T) {
	sp, ms := newTestStockpile(t, Options{}, Database{Compression: true})
	cc := newCache[int](t, sp, nil)
	ms.put("k", []byte("!!not base64!!"), time.Minute)

	_, ok, err := cc.Get(context.Background(), "k")
	if ok || !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("expected ErrCorruptEntry, ok=%v err=%v", ok, err)
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	sp, ms := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)
	ms.failOn("get", errInjected)
	ms.failOn("set", errInjected)

	var se *StoreError
	if _, _, err := cc.Get(ctx, "k"); !errors.As(err, &se) || se.Op != "get" || !errors.Is(err, errInjected) {
		t.Fatalf("Get: %v", err)
	}
	if err := cc.Set(ctx, "k", 1, time.Minute); !errors.As(err, &se) || se.Op != "set" || se.Database != DefaultDatabase {
		t.Fatalf("Set: %v", err)
	}
}

func TestGetBlockingSeesLateValue(t *testing.T) {
	ctx := context.Background()
	sp, _ := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = cc.Set(ctx, "k", 42, time.Minute)
	}()
	v, err := cc.GetBlocking(ctx, "k", time.Second)
	if err != nil || v != 42 {
		t.Fatalf("GetBlocking: v=%v err=%v", v, err)
	}
}

func TestGetBlockingTimeout(t *testing.T) {
	sp, _ := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	start := time.Now()
	_, err := cc.GetBlocking(context.Background(), "never", 40*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if el := time.Since(start); el < 40*time.Millisecond || el > time.Second {
		t.Fatalf("waited %v", el)
	}
}

func TestGetBlockingHonoursContext(t *testing.T) {
	sp, _ := newTestStockpile(t, Options{}, Database{})
	cc := newCache[int](t, sp, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := cc.GetBlocking(ctx, "never", time.Minute); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCacheRoutesToResolvedDatabase(t *testing.T) {
	ctx := context.Background()
	a, b := newMemStore(), newMemStore()
	reg, err := NewRegistry("a", Database{Name: "a", Store: a}, Database{Name: "b", Store: b})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	sp, _ := New(reg, Options{})

	dflt, _ := NewCache(sp, CacheOptions[int]{})
	other, _ := NewCache(sp, CacheOptions[int]{Database: "b"})
	if dflt.Database() != "a" || other.Database() != "b" {
		t.Fatalf("resolved %q/%q", dflt.Database(), other.Database())
	}

	_ = other.Set(ctx, "k", 1, time.Minute)
	if _, ok := b.raw("k"); !ok {
		t.Fatalf("value should live in b")
	}
	if _, ok := a.raw("k"); ok {
		t.Fatalf("value leaked into a")
	}
	if _, err := other.PerformCached(ctx, "p", time.Minute, func(context.Context) (int, error) { return 2, nil }); err != nil {
		t.Fatalf("PerformCached: %v", err)
	}
	if _, ok := a.raw("p"); ok {
		t.Fatalf("lock or value leaked into a")
	}
}
