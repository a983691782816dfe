package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisPendingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPendingStore(rdb, ttl), mr
}

func TestRedisPendingStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 30*time.Minute)

	if err := s.Save(ctx, model.PendingPayment{BookingRef: "book_1", SessionID: "sess-a", GuestName: "Asha"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("cc:pp:ref:book_1"); ttl <= 0 || ttl > 30*time.Minute {
		t.Fatalf("ref ttl = %v", ttl)
	}
	if _, err := s.GetByOrderID(ctx, "order_1"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound before attach, got %v", err)
	}

	if err := s.AttachOrder(ctx, "book_1", "order_1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	for _, key := range []string{"cc:pp:ref:book_1", "cc:pp:order:order_1"} {
		if ttl := mr.TTL(key); ttl <= 0 || ttl > 30*time.Minute {
			t.Errorf("%s ttl = %v", key, ttl)
		}
	}
	if got, _ := mr.Get("cc:pp:order:order_1"); got != "book_1" {
		t.Fatalf("order index = %q", got)
	}

	p, err := s.GetByOrderID(ctx, "order_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.BookingRef != "book_1" || p.SessionID != "sess-a" || p.GuestName != "Asha" || p.OrderID != "order_1" {
		t.Fatalf("unexpected record %+v", p)
	}

	if err := s.Delete(ctx, "book_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("cc:pp:ref:book_1") || mr.Exists("cc:pp:order:order_1") {
		t.Fatal("keys left behind after delete")
	}
	if _, err := s.GetByOrderID(ctx, "order_1"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "book_1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRedisPendingStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	if err := s.Save(ctx, model.PendingPayment{BookingRef: "book_1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachOrder(ctx, "book_1", "order_1"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.GetByOrderID(ctx, "order_1"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound after expiry, got %v", err)
	}
	if mr.Exists("cc:pp:order:order_1") {
		t.Fatal("order index outlived its record")
	}
}

func TestRedisPendingStoreAttachAfterExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	if err := s.Save(ctx, model.PendingPayment{BookingRef: "book_1"}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if err := s.AttachOrder(ctx, "book_1", "order_1"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound, got %v", err)
	}
	if mr.Exists("cc:pp:ref:book_1") || mr.Exists("cc:pp:order:order_1") {
		t.Fatal("attach recreated an expired record")
	}
}

func TestAttachOrderScriptGuards(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)
	keys := []string{s.refKey("book_1"), s.orderKey("order_1")}

	// the ref expired between the read and the write
	res, err := attachOrder.Run(ctx, s.rdb, keys, `{"booking_ref":"book_1"}`, "book_1", `{}`).Int64()
	if err != nil || res != 0 {
		t.Fatalf("missing ref: res=%d err=%v", res, err)
	}
	if mr.Exists(keys[0]) || mr.Exists(keys[1]) {
		t.Fatal("script wrote keys for a missing ref")
	}

	// a ref without a TTL is never extended into a permanent index
	if err := mr.Set(keys[0], "stale"); err != nil {
		t.Fatal(err)
	}
	res, err = attachOrder.Run(ctx, s.rdb, keys, "new", "book_1", "stale").Int64()
	if err != nil || res != 0 {
		t.Fatalf("persistent ref: res=%d err=%v", res, err)
	}
	if mr.Exists(keys[1]) {
		t.Fatal("order index written without a TTL")
	}

	// the record changed since it was read
	mr.SetTTL(keys[0], time.Minute)
	res, err = attachOrder.Run(ctx, s.rdb, keys, "new", "book_1", "older").Int64()
	if err != nil || res != -1 {
		t.Fatalf("changed ref: res=%d err=%v", res, err)
	}
	if got, _ := mr.Get(keys[0]); got != "stale" || mr.Exists(keys[1]) {
		t.Fatal("script overwrote a record it did not read")
	}
}

func TestRedisPendingStoreOrderIndexMismatch(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)

	if err := s.Save(ctx, model.PendingPayment{BookingRef: "book_1", OrderID: "order_1"}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("cc:pp:order:order_1"); ttl <= 0 {
		t.Fatalf("order index saved without ttl: %v", ttl)
	}
	// an index left over from an earlier order must not resolve to this record
	if err := mr.Set("cc:pp:order:order_old", "book_1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetByOrderID(ctx, "order_old"); !errors.Is(err, ErrPendingNotFound) {
		t.Fatalf("expected ErrPendingNotFound, got %v", err)
	}
}

func TestNewRedisPendingStoreDefaultsTTL(t *testing.T) {
	s, mr := newRedisStore(t, 0)
	if err := s.Save(context.Background(), model.PendingPayment{BookingRef: "book_1"}); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("cc:pp:ref:book_1"); ttl <= 0 {
		t.Fatalf("record saved without ttl: %v", ttl)
	}
}
