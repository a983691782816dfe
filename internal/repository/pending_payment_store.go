package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// PendingPaymentStore keeps the pending payment records created at checkout.
// Records are addressed directly by gateway order id; nothing ever scans the
// whole store.
type PendingPaymentStore interface {
	// Save stores a record keyed by its booking reference.
	Save(ctx context.Context, p model.PendingPayment) error
	// AttachOrder records the gateway order id on a saved record and makes
	// it reachable through GetByOrderID.
	AttachOrder(ctx context.Context, bookingRef, orderID string) error
	// GetByOrderID returns ErrPendingNotFound when nothing (unexpired) matches.
	GetByOrderID(ctx context.Context, orderID string) (model.PendingPayment, error)
	// Delete discards the record and its order index.  Missing records are not an error.
	Delete(ctx context.Context, bookingRef string) error
}

// RedisPendingStore stores each record as JSON under "<prefix>:ref:<ref>"
// with an order index "<prefix>:order:<order_id>" pointing at the ref.  Both
// keys share the record's TTL.
type RedisPendingStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisPendingStore constructs a Redis backed store.
func NewRedisPendingStore(rdb *redis.Client, ttl time.Duration) *RedisPendingStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisPendingStore{rdb: rdb, ttl: ttl, prefix: "cc:pp"}
}

func (s *RedisPendingStore) refKey(ref string) string     { return s.prefix + ":ref:" + ref }
func (s *RedisPendingStore) orderKey(order string) string { return s.prefix + ":order:" + order }

func (s *RedisPendingStore) Save(ctx context.Context, p model.PendingPayment) error {
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = time.Now().UTC().Add(s.ttl)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.refKey(p.BookingRef), body, s.ttl)
	if p.OrderID != "" {
		pipe.Set(ctx, s.orderKey(p.OrderID), p.BookingRef, s.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// attachOrder rewrites the ref record only if it is still live and unchanged
// since it was read, then points the order index at it.  Both keys take the
// ref key's remaining PTTL so neither can outlive the record.
// Returns 0 when the ref is gone, -1 when it changed underneath us.
var attachOrder = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl <= 0 then
  return 0
end
if redis.call('GET', KEYS[1]) ~= ARGV[3] then
  return -1
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
redis.call('SET', KEYS[2], ARGV[2], 'PX', ttl)
return ttl
`)

func (s *RedisPendingStore) AttachOrder(ctx context.Context, bookingRef, orderID string) error {
	for attempt := 0; attempt < 3; attempt++ {
		raw, err := s.rdb.Get(ctx, s.refKey(bookingRef)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrPendingNotFound
			}
			return err
		}
		var p model.PendingPayment
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		p.OrderID = orderID
		body, err := json.Marshal(p)
		if err != nil {
			return err
		}
		res, err := attachOrder.Run(ctx, s.rdb,
			[]string{s.refKey(bookingRef), s.orderKey(orderID)},
			body, bookingRef, raw).Int64()
		if err != nil {
			return err
		}
		switch {
		case res == 0:
			return ErrPendingNotFound
		case res > 0:
			return nil
		}
	}
	return ErrConflict
}

func (s *RedisPendingStore) GetByOrderID(ctx context.Context, orderID string) (model.PendingPayment, error) {
	ref, err := s.rdb.Get(ctx, s.orderKey(orderID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PendingPayment{}, ErrPendingNotFound
		}
		return model.PendingPayment{}, err
	}
	p, err := s.getByRef(ctx, ref)
	if err != nil {
		return model.PendingPayment{}, err
	}
	if p.OrderID != orderID {
		return model.PendingPayment{}, ErrPendingNotFound
	}
	return p, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, bookingRef string) error {
	p, err := s.getByRef(ctx, bookingRef)
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return nil
		}
		return err
	}
	keys := []string{s.refKey(bookingRef)}
	if p.OrderID != "" {
		keys = append(keys, s.orderKey(p.OrderID))
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisPendingStore) getByRef(ctx context.Context, ref string) (model.PendingPayment, error) {
	raw, err := s.rdb.Get(ctx, s.refKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PendingPayment{}, ErrPendingNotFound
		}
		return model.PendingPayment{}, err
	}
	var p model.PendingPayment
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.PendingPayment{}, err
	}
	return p, nil
}

// MemoryPendingStore is the in-process fallback used when Redis is not
// reachable.  Records live only as long as the process and are not shared
// between instances.
type MemoryPendingStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	byRef   map[string]model.PendingPayment
	byOrder map[string]string
	now     func() time.Time
}

// NewMemoryPendingStore constructs an empty in-memory store.
func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryPendingStore{
		ttl:     ttl,
		byRef:   make(map[string]model.PendingPayment),
		byOrder: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryPendingStore) Save(_ context.Context, p model.PendingPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	if p.ExpiresAt.IsZero() {
		p.ExpiresAt = s.now().UTC().Add(s.ttl)
	}
	s.byRef[p.BookingRef] = p
	if p.OrderID != "" {
		s.byOrder[p.OrderID] = p.BookingRef
	}
	return nil
}

func (s *MemoryPendingStore) AttachOrder(_ context.Context, bookingRef, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.liveLocked(bookingRef)
	if !ok {
		return ErrPendingNotFound
	}
	p.OrderID = orderID
	s.byRef[bookingRef] = p
	s.byOrder[orderID] = bookingRef
	return nil
}

func (s *MemoryPendingStore) GetByOrderID(_ context.Context, orderID string) (model.PendingPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.byOrder[orderID]
	if !ok {
		return model.PendingPayment{}, ErrPendingNotFound
	}
	p, ok := s.liveLocked(ref)
	if !ok || p.OrderID != orderID {
		return model.PendingPayment{}, ErrPendingNotFound
	}
	return p, nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, bookingRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byRef[bookingRef]; ok {
		delete(s.byOrder, p.OrderID)
		delete(s.byRef, bookingRef)
	}
	return nil
}

// liveLocked returns the record for ref unless it has expired, in which case
// it is removed.  Caller holds s.mu.
func (s *MemoryPendingStore) liveLocked(ref string) (model.PendingPayment, bool) {
	p, ok := s.byRef[ref]
	if !ok {
		return model.PendingPayment{}, false
	}
	if !s.now().Before(p.ExpiresAt) {
		delete(s.byOrder, p.OrderID)
		delete(s.byRef, ref)
		return model.PendingPayment{}, false
	}
	return p, true
}

func (s *MemoryPendingStore) purgeLocked() {
	now := s.now()
	for ref, p := range s.byRef {
		if !now.Before(p.ExpiresAt) {
			delete(s.byOrder, p.OrderID)
			delete(s.byRef, ref)
		}
	}
}
