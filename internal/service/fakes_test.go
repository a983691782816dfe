package service

import (
	"context"
	"io"
	"sync"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cocochutney-reservations/internal/gateway"
	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/queue"
	"github.com/iliyamo/cocochutney-reservations/internal/repository"
)

// memBookings is an in-memory booking store with the same conditional
// update rules as the MySQL repository.
type memBookings struct {
	mu        sync.Mutex
	byRef     map[string]*model.Booking
	writes    int
	createErr error
	updateErr error
}

func newMemBookings() *memBookings {
	return &memBookings{byRef: make(map[string]*model.Booking)}
}

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byRef[b.BookingRef]; ok {
		return repository.ErrConflict
	}
	m.writes++
	b.ID = uint64(len(m.byRef) + 1)
	b.BookingStatus = model.StatusPending
	b.BookingFeeStatus = model.FeePending
	cp := *b
	m.byRef[b.BookingRef] = &cp
	return nil
}

func (m *memBookings) AttachOrder(_ context.Context, ref, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byRef[ref]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if b.GatewayOrderID != "" && b.GatewayOrderID != orderID {
		return repository.ErrConflict
	}
	m.writes++
	b.GatewayOrderID = orderID
	return nil
}

func (m *memBookings) GetByRef(_ context.Context, ref string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.byRef[ref]; ok {
		return *b, nil
	}
	return model.Booking{}, repository.ErrBookingNotFound
}

func (m *memBookings) GetByOrderID(_ context.Context, orderID string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.findLocked(orderID); b != nil {
		return *b, nil
	}
	return model.Booking{}, repository.ErrBookingNotFound
}

func (m *memBookings) ConfirmIfPending(_ context.Context, out model.PaymentOutcome) (int64, error) {
	return m.transition(out, model.StatusConfirmed, model.FeePaid)
}

func (m *memBookings) FailIfPending(_ context.Context, out model.PaymentOutcome) (int64, error) {
	return m.transition(out, model.StatusPaymentFailed, model.FeeFailed)
}

func (m *memBookings) transition(out model.PaymentOutcome, status, fee string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	b := m.findLocked(out.OrderID)
	if b == nil || (b.BookingStatus != "" && b.BookingStatus != model.StatusPending) {
		return 0, nil
	}
	m.writes++
	b.GatewayPaymentID = out.PaymentID
	b.GatewayStatus = out.GatewayStatus
	b.GatewayResponse = out.RawResponse
	b.BookingStatus = status
	b.BookingFeeStatus = fee
	return 1, nil
}

func (m *memBookings) findLocked(orderID string) *model.Booking {
	if orderID == "" {
		return nil
	}
	for _, b := range m.byRef {
		if b.GatewayOrderID == orderID {
			return b
		}
	}
	return nil
}

func (m *memBookings) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// fakeOrders is an OrderCreator driven by CreateOrderFunc.
type fakeOrders struct {
	CreateOrderFunc func(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error)
	calls           []gateway.OrderRequest
}

func (f *fakeOrders) CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error) {
	f.calls = append(f.calls, req)
	if f.CreateOrderFunc != nil {
		return f.CreateOrderFunc(ctx, req)
	}
	return gateway.Order{ID: "order_" + req.Receipt, Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
	block  chan struct{} // when set, publishes wait for it to close
}

func (f *fakePublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// brokenPending fails every order lookup.
type brokenPending struct {
	repository.PendingPaymentStore
	err error
}

func (b brokenPending) GetByOrderID(context.Context, string) (model.PendingPayment, error) {
	return model.PendingPayment{}, b.err
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}
