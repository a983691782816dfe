package handler

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/repository"
	"github.com/iliyamo/cocochutney-reservations/internal/service"
	"github.com/iliyamo/cocochutney-reservations/web"
)

// newTestEcho returns an Echo instance with the real page templates and a
// silent logger.
func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Logger.SetOutput(io.Discard)
	r, err := NewTemplateRenderer(web.Templates)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	e.Renderer = r
	return e
}

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

type mockIntake struct {
	IntakeFunc func(ctx context.Context, f service.ReservationForm) (model.Booking, error)
}

func (m *mockIntake) Intake(ctx context.Context, f service.ReservationForm) (model.Booking, error) {
	return m.IntakeFunc(ctx, f)
}

type mockFlow struct {
	InitiateFunc        func(ctx context.Context, b model.Booking, sessionID string) (service.CheckoutOptions, error)
	ConfirmCallbackFunc func(ctx context.Context, sessionID string, req service.CallbackRequest) (service.Outcome, error)
	HandleWebhookFunc   func(ctx context.Context, body []byte, signature string) (service.Outcome, error)
}

func (m *mockFlow) Initiate(ctx context.Context, b model.Booking, sessionID string) (service.CheckoutOptions, error) {
	return m.InitiateFunc(ctx, b, sessionID)
}

func (m *mockFlow) ConfirmCallback(ctx context.Context, sessionID string, req service.CallbackRequest) (service.Outcome, error) {
	return m.ConfirmCallbackFunc(ctx, sessionID, req)
}

func (m *mockFlow) HandleWebhook(ctx context.Context, body []byte, signature string) (service.Outcome, error) {
	return m.HandleWebhookFunc(ctx, body, signature)
}

// memBookings is an in-memory booking store honouring the Pending-only
// transition rule of the MySQL repository.
type memBookings struct {
	mu    sync.Mutex
	byRef map[string]*model.Booking
}

func newMemBookings() *memBookings { return &memBookings{byRef: map[string]*model.Booking{}} }

func (m *memBookings) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	for _, b := range m.byRef {
		if orderID != "" && b.GatewayOrderID == orderID {
			return *b, nil
		}
	}
	return model.Booking{}, repository.ErrBookingNotFound
}

func (m *memBookings) ConfirmIfPending(_ context.Context, out model.PaymentOutcome) (int64, error) {
	return m.transition(out, model.StatusConfirmed, model.FeePaid), nil
}

func (m *memBookings) FailIfPending(_ context.Context, out model.PaymentOutcome) (int64, error) {
	return m.transition(out, model.StatusPaymentFailed, model.FeeFailed), nil
}

func (m *memBookings) transition(out model.PaymentOutcome, status, fee string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byRef {
		if b.GatewayOrderID == out.OrderID && b.BookingStatus == model.StatusPending {
			b.GatewayPaymentID = out.PaymentID
			b.GatewayStatus = out.GatewayStatus
			b.GatewayResponse = out.RawResponse
			b.BookingStatus = status
			b.BookingFeeStatus = fee
			return 1
		}
	}
	return 0
}

func (m *memBookings) ListByDate(_ context.Context, date time.Time) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Booking
	for _, b := range m.byRef {
		if b.ReservationDate.Equal(date) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBookings) only(t *testing.T) model.Booking {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.byRef) != 1 {
		t.Fatalf("expected exactly one booking, have %d", len(m.byRef))
	}
	for _, b := range m.byRef {
		return *b
	}
	return model.Booking{}
}

// memUsers is a UserStore keyed by lower-case email.
type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]model.User
}

func newMemUsers() *memUsers { return &memUsers{byEmail: map[string]model.User{}} }

func (m *memUsers) Create(_ context.Context, name, email, hash, role string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	id := uint64(len(m.byEmail) + 1)
	m.byEmail[email] = model.User{ID: id, Name: name, Email: email, PasswordHash: hash, Role: role}
	return id, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

type memAddresses struct {
	items []model.Address
}

func (m *memAddresses) Create(_ context.Context, a *model.Address) error {
	a.ID = uint64(len(m.items) + 1)
	m.items = append(m.items, *a)
	return nil
}

func (m *memAddresses) ListByUser(_ context.Context, userID uint64) ([]model.Address, error) {
	out := []model.Address{}
	for _, a := range m.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memContacts struct {
	items []model.ContactMessage
	err   error
}

func (m *memContacts) Create(_ context.Context, msg *model.ContactMessage) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, *msg)
	return nil
}
