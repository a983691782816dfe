package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/gateway"
	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/queue"
	"github.com/iliyamo/cocochutney-reservations/internal/repository"
)

// BookingStore is the booking persistence used by the payment flow.  The
// *IfPending methods must only change rows that are still Pending and
// report how many rows they changed.
type BookingStore interface {
	AttachOrder(ctx context.Context, bookingRef, orderID string) error
	GetByOrderID(ctx context.Context, orderID string) (model.Booking, error)
	ConfirmIfPending(ctx context.Context, out model.PaymentOutcome) (int64, error)
	FailIfPending(ctx context.Context, out model.PaymentOutcome) (int64, error)
}

// OrderCreator creates gateway orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (gateway.Order, error)
}

// EventPublisher publishes booking events.  Failures never affect the
// confirmation result.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// PaymentConfig carries the gateway credentials and the booking fee.
type PaymentConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	FeeMinor      int64
	Currency      string
	BusinessName  string
}

// Outcome describes what a confirmation attempt did.
type Outcome string

const (
	OutcomeConfirmed      Outcome = "confirmed"       // row moved Pending -> Confirmed
	OutcomeDuplicate      Outcome = "duplicate"       // row was already Confirmed
	OutcomeFailed         Outcome = "failed"          // row moved Pending -> Payment Failed
	OutcomeUnchanged      Outcome = "unchanged"       // terminal row, update skipped
	OutcomeNotFound       Outcome = "not_found"       // no booking for the order
	OutcomeAmountMismatch Outcome = "amount_mismatch" // captured amount differs from the fee
	OutcomeIgnored        Outcome = "ignored"         // event type not handled
	OutcomeError          Outcome = "error"           // store failure, logged
)

// PaymentService runs payment initiation and both confirmation paths.
type PaymentService struct {
	cfg      PaymentConfig
	bookings BookingStore
	pending  repository.PendingPaymentStore
	orders   OrderCreator
	events   EventPublisher
	log      echo.Logger
	now      func() time.Time

	publishing sync.WaitGroup // in-flight event publishes
}

// NewPaymentService wires the payment flow.  events may be nil, in which
// case no events are published.
func NewPaymentService(cfg PaymentConfig, bookings BookingStore, pending repository.PendingPaymentStore, orders OrderCreator, events EventPublisher, logger echo.Logger) *PaymentService {
	if bookings == nil || pending == nil || orders == nil || logger == nil {
		panic("nil dependency passed to NewPaymentService")
	}
	return &PaymentService{
		cfg:      cfg,
		bookings: bookings,
		pending:  pending,
		orders:   orders,
		events:   events,
		log:      logger,
		now:      time.Now,
	}
}

// CheckoutOptions is handed to the gateway's checkout widget.  It contains
// the public key id only.
type CheckoutOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	OrderID     string            `json:"order_id"`
	Prefill     CheckoutPrefill   `json:"prefill"`
	Notes       map[string]string `json:"notes"`
	Theme       CheckoutTheme     `json:"theme"`
}

type CheckoutPrefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type CheckoutTheme struct {
	Color string `json:"color"`
}

// Initiate creates a gateway order for the booking fee of b and returns the
// checkout options for the browser.  The pending payment record is owned by
// sessionID.  The order id is recorded both on the pending record and on
// the booking row so that either confirmation path can find it.
func (s *PaymentService) Initiate(ctx context.Context, b model.Booking, sessionID string) (CheckoutOptions, error) {
	p := model.PendingPayment{
		BookingRef:  b.BookingRef,
		SessionID:   sessionID,
		GuestName:   b.GuestName,
		GuestEmail:  b.GuestEmail,
		GuestPhone:  b.GuestPhone,
		AmountMinor: s.cfg.FeeMinor,
		Currency:    s.cfg.Currency,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.pending.Save(ctx, p); err != nil {
		return CheckoutOptions{}, fmt.Errorf("%w: save pending payment: %v", ErrPersistence, err)
	}

	order, err := s.orders.CreateOrder(ctx, gateway.OrderRequest{
		Receipt:     b.BookingRef,
		AmountMinor: s.cfg.FeeMinor,
		Currency:    s.cfg.Currency,
		Notes:       map[string]string{"internal_booking_id": b.BookingRef},
	})
	if err != nil || order.ID == "" {
		s.log.Errorf("payment: order creation failed for %s: %v", b.BookingRef, err)
		s.discard(ctx, b.BookingRef)
		return CheckoutOptions{}, ErrGatewayUnavailable
	}

	if err := s.pending.AttachOrder(ctx, b.BookingRef, order.ID); err != nil {
		s.discard(ctx, b.BookingRef)
		return CheckoutOptions{}, fmt.Errorf("%w: attach order to pending payment: %v", ErrPersistence, err)
	}
	if err := s.bookings.AttachOrder(ctx, b.BookingRef, order.ID); err != nil {
		s.discard(ctx, b.BookingRef)
		return CheckoutOptions{}, fmt.Errorf("%w: attach order to booking: %v", ErrPersistence, err)
	}
	s.log.Infof("payment: order %s created for booking %s", order.ID, b.BookingRef)

	return CheckoutOptions{
		Key:         s.cfg.KeyID,
		Amount:      s.cfg.FeeMinor,
		Currency:    s.cfg.Currency,
		Name:        s.cfg.BusinessName + " Booking Fee",
		Description: "Reservation Booking Fee",
		OrderID:     order.ID,
		Prefill:     CheckoutPrefill{Name: b.GuestName, Email: b.GuestEmail, Contact: b.GuestPhone},
		Notes:       map[string]string{"internal_booking_id": b.BookingRef},
		Theme:       CheckoutTheme{Color: "#ff9900"},
	}, nil
}

// CallbackRequest is what checkout posts back after a successful payment.
type CallbackRequest struct {
	OrderID   string `json:"razorpay_order_id" form:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature" form:"razorpay_signature"`
}

// ConfirmCallback handles the browser callback.  The signature is checked
// before anything is read or written; the pending record must belong to
// sessionID.  A booking that is already Confirmed yields OutcomeDuplicate.
func (s *PaymentService) ConfirmCallback(ctx context.Context, sessionID string, req CallbackRequest) (Outcome, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return "", ErrMissingParameters
	}
	if !gateway.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature, s.cfg.KeySecret) {
		s.log.Warnf("payment: callback signature mismatch for order %s", req.OrderID)
		return "", ErrSignatureMismatch
	}

	p, err := s.pending.GetByOrderID(ctx, req.OrderID)
	switch {
	case errors.Is(err, repository.ErrPendingNotFound):
		// The record is discarded once the booking is terminal, so a replayed
		// callback for a confirmed order is still reported as a duplicate.
		if b, err := s.bookings.GetByOrderID(ctx, req.OrderID); err == nil && b.BookingStatus == model.StatusConfirmed {
			return OutcomeDuplicate, nil
		}
		s.log.Warnf("payment: no pending payment for order %s", req.OrderID)
		return OutcomeNotFound, ErrBookingDataNotFound
	case err != nil:
		s.log.Errorf("payment: pending lookup for order %s: %v", req.OrderID, err)
		return OutcomeError, fmt.Errorf("%w: pending lookup: %v", ErrPersistence, err)
	case p.SessionID != sessionID:
		s.log.Warnf("payment: order %s belongs to another session", req.OrderID)
		return OutcomeNotFound, ErrBookingDataNotFound
	}

	raw, _ := json.Marshal(req)
	out := model.PaymentOutcome{
		OrderID:       req.OrderID,
		PaymentID:     req.PaymentID,
		GatewayStatus: "captured",
		RawResponse:   string(raw),
	}
	outcome, err := s.confirm(ctx, out, "callback")
	if errors.Is(err, ErrBookingNotConfirmable) {
		s.log.Warnf("payment: callback for order %s arrived after the booking left Pending", req.OrderID)
	}
	return outcome, err
}

// confirm applies a verified capture to the booking for out.OrderID.
func (s *PaymentService) confirm(ctx context.Context, out model.PaymentOutcome, source string) (Outcome, error) {
	b, err := s.bookings.GetByOrderID(ctx, out.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return OutcomeNotFound, ErrBookingDataNotFound
		}
		s.log.Errorf("payment: load booking for order %s: %v", out.OrderID, err)
		return OutcomeError, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if b.BookingStatus == model.StatusConfirmed {
		s.discard(ctx, b.BookingRef)
		return OutcomeDuplicate, nil
	}

	n, err := s.bookings.ConfirmIfPending(ctx, out)
	if err != nil {
		s.log.Errorf("payment: confirm booking %s (order %s): %v", b.BookingRef, out.OrderID, err)
		return OutcomeError, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if n == 0 {
		// lost a race or the row went terminal meanwhile; re-read to tell which
		cur, err := s.bookings.GetByOrderID(ctx, out.OrderID)
		if err != nil {
			s.log.Errorf("payment: re-read booking for order %s: %v", out.OrderID, err)
			return OutcomeError, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		s.discard(ctx, cur.BookingRef)
		if cur.BookingStatus == model.StatusConfirmed {
			return OutcomeDuplicate, nil
		}
		return OutcomeUnchanged, ErrBookingNotConfirmable
	}

	s.log.Infof("payment: booking %s confirmed via %s (order %s, payment %s)", b.BookingRef, source, out.OrderID, out.PaymentID)
	s.publishConfirmed(ctx, b, out, source)
	s.discard(ctx, b.BookingRef)
	return OutcomeConfirmed, nil
}

// webhookEnvelope is the part of a gateway webhook the service reads.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload *struct {
		Payment *struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity orderEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type orderEntity struct {
	ID      string `json:"id"`
	Receipt string `json:"receipt"`
}

// HandleWebhook verifies and applies a gateway webhook.  An error is only
// returned for requests that must be rejected (empty or malformed body,
// missing or invalid signature); once the signature verifies, every
// outcome is acknowledged and problems are logged.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if len(body) == 0 {
		return "", ErrMalformedWebhook
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return "", ErrMissingSignature
	}
	if !gateway.VerifyWebhookSignature(body, signature, s.cfg.WebhookSecret) {
		s.log.Warnf("payment: webhook signature mismatch")
		return "", ErrSignatureMismatch
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if env.Event == "" || env.Payload == nil {
		return "", ErrMalformedWebhook
	}

	var pay paymentEntity
	if env.Payload.Payment != nil {
		pay = env.Payload.Payment.Entity
	}
	orderID := pay.OrderID
	if orderID == "" && env.Payload.Order != nil {
		orderID = env.Payload.Order.Entity.ID
	}

	switch env.Event {
	case "payment.captured":
		if orderID == "" || pay.ID == "" {
			s.log.Warnf("payment: %s webhook without order or payment id", env.Event)
			return OutcomeIgnored, nil
		}
		if pay.Amount != s.cfg.FeeMinor || !strings.EqualFold(pay.Currency, s.cfg.Currency) {
			s.log.Warnf("payment: order %s captured %d %s, expected %d %s; booking left untouched",
				orderID, pay.Amount, pay.Currency, s.cfg.FeeMinor, s.cfg.Currency)
			return OutcomeAmountMismatch, nil
		}
		status := pay.Status
		if status == "" {
			status = "captured"
		}
		outcome, err := s.confirm(ctx, model.PaymentOutcome{
			OrderID: orderID, PaymentID: pay.ID, GatewayStatus: status, RawResponse: string(body),
		}, "webhook")
		switch {
		case errors.Is(err, ErrBookingDataNotFound):
			s.log.Warnf("payment: captured webhook for unknown order %s", orderID)
		case errors.Is(err, ErrBookingNotConfirmable):
			s.log.Warnf("payment: captured webhook for order %s after the booking left Pending", orderID)
		}
		return outcome, nil

	case "payment.failed":
		if orderID == "" {
			s.log.Warnf("payment: %s webhook without order id", env.Event)
			return OutcomeIgnored, nil
		}
		return s.fail(ctx, model.PaymentOutcome{
			OrderID: orderID, PaymentID: pay.ID, GatewayStatus: orDefault(pay.Status, "failed"), RawResponse: string(body),
		}), nil

	default:
		s.log.Infof("payment: ignoring webhook event %q (order %s)", env.Event, orderID)
		return OutcomeIgnored, nil
	}
}

// fail marks a Pending booking as Payment Failed.  Confirmed bookings are
// never downgraded.
func (s *PaymentService) fail(ctx context.Context, out model.PaymentOutcome) Outcome {
	b, err := s.bookings.GetByOrderID(ctx, out.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			s.log.Warnf("payment: failed webhook for unknown order %s", out.OrderID)
			return OutcomeNotFound
		}
		s.log.Errorf("payment: load booking for order %s: %v", out.OrderID, err)
		return OutcomeError
	}
	n, err := s.bookings.FailIfPending(ctx, out)
	if err != nil {
		s.log.Errorf("payment: mark booking %s failed: %v", b.BookingRef, err)
		return OutcomeError
	}
	if n == 0 {
		s.log.Infof("payment: failed webhook for order %s ignored, booking already %s", out.OrderID, b.BookingStatus)
		return OutcomeUnchanged
	}
	s.log.Infof("payment: booking %s marked payment failed (order %s)", b.BookingRef, out.OrderID)
	s.discard(ctx, b.BookingRef)
	return OutcomeFailed
}

func (s *PaymentService) publishConfirmed(ctx context.Context, b model.Booking, out model.PaymentOutcome, source string) {
	if s.events == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingRef:      b.BookingRef,
		OrderID:         out.OrderID,
		PaymentID:       out.PaymentID,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		GuestPhone:      b.GuestPhone,
		ReservationDate: b.ReservationDate.Format(dateLayout),
		ReservationTime: b.ReservationTime,
		NumberGuests:    b.NumberGuests,
		AmountMinor:     s.cfg.FeeMinor,
		Currency:        s.cfg.Currency,
		Source:          source,
		ConfirmedAt:     s.now().UTC().Format(time.RFC3339),
	}
	if b.Occasion != nil {
		ev.Occasion = *b.Occasion
	}
	// The broker is dialled per publish; keep it off the request path.
	s.publishing.Add(1)
	go func() {
		defer s.publishing.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.events.PublishBookingConfirmed(pctx, ev); err != nil {
			s.log.Warnf("payment: publish booking.confirmed for %s: %v", b.BookingRef, err)
		}
	}()
}

// Drain blocks until in-flight event publishes finish or ctx is done.
func (s *PaymentService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discard drops the pending record once the booking is terminal.
func (s *PaymentService) discard(ctx context.Context, bookingRef string) {
	if err := s.pending.Delete(ctx, bookingRef); err != nil {
		s.log.Warnf("payment: discard pending payment %s: %v", bookingRef, err)
	}
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
