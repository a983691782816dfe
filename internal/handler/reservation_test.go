package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/service"
)

func postForm(e *echo.Echo, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validForm() url.Values {
	return url.Values{
		"guest_name":       {"Asha Rao"},
		"guest_phone":      {"9876543210"},
		"guest_email":      {"asha@example.com"},
		"reservation_date": {time.Now().AddDate(0, 0, 7).Format("2006-01-02")},
		"reservation_time": {"19:30"},
		"number_guests":    {"4"},
		"occasion":         {"Birthday"},
	}
}

func TestSubmitRendersCheckout(t *testing.T) {
	e := newTestEcho(t)
	var gotForm service.ReservationForm
	intake := &mockIntake{IntakeFunc: func(_ context.Context, f service.ReservationForm) (model.Booking, error) {
		gotForm = f
		return model.Booking{
			BookingRef:      "book_1",
			GuestName:       f.GuestName,
			ReservationDate: time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC),
			ReservationTime: f.ReservationTime,
			NumberGuests:    4,
		}, nil
	}}
	flow := &mockFlow{InitiateFunc: func(_ context.Context, b model.Booking, _ string) (service.CheckoutOptions, error) {
		return service.CheckoutOptions{Key: "rzp_test_key", Amount: 10000, Currency: "INR", OrderID: "order_abc"}, nil
	}}
	h := NewReservationHandler(intake, flow)
	e.POST("/reservation", h.Submit)

	rec := postForm(e, "/reservation", validForm())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"order_abc", "rzp_test_key", "INR 100.00", "Asha Rao", "checkout.razorpay.com"} {
		if !strings.Contains(body, want) {
			t.Errorf("checkout page missing %q", want)
		}
	}
	if gotForm.NumberGuests != "4" || gotForm.GuestPhone != "9876543210" {
		t.Errorf("form not bound: %+v", gotForm)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	e := newTestEcho(t)
	intake := &mockIntake{IntakeFunc: func(context.Context, service.ReservationForm) (model.Booking, error) {
		return model.Booking{}, &service.ValidationError{Messages: []string{"Full Name is required.", "Invalid time format selected."}}
	}}
	flow := &mockFlow{InitiateFunc: func(context.Context, model.Booking, string) (service.CheckoutOptions, error) {
		t.Fatal("payment must not be initiated for an invalid form")
		return service.CheckoutOptions{}, nil
	}}
	e.POST("/reservation", NewReservationHandler(intake, flow).Submit)

	rec := postForm(e, "/reservation", url.Values{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Full Name is required.") || !strings.Contains(rec.Body.String(), "Invalid time format selected.") {
		t.Errorf("errors not listed: %s", rec.Body.String())
	}
}

func TestSubmitInitiateFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"gateway down", service.ErrGatewayUnavailable, "/payment_failed?reason=order_creation_failed"},
		{"store down", service.ErrPersistence, "/payment_failed?reason=internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho(t)
			intake := &mockIntake{IntakeFunc: func(context.Context, service.ReservationForm) (model.Booking, error) {
				return model.Booking{BookingRef: "book_1"}, nil
			}}
			flow := &mockFlow{InitiateFunc: func(context.Context, model.Booking, string) (service.CheckoutOptions, error) {
				return service.CheckoutOptions{}, tc.err
			}}
			e.POST("/reservation", NewReservationHandler(intake, flow).Submit)

			rec := postForm(e, "/reservation", validForm())
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tc.want {
				t.Errorf("Location = %q, want %q", loc, tc.want)
			}
		})
	}
}

func TestSubmitIntakeStoreFailure(t *testing.T) {
	e := newTestEcho(t)
	intake := &mockIntake{IntakeFunc: func(context.Context, service.ReservationForm) (model.Booking, error) {
		return model.Booking{}, errors.Join(service.ErrPersistence, errors.New("db down"))
	}}
	e.POST("/reservation", NewReservationHandler(intake, &mockFlow{}).Submit)

	rec := postForm(e, "/reservation", validForm())
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("internal error leaked to the page")
	}
}

func TestResultPages(t *testing.T) {
	e := newTestEcho(t)
	h := NewReservationHandler(&mockIntake{}, &mockFlow{})
	e.GET("/thankyou", h.ThankYou)
	e.GET("/payment_failed", h.PaymentFailed)

	cases := map[string]string{
		"/thankyou":                                  "Table booked!",
		"/payment_failed?reason=payment_failed":      "Payment failed",
		"/payment_failed?reason=verification_failed": "Payment not verified",
		"/payment_failed":                            "Something went wrong",
	}
	for path, want := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), want) {
			t.Errorf("%s: status %d, want page with %q", path, rec.Code, want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := formatAmount(10000, "INR"); got != "INR 100.00" {
		t.Errorf("got %q", got)
	}
	if got := formatAmount(12345, "INR"); got != "INR 123.45" {
		t.Errorf("got %q", got)
	}
}
