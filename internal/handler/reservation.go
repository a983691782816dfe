package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/middleware"
	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/service"
)

// ReservationIntake validates and records reservation submissions.
type ReservationIntake interface {
	Intake(ctx context.Context, f service.ReservationForm) (model.Booking, error)
}

// PaymentFlow is the payment side of the reservation flow.
type PaymentFlow interface {
	Initiate(ctx context.Context, b model.Booking, sessionID string) (service.CheckoutOptions, error)
	ConfirmCallback(ctx context.Context, sessionID string, req service.CallbackRequest) (service.Outcome, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (service.Outcome, error)
}

// ReservationHandler serves the reservation form post and the pages the
// checkout redirects to.
type ReservationHandler struct {
	Intake   ReservationIntake
	Payments PaymentFlow
}

// NewReservationHandler panics if a dependency is nil.
func NewReservationHandler(intake ReservationIntake, payments PaymentFlow) *ReservationHandler {
	if intake == nil || payments == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Intake: intake, Payments: payments}
}

// checkoutPage is the data for pages/checkout.html.
type checkoutPage struct {
	Options       service.CheckoutOptions
	GuestName     string
	Guests        int
	Date          string
	Time          string
	AmountDisplay string
	VerifyURL     string
	SuccessURL    string
	FailureURL    string
}

// Submit handles POST /reservation.  A valid form is stored as a Pending
// booking and answered with the checkout page for the booking fee; an
// invalid one gets the list of problems and nothing is stored.
func (h *ReservationHandler) Submit(c echo.Context) error {
	var form service.ReservationForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, "reservation_errors.html", echo.Map{
			"Errors": []string{"The reservation form could not be read. Please try again."},
		})
	}

	ctx := c.Request().Context()
	b, err := h.Intake.Intake(ctx, form)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			return c.Render(http.StatusUnprocessableEntity, "reservation_errors.html", echo.Map{"Errors": ve.Messages})
		}
		c.Logger().Errorf("reservation: intake failed: %v", err)
		return c.Render(http.StatusInternalServerError, "payment_result.html", resultPage("error"))
	}

	opts, err := h.Payments.Initiate(ctx, b, middleware.SessionID(c))
	if err != nil {
		reason := "internal_error"
		if errors.Is(err, service.ErrGatewayUnavailable) {
			reason = "order_creation_failed"
		} else {
			c.Logger().Errorf("reservation: initiate payment for %s: %v", b.BookingRef, err)
		}
		return c.Redirect(http.StatusSeeOther, "/payment_failed?reason="+reason)
	}

	return c.Render(http.StatusOK, "checkout.html", checkoutPage{
		Options:       opts,
		GuestName:     b.GuestName,
		Guests:        b.NumberGuests,
		Date:          b.ReservationDate.Format("Mon, 2 Jan 2006"),
		Time:          b.ReservationTime,
		AmountDisplay: formatAmount(opts.Amount, opts.Currency),
		VerifyURL:     "/payment/verify",
		SuccessURL:    "/thankyou",
		FailureURL:    "/payment_failed",
	})
}

// ThankYou handles GET /thankyou.
func (h *ReservationHandler) ThankYou(c echo.Context) error {
	return c.Render(http.StatusOK, "payment_result.html", resultPage("success"))
}

// PaymentFailed handles GET /payment_failed?reason=...
func (h *ReservationHandler) PaymentFailed(c echo.Context) error {
	return c.Render(http.StatusOK, "payment_result.html", resultPage(c.QueryParam("reason")))
}

func resultPage(reason string) echo.Map {
	switch reason {
	case "success":
		return echo.Map{"Heading": "Table booked!", "Message": "Your booking fee was received and your table is confirmed. See you soon."}
	case "order_creation_failed":
		return echo.Map{"Heading": "Payment unavailable", "Message": "We could not start the payment right now. Please try again in a few minutes."}
	case "verification_failed":
		return echo.Map{"Heading": "Payment not verified", "Message": "We could not verify your payment. If money was deducted, the booking will be confirmed automatically or the amount refunded."}
	case "payment_failed":
		return echo.Map{"Heading": "Payment failed", "Message": "Your payment did not go through. No booking fee was charged."}
	default:
		return echo.Map{"Heading": "Something went wrong", "Message": "We could not complete your reservation. Please try again."}
	}
}

// formatAmount renders a minor-unit amount, e.g. 10000 INR -> "INR 100.00".
func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %d.%02d", currency, minor/100, minor%100)
}
