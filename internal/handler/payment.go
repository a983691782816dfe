package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/middleware"
	"github.com/iliyamo/cocochutney-reservations/internal/service"
)

// maxWebhookBody bounds how much of a webhook request is read.
const maxWebhookBody = 1 << 20

// PaymentHandler serves the two payment confirmation endpoints.
type PaymentHandler struct {
	Payments PaymentFlow
}

func NewPaymentHandler(payments PaymentFlow) *PaymentHandler {
	if payments == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

// callbackResp is the JSON read by the checkout page's redirect logic.
type callbackResp struct {
	Status  string `json:"status"` // success | error
	Message string `json:"message"`
}

// Verify handles POST /payment/verify, the browser callback after checkout.
// Internal details never reach the response; they are logged by the service.
func (h *PaymentHandler) Verify(c echo.Context) error {
	var req service.CallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, callbackResp{"error", "Missing payment parameters."})
	}

	outcome, err := h.Payments.ConfirmCallback(c.Request().Context(), middleware.SessionID(c), req)
	switch {
	case err == nil && outcome == service.OutcomeDuplicate:
		return c.JSON(http.StatusOK, callbackResp{"success", "Booking already processed"})
	case err == nil:
		return c.JSON(http.StatusOK, callbackResp{"success", "Booking confirmed!"})
	case errors.Is(err, service.ErrMissingParameters):
		return c.JSON(http.StatusBadRequest, callbackResp{"error", "Missing payment parameters."})
	case errors.Is(err, service.ErrSignatureMismatch):
		return c.JSON(http.StatusBadRequest, callbackResp{"error", "Payment verification failed."})
	case errors.Is(err, service.ErrBookingDataNotFound):
		return c.JSON(http.StatusNotFound, callbackResp{"error", "Booking data not found."})
	case errors.Is(err, service.ErrBookingNotConfirmable):
		return c.JSON(http.StatusConflict, callbackResp{"error", "This booking can no longer be confirmed."})
	default:
		return c.JSON(http.StatusInternalServerError, callbackResp{"error", "Error saving booking."})
	}
}

// Webhook handles POST /webhooks/razorpay.  The signature covers the raw
// body, so it is read before any decoding.  Anything that fails
// verification gets 400; everything after verification gets 200 so the
// gateway does not retry.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get("X-Razorpay-Signature")

	outcome, err := h.Payments.HandleWebhook(c.Request().Context(), body, sig)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSignature):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing signature"})
		case errors.Is(err, service.ErrSignatureMismatch):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "outcome": outcome})
}
