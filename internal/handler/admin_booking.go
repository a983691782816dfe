package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
	"github.com/iliyamo/cocochutney-reservations/internal/repository"
)

// BookingReader is the read side of the booking store used by staff.
type BookingReader interface {
	GetByRef(ctx context.Context, bookingRef string) (model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]model.Booking, error)
}

// AdminBookingHandler lets staff look at the day's reservations.
type AdminBookingHandler struct {
	Bookings BookingReader
	Loc      *time.Location
}

func NewAdminBookingHandler(bookings BookingReader, loc *time.Location) *AdminBookingHandler {
	if bookings == nil {
		panic("nil repository passed to NewAdminBookingHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AdminBookingHandler{Bookings: bookings, Loc: loc}
}

// bookingDTO is what staff see.  The raw gateway payload stays in the
// database.
type bookingDTO struct {
	BookingRef       string    `json:"booking_ref"`
	GuestName        string    `json:"guest_name"`
	GuestPhone       string    `json:"guest_phone"`
	GuestEmail       string    `json:"guest_email"`
	ReservationDate  string    `json:"reservation_date"`
	ReservationTime  string    `json:"reservation_time"`
	NumberGuests     int       `json:"number_guests"`
	Occasion         *string   `json:"occasion,omitempty"`
	SpecialRequests  *string   `json:"special_requests,omitempty"`
	BookingStatus    string    `json:"booking_status"`
	BookingFeeStatus string    `json:"booking_fee_status"`
	GatewayOrderID   string    `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	GatewayStatus    string    `json:"gateway_status,omitempty"`
	BookingTimestamp time.Time `json:"booking_timestamp"`
}

func toBookingDTO(b model.Booking) bookingDTO {
	return bookingDTO{
		BookingRef:       b.BookingRef,
		GuestName:        b.GuestName,
		GuestPhone:       b.GuestPhone,
		GuestEmail:       b.GuestEmail,
		ReservationDate:  b.ReservationDate.Format("2006-01-02"),
		ReservationTime:  b.ReservationTime,
		NumberGuests:     b.NumberGuests,
		Occasion:         b.Occasion,
		SpecialRequests:  b.SpecialRequests,
		BookingStatus:    b.BookingStatus,
		BookingFeeStatus: b.BookingFeeStatus,
		GatewayOrderID:   b.GatewayOrderID,
		GatewayPaymentID: b.GatewayPaymentID,
		GatewayStatus:    b.GatewayStatus,
		BookingTimestamp: b.BookingTimestamp,
	}
}

// List handles GET /v1/admin/bookings?date=YYYY-MM-DD.  Without a date the
// restaurant's current day is used.
func (h *AdminBookingHandler) List(c echo.Context) error {
	raw := c.QueryParam("date")
	if raw == "" {
		raw = time.Now().In(h.Loc).Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	list, err := h.Bookings.ListByDate(ctx, date)
	if err != nil {
		c.Logger().Errorf("admin: list bookings for %s: %v", raw, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	items := make([]bookingDTO, 0, len(list))
	for _, b := range list {
		items = append(items, toBookingDTO(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"date": raw, "items": items, "count": len(items)})
}

// Get handles GET /v1/admin/bookings/:ref.
func (h *AdminBookingHandler) Get(c echo.Context) error {
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load booking"})
	}
	return c.JSON(http.StatusOK, toBookingDTO(b))
}
