package model

import "time"

// Booking status values stored in bookings.booking_status.  A NULL status
// is read back as StatusPending.
const (
	StatusPending       = "Pending"
	StatusConfirmed     = "Confirmed"
	StatusPaymentFailed = "Payment Failed"
)

// Booking fee status values stored in bookings.booking_fee_status.
const (
	FeePending = "Pending"
	FeePaid    = "Paid"
	FeeFailed  = "Failed"
)

// Booking mirrors a row of the `bookings` table.  BookingRef is the
// internal booking id ("book_" + uuid) and doubles as the gateway receipt.
// GatewayOrderID is empty until payment has been initiated.
type Booking struct {
	ID               uint64
	BookingRef       string
	GuestName        string
	GuestPhone       string
	GuestEmail       string
	ReservationDate  time.Time // date only, midnight UTC
	ReservationTime  string    // HH:MM, 24 hour
	NumberGuests     int
	Occasion         *string // nil when the guest left it blank
	SpecialRequests  *string
	BookingTimestamp time.Time
	GatewayOrderID   string
	GatewayPaymentID string
	GatewayStatus    string
	GatewayResponse  string
	BookingFeeStatus string
	BookingStatus    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsTerminal reports whether the booking has left the Pending state.
func (b Booking) IsTerminal() bool {
	return b.BookingStatus == StatusConfirmed || b.BookingStatus == StatusPaymentFailed
}

// PaymentOutcome carries the gateway data written by a conditional status
// transition.  RawResponse is stored verbatim for audit.
type PaymentOutcome struct {
	OrderID       string
	PaymentID     string
	GatewayStatus string
	RawResponse   string
}
