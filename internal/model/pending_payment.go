package model

import "time"

// PendingPayment is the short-lived record linking a browser session to a
// booking between order creation and confirmation.  It is owned by the
// session that started checkout and is discarded once the booking reaches
// a terminal status.
type PendingPayment struct {
	BookingRef  string    `json:"booking_ref"`
	OrderID     string    `json:"order_id,omitempty"` // set after the gateway accepts the order
	SessionID   string    `json:"session_id"`
	GuestName   string    `json:"guest_name"`
	GuestEmail  string    `json:"guest_email"`
	GuestPhone  string    `json:"guest_phone"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
