// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedQueue is the durable queue confirmed bookings are published to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once a booking moves to Confirmed.  It
// carries enough for downstream consumers (kitchen display, notifications,
// the booking log) to act without querying the database.
type BookingConfirmedEvent struct {
	BookingRef      string `json:"booking_ref"`
	OrderID         string `json:"order_id"`
	PaymentID       string `json:"payment_id"`
	GuestName       string `json:"guest_name"`
	GuestEmail      string `json:"guest_email"`
	GuestPhone      string `json:"guest_phone"`
	ReservationDate string `json:"reservation_date"` // YYYY-MM-DD
	ReservationTime string `json:"reservation_time"` // HH:MM
	NumberGuests    int    `json:"number_guests"`
	Occasion        string `json:"occasion,omitempty"`
	AmountMinor     int64  `json:"amount_minor"`
	Currency        string `json:"currency"`
	Source          string `json:"source"` // callback | webhook
	ConfirmedAt     string `json:"confirmed_at"`
}
