package service

import "github.com/google/uuid"

// NewBookingRef returns a new internal booking id of the form "book_<uuid>".
// UUIDv7 keeps references roughly time ordered, which keeps the unique
// index on booking_ref append-mostly.
func NewBookingRef() string {
	id, err := uuid.NewV7()
	if err != nil {
		return "book_" + uuid.NewString()
	}
	return "book_" + id.String()
}
