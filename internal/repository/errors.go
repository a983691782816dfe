// Package repository holds the MySQL and Redis backed stores.  The sentinel
// values below let the service and handler layers tell failure scenarios
// apart with errors.Is.
package repository

import "errors"

// ErrBookingNotFound is returned when no booking matches the given
// reference or gateway order id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPendingNotFound is returned when no pending payment record exists for
// an order id, or the record has expired.
var ErrPendingNotFound = errors.New("pending payment not found")

// ErrEmailExists is returned on signup with an address already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict signals that a write could not proceed because of existing
// state, such as attaching a second gateway order to one booking.
// Handlers translate this into a 409.
var ErrConflict = errors.New("conflict")
