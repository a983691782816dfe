// Package service holds the reservation flow: intake validation, payment
// initiation against the gateway and the two confirmation paths.
package service

import (
	"errors"
	"strings"
)

var (
	// ErrGatewayUnavailable means the gateway refused or failed to create an order.
	ErrGatewayUnavailable = errors.New("payment order could not be created")
	// ErrMissingParameters is returned when a callback lacks order id, payment id or signature.
	ErrMissingParameters = errors.New("missing payment parameters")
	// ErrSignatureMismatch is returned when an HMAC signature does not verify.
	// Nothing is written when this is returned.
	ErrSignatureMismatch = errors.New("payment verification failed")
	// ErrBookingDataNotFound is returned when a verified callback cannot be
	// correlated with this session's pending payment or with a booking row.
	ErrBookingDataNotFound = errors.New("booking data not found")
	// ErrPersistence wraps store failures during confirmation.
	ErrPersistence = errors.New("error saving booking")
	// ErrBookingNotConfirmable is returned when the booking already left
	// Pending for a reason other than confirmation (e.g. Payment Failed).
	ErrBookingNotConfirmable = errors.New("booking can no longer be confirmed")
	// ErrMalformedWebhook covers empty bodies, invalid JSON and missing fields.
	ErrMalformedWebhook = errors.New("malformed webhook")
	// ErrMissingSignature is returned for webhooks without X-Razorpay-Signature.
	ErrMissingSignature = errors.New("missing webhook signature")
)

// ValidationError collects every field problem found in one submission.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid reservation: " + strings.Join(e.Messages, " ")
}
