package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// 2026-10-18 09:00 in Asia/Kolkata.
var fixedNow = time.Date(2026, 10, 18, 3, 30, 0, 0, time.UTC)

func newTestReservationService(t *testing.T, store BookingCreator) *ReservationService {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	s := NewReservationService(store, loc)
	s.now = func() time.Time { return fixedNow }
	return s
}

func validForm() ReservationForm {
	return ReservationForm{
		GuestName:       "Asha Rao",
		GuestPhone:      "9876543210",
		GuestEmail:      "asha@example.com",
		ReservationDate: "2026-10-20",
		ReservationTime: "19:30",
		NumberGuests:    "4",
	}
}

func TestValidateReservationForm(t *testing.T) {
	s := newTestReservationService(t, newMemBookings())

	tests := []struct {
		name   string
		modify func(f *ReservationForm)
		want   []string
	}{
		{"valid", func(f *ReservationForm) {}, nil},
		{"today is allowed", func(f *ReservationForm) { f.ReservationDate = "2026-10-18" }, nil},
		{"boundary guests 1", func(f *ReservationForm) { f.NumberGuests = "1" }, nil},
		{"boundary guests 10", func(f *ReservationForm) { f.NumberGuests = "10" }, nil},
		{"midnight slot", func(f *ReservationForm) { f.ReservationTime = "00:00" }, nil},
		{"blank name", func(f *ReservationForm) { f.GuestName = "   " }, []string{"Full Name is required."}},
		{"short phone", func(f *ReservationForm) { f.GuestPhone = "98765" }, []string{"A valid 10-digit Phone Number is required."}},
		{"phone with letters", func(f *ReservationForm) { f.GuestPhone = "98765abcde" }, []string{"A valid 10-digit Phone Number is required."}},
		{"phone with country code", func(f *ReservationForm) { f.GuestPhone = "+919876543210" }, []string{"A valid 10-digit Phone Number is required."}},
		{"bad email", func(f *ReservationForm) { f.GuestEmail = "asha@" }, []string{"A valid Email Address is required."}},
		{"missing date", func(f *ReservationForm) { f.ReservationDate = "" }, []string{"Reservation Date is required."}},
		{"past date", func(f *ReservationForm) { f.ReservationDate = "2026-10-17" }, []string{"Please select a valid future date."}},
		{"malformed date", func(f *ReservationForm) { f.ReservationDate = "20/10/2026" }, []string{"Please select a valid future date."}},
		{"missing time", func(f *ReservationForm) { f.ReservationTime = "" }, []string{"Reservation Time slot is required."}},
		{"hour out of range", func(f *ReservationForm) { f.ReservationTime = "24:00" }, []string{"Invalid time format selected."}},
		{"single digit hour", func(f *ReservationForm) { f.ReservationTime = "9:30" }, []string{"Invalid time format selected."}},
		{"zero guests", func(f *ReservationForm) { f.NumberGuests = "0" }, []string{"Number of Guests must be between 1 and 10."}},
		{"eleven guests", func(f *ReservationForm) { f.NumberGuests = "11" }, []string{"Number of Guests must be between 1 and 10."}},
		{"non numeric guests", func(f *ReservationForm) { f.NumberGuests = "four" }, []string{"Number of Guests must be between 1 and 10."}},
		{"missing guests", func(f *ReservationForm) { f.NumberGuests = "" }, []string{"Number of Guests must be between 1 and 10."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.modify(&f)
			err := s.Validate(&f)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(ve.Messages, tt.want) {
				t.Fatalf("messages = %q, want %q", ve.Messages, tt.want)
			}
		})
	}
}

func TestValidateCollectsEveryError(t *testing.T) {
	s := newTestReservationService(t, newMemBookings())
	f := ReservationForm{GuestPhone: "123", GuestEmail: "nope", ReservationDate: "2020-01-01", ReservationTime: "25:99", NumberGuests: "50"}

	var ve *ValidationError
	if err := s.Validate(&f); !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{
		"Full Name is required.",
		"A valid 10-digit Phone Number is required.",
		"A valid Email Address is required.",
		"Please select a valid future date.",
		"Invalid time format selected.",
		"Number of Guests must be between 1 and 10.",
	}
	if !reflect.DeepEqual(ve.Messages, want) {
		t.Fatalf("messages = %q, want %q", ve.Messages, want)
	}
}

func TestIntakeCreatesPendingBooking(t *testing.T) {
	store := newMemBookings()
	s := newTestReservationService(t, store)

	f := validForm()
	f.GuestName = "  Asha Rao "
	f.Occasion = "Birthday"
	b, err := s.Intake(context.Background(), f)
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if !strings.HasPrefix(b.BookingRef, "book_") {
		t.Fatalf("booking ref %q lacks prefix", b.BookingRef)
	}
	stored, err := store.GetByRef(context.Background(), b.BookingRef)
	if err != nil {
		t.Fatalf("stored booking: %v", err)
	}
	if stored.BookingStatus != model.StatusPending || stored.BookingFeeStatus != model.FeePending {
		t.Fatalf("status = %q/%q, want Pending/Pending", stored.BookingStatus, stored.BookingFeeStatus)
	}
	if stored.GuestName != "Asha Rao" || stored.NumberGuests != 4 || stored.ReservationTime != "19:30" {
		t.Fatalf("unexpected stored booking %+v", stored)
	}
	if got := stored.ReservationDate.Format("2006-01-02"); got != "2026-10-20" {
		t.Fatalf("reservation date = %s", got)
	}
	if stored.Occasion == nil || *stored.Occasion != "Birthday" {
		t.Fatalf("occasion = %v", stored.Occasion)
	}
	if stored.SpecialRequests != nil {
		t.Fatalf("blank special requests should be stored as NULL, got %q", *stored.SpecialRequests)
	}
	if !stored.BookingTimestamp.Equal(fixedNow) {
		t.Fatalf("booking timestamp = %v, want %v", stored.BookingTimestamp, fixedNow)
	}
}

func TestIntakeRejectsWithoutWriting(t *testing.T) {
	store := newMemBookings()
	s := newTestReservationService(t, store)

	f := validForm()
	f.NumberGuests = "12"
	if _, err := s.Intake(context.Background(), f); err == nil {
		t.Fatal("expected validation error")
	}
	if store.writeCount() != 0 {
		t.Fatalf("invalid submission wrote %d rows", store.writeCount())
	}
}

func TestIntakePersistenceFailure(t *testing.T) {
	store := newMemBookings()
	store.createErr = errors.New("connection refused")
	s := newTestReservationService(t, store)

	_, err := s.Intake(context.Background(), validForm())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestNewBookingRefIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewBookingRef()
		if seen[ref] {
			t.Fatalf("duplicate booking ref %s", ref)
		}
		seen[ref] = true
	}
}
