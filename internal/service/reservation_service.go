package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// ReservationForm is the table reservation form as posted by the browser.
// NumberGuests stays a string so a non-numeric value is reported as a range
// error instead of failing the bind.
type ReservationForm struct {
	GuestName       string `form:"guest_name" validate:"required"`
	GuestPhone      string `form:"guest_phone" validate:"required,phone10"`
	GuestEmail      string `form:"guest_email" validate:"required,email"`
	ReservationDate string `form:"reservation_date" validate:"required,futuredate"`
	ReservationTime string `form:"reservation_time" validate:"required,hhmm"`
	NumberGuests    string `form:"number_guests" validate:"guests"`
	Occasion        string `form:"occasion"`
	SpecialRequests string `form:"special_requests"`
}

const (
	dateLayout = "2006-01-02"
	minGuests  = 1
	maxGuests  = 10
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	timePattern  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

// fieldMessages maps a struct field to the message shown for each failed
// tag.  The "" entry is the fallback for any other tag on that field.
var fieldMessages = map[string]map[string]string{
	"GuestName":       {"": "Full Name is required."},
	"GuestPhone":      {"": "A valid 10-digit Phone Number is required."},
	"GuestEmail":      {"": "A valid Email Address is required."},
	"ReservationDate": {"required": "Reservation Date is required.", "": "Please select a valid future date."},
	"ReservationTime": {"required": "Reservation Time slot is required.", "": "Invalid time format selected."},
	"NumberGuests":    {"": fmt.Sprintf("Number of Guests must be between %d and %d.", minGuests, maxGuests)},
}

// fieldOrder keeps messages in form order regardless of validator internals.
var fieldOrder = []string{"GuestName", "GuestPhone", "GuestEmail", "ReservationDate", "ReservationTime", "NumberGuests"}

// BookingCreator is the part of the booking store intake needs.
type BookingCreator interface {
	Create(ctx context.Context, b *model.Booking) error
}

// ReservationService validates reservation submissions and records them as
// Pending bookings.
type ReservationService struct {
	store    BookingCreator
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
}

// NewReservationService builds the service.  loc is the restaurant's time
// zone; "today" for the future-date rule is evaluated there.
func NewReservationService(store BookingCreator, loc *time.Location) *ReservationService {
	if store == nil {
		panic("nil booking store passed to NewReservationService")
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &ReservationService{store: store, loc: loc, now: time.Now}
	s.validate = validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = s.validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = s.validate.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return timePattern.MatchString(fl.Field().String())
	})
	_ = s.validate.RegisterValidation("futuredate", func(fl validator.FieldLevel) bool {
		_, ok := s.parseFutureDate(fl.Field().String())
		return ok
	})
	_ = s.validate.RegisterValidation("guests", func(fl validator.FieldLevel) bool {
		_, ok := parseGuests(fl.Field().String())
		return ok
	})
	return s
}

// Validate trims the form in place and returns a *ValidationError listing
// every problem, or nil.
func (s *ReservationService) Validate(f *ReservationForm) error {
	f.GuestName = strings.TrimSpace(f.GuestName)
	f.GuestPhone = strings.TrimSpace(f.GuestPhone)
	f.GuestEmail = strings.TrimSpace(f.GuestEmail)
	f.ReservationDate = strings.TrimSpace(f.ReservationDate)
	f.ReservationTime = strings.TrimSpace(f.ReservationTime)
	f.NumberGuests = strings.TrimSpace(f.NumberGuests)
	f.Occasion = strings.TrimSpace(f.Occasion)
	f.SpecialRequests = strings.TrimSpace(f.SpecialRequests)

	err := s.validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	failed := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		failed[fe.StructField()] = fe.Tag()
	}
	ve := &ValidationError{}
	for _, field := range fieldOrder {
		tag, ok := failed[field]
		if !ok {
			continue
		}
		msgs := fieldMessages[field]
		if m, ok := msgs[tag]; ok {
			ve.Messages = append(ve.Messages, m)
		} else {
			ve.Messages = append(ve.Messages, msgs[""])
		}
	}
	return ve
}

// Intake validates the form and, when it is clean, inserts a booking with
// status Pending and fee status Pending.  Blank optional fields are stored
// as NULL.  Nothing is written when validation fails.
func (s *ReservationService) Intake(ctx context.Context, f ReservationForm) (model.Booking, error) {
	if err := s.Validate(&f); err != nil {
		return model.Booking{}, err
	}
	date, _ := s.parseFutureDate(f.ReservationDate)
	guests, _ := parseGuests(f.NumberGuests)

	b := model.Booking{
		BookingRef:       NewBookingRef(),
		GuestName:        f.GuestName,
		GuestPhone:       f.GuestPhone,
		GuestEmail:       f.GuestEmail,
		ReservationDate:  date,
		ReservationTime:  f.ReservationTime,
		NumberGuests:     guests,
		Occasion:         optional(f.Occasion),
		SpecialRequests:  optional(f.SpecialRequests),
		BookingTimestamp: s.now().UTC(),
	}
	if err := s.store.Create(ctx, &b); err != nil {
		return model.Booking{}, fmt.Errorf("%w: create booking: %v", ErrPersistence, err)
	}
	return b, nil
}

// parseFutureDate accepts YYYY-MM-DD dates that are today or later in the
// restaurant's time zone.  The result is midnight UTC of that calendar day.
func (s *ReservationService) parseFutureDate(v string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	today, _ := time.Parse(dateLayout, s.now().In(s.loc).Format(dateLayout))
	if d.Before(today) {
		return time.Time{}, false
	}
	return d, true
}

func parseGuests(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil || n < minGuests || n > maxGuests {
		return 0, false
	}
	return n, true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
