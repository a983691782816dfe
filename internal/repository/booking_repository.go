package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// BookingRepo persists table reservations in the `bookings` table.
type BookingRepo struct{ db *sql.DB }

// NewBookingRepo constructs a BookingRepo.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, booking_ref, guest_name, guest_phone, guest_email,
	reservation_date, reservation_time, number_guests, occasion, special_requests,
	booking_timestamp, gateway_order_id, gateway_payment_id, gateway_status,
	gateway_response, booking_fee_status, booking_status, created_at, updated_at`

// pendingGuard restricts a status transition to rows that have not reached a
// terminal state.  Every write that moves a booking out of Pending goes
// through it so that concurrent confirmations of the same order apply once.
const pendingGuard = `(booking_status IS NULL OR booking_status = 'Pending')`

// Create inserts a new booking with Pending/Pending status and sets b.ID.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO bookings
		(booking_ref, guest_name, guest_phone, guest_email, reservation_date, reservation_time,
		 number_guests, occasion, special_requests, booking_timestamp, booking_fee_status, booking_status)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.BookingRef, b.GuestName, b.GuestPhone, b.GuestEmail,
		b.ReservationDate.Format("2006-01-02"), b.ReservationTime, b.NumberGuests,
		nullable(b.Occasion), nullable(b.SpecialRequests), b.BookingTimestamp.UTC(),
		model.FeePending, model.StatusPending)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.BookingFeeStatus = model.FeePending
	b.BookingStatus = model.StatusPending
	return nil
}

// AttachOrder records the gateway order id on a booking that has none yet.
// It returns ErrBookingNotFound when the reference is unknown and
// ErrConflict when the booking already carries a different order.
func (r *BookingRepo) AttachOrder(ctx context.Context, bookingRef, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET gateway_order_id=? WHERE booking_ref=? AND gateway_order_id IS NULL AND `+pendingGuard,
		orderID, bookingRef)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	b, err := r.GetByRef(ctx, bookingRef)
	if err != nil {
		return err
	}
	if b.GatewayOrderID == orderID {
		return nil
	}
	return ErrConflict
}

// GetByRef loads a booking by its internal reference.
func (r *BookingRepo) GetByRef(ctx context.Context, bookingRef string) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE booking_ref=? LIMIT 1", bookingRef)
	return scanBooking(row)
}

// GetByOrderID loads the booking correlated with a gateway order.
func (r *BookingRepo) GetByOrderID(ctx context.Context, orderID string) (model.Booking, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE gateway_order_id=? LIMIT 1", orderID)
	return scanBooking(row)
}

// ConfirmIfPending marks the booking for out.OrderID as Confirmed/Paid if,
// and only if, it is still Pending.  The number of rows changed (0 or 1) is
// returned; 0 means another confirmation or a failure got there first, or
// the order is unknown.
func (r *BookingRepo) ConfirmIfPending(ctx context.Context, out model.PaymentOutcome) (int64, error) {
	return r.transition(ctx, out, model.StatusConfirmed, model.FeePaid)
}

// FailIfPending marks the booking for out.OrderID as Payment Failed/Failed
// if it is still Pending.  A Confirmed booking is never downgraded.
func (r *BookingRepo) FailIfPending(ctx context.Context, out model.PaymentOutcome) (int64, error) {
	return r.transition(ctx, out, model.StatusPaymentFailed, model.FeeFailed)
}

func (r *BookingRepo) transition(ctx context.Context, out model.PaymentOutcome, status, fee string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings
		SET gateway_payment_id=?, gateway_status=?, gateway_response=?, booking_fee_status=?, booking_status=?
		WHERE gateway_order_id=? AND `+pendingGuard,
		out.PaymentID, out.GatewayStatus, out.RawResponse, fee, status, out.OrderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByDate returns the bookings for one reservation date ordered by time slot.
func (r *BookingRepo) ListByDate(ctx context.Context, date time.Time) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE reservation_date=? ORDER BY reservation_time, id",
		date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	var occasion, requests, status sql.NullString
	var orderID, paymentID, gwStatus, gwRaw sql.NullString
	err := s.Scan(&b.ID, &b.BookingRef, &b.GuestName, &b.GuestPhone, &b.GuestEmail,
		&b.ReservationDate, &b.ReservationTime, &b.NumberGuests, &occasion, &requests,
		&b.BookingTimestamp, &orderID, &paymentID, &gwStatus,
		&gwRaw, &b.BookingFeeStatus, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	if occasion.Valid {
		b.Occasion = &occasion.String
	}
	if requests.Valid {
		b.SpecialRequests = &requests.String
	}
	b.GatewayOrderID = orderID.String
	b.GatewayPaymentID = paymentID.String
	b.GatewayStatus = gwStatus.String
	b.GatewayResponse = gwRaw.String
	b.BookingStatus = model.StatusPending
	if status.Valid && status.String != "" {
		b.BookingStatus = status.String
	}
	return b, nil
}

// nullable maps a nil or blank optional field to SQL NULL.
func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// isDuplicate reports a MySQL unique key violation (error 1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
