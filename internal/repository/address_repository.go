package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

// AddressRepo stores saved addresses in `user_addresses`.
type AddressRepo struct{ db *sql.DB }

func NewAddressRepo(db *sql.DB) *AddressRepo { return &AddressRepo{db: db} }

// Create inserts an address for a.UserID and sets a.ID.
func (r *AddressRepo) Create(ctx context.Context, a *model.Address) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO user_addresses
		(user_id, address_type, full_name, flat_house_no, building_name, street_area,
		 city, state, pincode, landmark, contact_number)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.UserID, a.AddressType, a.FullName, a.FlatHouseNo, a.BuildingName, a.StreetArea,
		a.City, a.State, a.Pincode, nullable(a.Landmark), a.ContactNumber)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListByUser returns the caller's addresses, newest first.
func (r *AddressRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Address, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, address_type, full_name, flat_house_no,
		building_name, street_area, city, state, pincode, landmark, contact_number, created_at
		FROM user_addresses WHERE user_id=? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Address{}
	for rows.Next() {
		var a model.Address
		var landmark sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.AddressType, &a.FullName, &a.FlatHouseNo,
			&a.BuildingName, &a.StreetArea, &a.City, &a.State, &a.Pincode, &landmark,
			&a.ContactNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		if landmark.Valid {
			a.Landmark = &landmark.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
