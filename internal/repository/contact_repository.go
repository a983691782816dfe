package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cocochutney-reservations/internal/model"
)

type ContactRepo struct{ db *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Create stores a contact form submission.
func (r *ContactRepo) Create(ctx context.Context, m *model.ContactMessage) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO contact_messages (name, email, subject, message) VALUES (?,?,?,?)",
		m.Name, m.Email, m.Subject, m.Message)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}
