package model

import "time"

// Account roles stored in users.role.
const (
	RoleCustomer = "CUSTOMER"
	RoleStaff    = "STAFF"
)

// User represents a row of the `users` table.  Only the bcrypt hash of the
// password is stored.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email (unique, lower case)
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Address is a saved delivery address (`user_addresses`).
type Address struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"-"`
	AddressType   string    `json:"addressType"` // Home | Work | Other
	FullName      string    `json:"fullName"`
	FlatHouseNo   string    `json:"flatHouseNo"`
	BuildingName  string    `json:"buildingName"`
	StreetArea    string    `json:"streetArea"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	Landmark      *string   `json:"landmark,omitempty"`
	ContactNumber string    `json:"contactNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ContactMessage is a message left through the contact form.
type ContactMessage struct {
	ID        uint64
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}
