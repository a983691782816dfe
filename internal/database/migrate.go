package database

import (
	"context"
	"database/sql"
	"fmt"
)

// bookings.gateway_order_id is UNIQUE: the confirmation paths address a row
// by order id and the conditional status update relies on it matching at
// most one row.
const createBookings = `CREATE TABLE IF NOT EXISTS bookings (
	id                 BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	booking_ref        VARCHAR(64)  NOT NULL,
	guest_name         VARCHAR(255) NOT NULL,
	guest_phone        VARCHAR(20)  NOT NULL,
	guest_email        VARCHAR(255) NOT NULL,
	reservation_date   DATE         NOT NULL,
	reservation_time   CHAR(5)      NOT NULL,
	number_guests      TINYINT UNSIGNED NOT NULL,
	occasion           VARCHAR(100) NULL,
	special_requests   TEXT         NULL,
	booking_timestamp  DATETIME     NOT NULL,
	gateway_order_id   VARCHAR(64)  NULL,
	gateway_payment_id VARCHAR(64)  NULL,
	gateway_status     VARCHAR(32)  NULL,
	gateway_response   TEXT         NULL,
	booking_fee_status VARCHAR(16)  NOT NULL DEFAULT 'Pending',
	booking_status     VARCHAR(32)  NULL DEFAULT 'Pending',
	created_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at         DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_bookings_ref (booking_ref),
	UNIQUE KEY uq_bookings_order (gateway_order_id),
	KEY idx_bookings_date (reservation_date, reservation_time)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createUsers = `CREATE TABLE IF NOT EXISTS users (
	id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	name          VARCHAR(255) NOT NULL,
	email         VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
	created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createUserAddresses = `CREATE TABLE IF NOT EXISTS user_addresses (
	id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	user_id        BIGINT UNSIGNED NOT NULL,
	address_type   VARCHAR(20)  NOT NULL,
	full_name      VARCHAR(255) NOT NULL,
	flat_house_no  VARCHAR(100) NOT NULL,
	building_name  VARCHAR(255) NOT NULL,
	street_area    VARCHAR(255) NOT NULL,
	city           VARCHAR(100) NOT NULL,
	state          VARCHAR(100) NOT NULL,
	pincode        CHAR(6)      NOT NULL,
	landmark       VARCHAR(255) NULL,
	contact_number VARCHAR(20)  NOT NULL,
	created_at     DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_user_addresses_user (user_id),
	CONSTRAINT fk_user_addresses_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const createContactMessages = `CREATE TABLE IF NOT EXISTS contact_messages (
	id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	name       VARCHAR(255) NOT NULL,
	email      VARCHAR(255) NOT NULL,
	subject    VARCHAR(255) NOT NULL,
	message    TEXT         NOT NULL,
	created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Migrate creates the tables the service needs if they do not exist yet.
// Order matters: user_addresses references users.
func Migrate(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		name string
		stmt string
	}{
		{"bookings", createBookings},
		{"users", createUsers},
		{"user_addresses", createUserAddresses},
		{"contact_messages", createContactMessages},
	}
	for _, s := range steps {
		if _, err := db.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.name, err)
		}
	}
	return nil
}
