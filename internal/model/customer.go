package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is identified externally by the WhatsApp phone number and
// internally by a stable generated ID.
type Customer struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	Name        string    `db:"name" json:"name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
