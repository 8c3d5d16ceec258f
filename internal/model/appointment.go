package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment occupies the half-open interval [StartTime, EndTime). No two
// appointments with status pending or confirmed may overlap.
type Appointment struct {
	ID                    uuid.UUID         `db:"id" json:"id"`
	CustomerID            uuid.UUID         `db:"customer_id" json:"customer_id"`
	ServiceID             uuid.UUID         `db:"service_id" json:"service_id"`
	StartTime             time.Time         `db:"start_time" json:"start_time"`
	EndTime               time.Time         `db:"end_time" json:"end_time"`
	Status                AppointmentStatus `db:"status" json:"status"`
	ConversationRef       string            `db:"conversation_ref" json:"conversation_ref"`
	ConfirmationMessageID *string           `db:"confirmation_message_id" json:"confirmation_message_id,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// TimeSlot is a bookable interval offered to a customer.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
