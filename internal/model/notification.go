package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingCreatedEvent is published to the broker after a successful booking
// and consumed by the notification worker.
type BookingCreatedEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	ServiceName   string    `json:"service_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
