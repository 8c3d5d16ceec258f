package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/bookabot/internal/model"
)

// ErrSlotUnavailable is returned when an insert would overlap an existing
// pending or confirmed appointment.
var ErrSlotUnavailable = errors.New("time slot unavailable")

// All repository interfaces in one file
type (
	// CustomerRepository is the customer directory keyed by phone number.
	CustomerRepository interface {
		GetByPhone(ctx context.Context, phone string) (*model.Customer, error)
		// GetOrCreate returns the existing customer for phone, creating one
		// with the given display name if unseen. Safe under concurrent calls
		// for the same phone.
		GetOrCreate(ctx context.Context, phone, name string) (*model.Customer, error)
	}

	// ServiceRepository exposes the read-only service catalog.
	ServiceRepository interface {
		List(ctx context.Context) ([]*model.Service, error)
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// ListBlockingForDate returns pending and confirmed appointments whose
		// interval falls on the given calendar day, ordered by start time.
		ListBlockingForDate(ctx context.Context, date time.Time) ([]*model.Appointment, error)
		// CreateIfFree inserts the appointment only if [StartTime, EndTime)
		// overlaps no pending or confirmed appointment. Check and insert run
		// in one transaction; returns ErrSlotUnavailable on conflict.
		CreateIfFree(ctx context.Context, appointment *model.Appointment) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		SetConfirmationMessageID(ctx context.Context, id uuid.UUID, messageID string) error
	}

	// MessageLogRepository is the append-only message audit trail.
	MessageLogRepository interface {
		Append(ctx context.Context, entry *model.MessageLogEntry) error
	}
)
