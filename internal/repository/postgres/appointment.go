package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
)

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, customer_id, service_id, start_time, end_time, status,
			   conversation_ref, confirmation_message_id, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListBlockingForDate(ctx context.Context, date time.Time) ([]*model.Appointment, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT id, customer_id, service_id, start_time, end_time, status,
			   conversation_ref, confirmation_message_id, created_at, updated_at
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2
		AND status IN ('pending', 'confirmed')
		ORDER BY start_time ASC
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("failed to list appointments for date: %w", err)
	}
	return appointments, nil
}

// CreateIfFree re-checks the overlap predicate and inserts in one
// transaction. An advisory lock on the calendar day serializes writers for
// that day; readers and writers on other days are unaffected.
func (r *appointmentRepository) CreateIfFree(ctx context.Context, appointment *model.Appointment) error {
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		lockKey := appointment.StartTime.Unix() / 86400
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, advisoryLockClass, lockKey); err != nil {
			return fmt.Errorf("failed to acquire booking lock: %w", err)
		}

		// Half-open overlap test: [a,b) and [c,d) overlap iff a < d && c < b.
		var conflict bool
		overlapQuery := `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE status IN ('pending', 'confirmed')
				AND start_time < $2 AND $1 < end_time
			)
		`
		if err := tx.GetContext(ctx, &conflict, overlapQuery, appointment.StartTime, appointment.EndTime); err != nil {
			return fmt.Errorf("failed to check for conflicts: %w", err)
		}
		if conflict {
			return repository.ErrSlotUnavailable
		}

		insertQuery := `
			INSERT INTO appointments (
				id, customer_id, service_id, start_time, end_time,
				status, conversation_ref, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := tx.ExecContext(ctx, insertQuery,
			appointment.ID,
			appointment.CustomerID,
			appointment.ServiceID,
			appointment.StartTime,
			appointment.EndTime,
			appointment.Status,
			appointment.ConversationRef,
			appointment.CreatedAt,
			appointment.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		// The no_overlap exclusion constraint backstops the in-tx check.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23P01" {
			return repository.ErrSlotUnavailable
		}
		return err
	}
	return nil
}

// advisoryLockClass namespaces this app's advisory locks.
const advisoryLockClass = 27031

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (r *appointmentRepository) SetConfirmationMessageID(ctx context.Context, id uuid.UUID, messageID string) error {
	query := `
		UPDATE appointments
		SET confirmation_message_id = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, messageID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set confirmation message id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}
