// Package booking commits appointments. The overlap re-check and the insert
// run in one transaction so two customers racing for the same slot cannot
// both win.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
	"github.com/jwalitptl/bookabot/pkg/messaging"
	"github.com/jwalitptl/bookabot/pkg/metrics"
)

// ErrSlotUnavailable is the expected, user-facing conflict condition.
// Callers re-prompt; they must not retry the same slot automatically.
var ErrSlotUnavailable = repository.ErrSlotUnavailable

type Service struct {
	appointments repository.AppointmentRepository
	services     repository.ServiceRepository
	broker       messaging.Broker
	metrics      *metrics.Metrics
}

func NewService(appointments repository.AppointmentRepository, services repository.ServiceRepository, broker messaging.Broker, m *metrics.Metrics) *Service {
	return &Service{
		appointments: appointments,
		services:     services,
		broker:       broker,
		metrics:      m,
	}
}

// Book creates a confirmed appointment for [start, start+duration), or
// fails with ErrSlotUnavailable when the interval is already taken.
func (s *Service) Book(ctx context.Context, customerID, serviceID uuid.UUID, start time.Time, durationMinutes int, conversationRef string) (*model.Appointment, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("invalid duration: %d minutes", durationMinutes)
	}
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer ID is required")
	}
	if serviceID == uuid.Nil {
		return nil, fmt.Errorf("service ID is required")
	}

	appointment := &model.Appointment{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ServiceID:       serviceID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(durationMinutes) * time.Minute),
		Status:          model.AppointmentStatusConfirmed,
		ConversationRef: conversationRef,
	}

	if err := s.appointments.CreateIfFree(ctx, appointment); err != nil {
		if errors.Is(err, repository.ErrSlotUnavailable) {
			if s.metrics != nil {
				s.metrics.BookingConflicts.Inc()
			}
			return nil, ErrSlotUnavailable
		}
		if s.metrics != nil {
			s.metrics.BookingFailures.Inc()
		}
		return nil, fmt.Errorf("failed to book appointment: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BookingsConfirmed.Inc()
	}
	s.publishCreated(ctx, appointment)

	return appointment, nil
}

// Cancel marks an appointment cancelled, releasing its interval for
// rebooking. Already-cancelled appointments cancel cleanly again.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	if err := s.appointments.UpdateStatus(ctx, appointmentID, model.AppointmentStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return nil
}

// AttachConfirmationMessage records the provider id of the confirmation
// message sent for an appointment.
func (s *Service) AttachConfirmationMessage(ctx context.Context, appointmentID uuid.UUID, messageID string) error {
	if err := s.appointments.SetConfirmationMessageID(ctx, appointmentID, messageID); err != nil {
		return fmt.Errorf("failed to attach confirmation message: %w", err)
	}
	return nil
}

// publishCreated notifies downstream consumers. Best effort: the booking is
// already durable, so publish failures are logged and swallowed.
func (s *Service) publishCreated(ctx context.Context, appointment *model.Appointment) {
	if s.broker == nil {
		return
	}

	event := &model.BookingCreatedEvent{
		AppointmentID: appointment.ID,
		CustomerID:    appointment.CustomerID,
		ServiceID:     appointment.ServiceID,
		StartTime:     appointment.StartTime,
		EndTime:       appointment.EndTime,
	}
	if svc, err := s.services.Get(ctx, appointment.ServiceID); err == nil {
		event.ServiceName = svc.Name
	}

	if err := s.broker.Publish(ctx, messaging.ChannelAppointmentCreated, event); err != nil {
		log.Warn().Err(err).
			Str("appointment_id", appointment.ID.String()).
			Msg("failed to publish booking event")
	}
}
