package worker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/email"
	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/pkg/messaging"
)

// BookingNotifier consumes booking events from the broker and emails the
// business. Delivery is best effort; a lost notification never blocks or
// fails a booking.
type BookingNotifier struct {
	broker messaging.Broker
	email  email.Service
}

func NewBookingNotifier(broker messaging.Broker, emailSvc email.Service) *BookingNotifier {
	return &BookingNotifier{
		broker: broker,
		email:  emailSvc,
	}
}

func (w *BookingNotifier) Start(ctx context.Context) error {
	msgs, err := w.broker.Subscribe(ctx, messaging.ChannelAppointmentCreated)
	if err != nil {
		return err
	}

	for payload := range msgs {
		var event model.BookingCreatedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Warn().Err(err).Msg("dropping malformed booking event")
			continue
		}

		if err := w.email.SendBookingNotification(ctx, &event); err != nil {
			log.Error().Err(err).
				Str("appointment_id", event.AppointmentID.String()).
				Msg("failed to send booking notification")
		}
	}
	return nil
}
