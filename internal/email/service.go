package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/model"
)

type Service interface {
	SendBookingNotification(ctx context.Context, event *model.BookingCreatedEvent) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewService(cfg config.NotificationConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.From,
		to:     cfg.BusinessTo,
	}
}

func (s *smtpService) SendBookingNotification(ctx context.Context, event *model.BookingCreatedEvent) error {
	serviceName := event.ServiceName
	if serviceName == "" {
		serviceName = event.ServiceID.String()
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("New booking: %s on %s", serviceName, event.StartTime.Format("2006-01-02")))
	m.SetBody("text/plain", fmt.Sprintf(
		"A new appointment was booked.\n\nService: %s\nStart: %s\nEnd: %s\nAppointment ID: %s\nCustomer ID: %s\n",
		serviceName,
		event.StartTime.Format("2006-01-02 15:04"),
		event.EndTime.Format("2006-01-02 15:04"),
		event.AppointmentID,
		event.CustomerID,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send booking notification: %w", err)
	}
	return nil
}
