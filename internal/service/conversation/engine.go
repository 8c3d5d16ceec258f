// Package conversation drives the booking dialogue. Each inbound event is
// applied to the customer's state under that customer's lock, so a customer's
// messages are processed strictly in order while unrelated customers proceed
// in parallel.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/bookabot/internal/messenger"
	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/service/booking"
	"github.com/jwalitptl/bookabot/internal/service/catalog"
	"github.com/jwalitptl/bookabot/internal/service/scheduling"
	apperrors "github.com/jwalitptl/bookabot/pkg/errors"
	"github.com/jwalitptl/bookabot/pkg/metrics"
)

const (
	msgWelcome         = "Hello! Welcome to our appointment booking service. How can I help you?"
	msgMainMenu        = "How can I help you today?"
	msgNoServices      = "Sorry, no services are currently available."
	msgSelectService   = "Please select a service:"
	msgViewComingSoon  = "This feature is coming soon! For now, please contact us directly to view your appointments."
	msgHelp            = "Please type your question and we will get back to you, or type 'hi' to see the menu again."
	msgServiceNotFound = "Sorry, I couldn't find that service. Please try again or type 'cancel' to start over."
	msgInvalidService  = "Invalid service selected. Please try again."
	msgInvalidDate     = "Invalid date format. Please use YYYY-MM-DD."
	msgPastDate        = "You cannot book an appointment in the past. Please provide a future date (YYYY-MM-DD):"
	msgNoSlots         = "No slots available for that date. Please try another date or type 'cancel' to start over."
	msgChooseSlot      = "Choose a time slot:"
	msgLostService     = "Oops, something went wrong with the service selection. Please start over."
	msgSlotTaken       = "Sorry, that time slot is no longer available or there was an issue booking. Please try another time or date."
	msgAnythingElse    = "Is there anything else I can assist you with?"
	msgCancelled       = "Okay, booking cancelled. How else can I help you?"
	msgUnknown         = "I'm not sure how to respond to that. Please type 'hi' to start over or 'cancel' to stop."
	msgGenericFailure  = "There was an error processing your request. Please try again or type 'cancel'."
)

const (
	buttonBookAppointment  = "book_appointment"
	buttonViewAppointments = "view_appointments"
	buttonGetHelp          = "get_help"
)

const dateLayout = "2006-01-02"

// Engine applies inbound events to conversation state and replies through the
// messenger. It owns no persistence of its own; bookings go through the
// booking service and dialogue state lives in the Store.
type Engine struct {
	states    *Store
	catalog   *catalog.Service
	scheduler *scheduling.Service
	booker    *booking.Service
	sender    messenger.Messenger
	metrics   *metrics.Metrics

	now func() time.Time
}

func NewEngine(states *Store, cat *catalog.Service, scheduler *scheduling.Service, booker *booking.Service, sender messenger.Messenger, m *metrics.Metrics) *Engine {
	return &Engine{
		states:    states,
		catalog:   cat,
		scheduler: scheduler,
		booker:    booker,
		sender:    sender,
		metrics:   m,
		now:       time.Now,
	}
}

// HandleEvent processes one inbound event for the customer it came from.
// The call serializes on the customer's phone number.
func (e *Engine) HandleEvent(ctx context.Context, customer *model.Customer, event *model.InboundEvent) {
	if e.metrics != nil {
		e.metrics.EventsProcessed.WithLabelValues(string(event.Type)).Inc()
	}

	e.states.Do(event.From, func(st *State) {
		switch event.Type {
		case model.EventText:
			e.handleText(ctx, customer, event, st)
		case model.EventButtonReply:
			e.handleButton(ctx, event, st)
		case model.EventListReply:
			e.handleList(ctx, customer, event, st)
		default:
			e.sendText(ctx, event.From, msgUnknown)
		}
	})
}

func (e *Engine) handleText(ctx context.Context, customer *model.Customer, event *model.InboundEvent, st *State) {
	body := strings.ToLower(strings.TrimSpace(event.Text))

	switch {
	case containsAny(body, "hello", "hi", "start"):
		e.sendText(ctx, event.From, msgWelcome)
		e.sendMainMenu(ctx, event.From)
		st.Reset()
		st.Step = StepMainMenu

	// Cancel wins over every step so a customer is never trapped mid-flow.
	case strings.Contains(body, "cancel"):
		e.sendText(ctx, event.From, msgCancelled)
		e.sendMainMenu(ctx, event.From)
		st.Reset()

	case st.Step == StepSelectServiceTextInput:
		e.handleServiceNameInput(ctx, event, st)

	case st.Step == StepSelectDate:
		e.handleDateInput(ctx, customer, event, st)

	default:
		e.sendText(ctx, event.From, msgUnknown)
		e.sendMainMenu(ctx, event.From)
		st.Reset()
	}
}

func (e *Engine) handleButton(ctx context.Context, event *model.InboundEvent, st *State) {
	switch event.ReplyID {
	case buttonBookAppointment:
		e.startServiceSelection(ctx, event.From, st)

	case buttonViewAppointments:
		e.sendText(ctx, event.From, msgViewComingSoon)
		e.sendMainMenu(ctx, event.From)
		st.Reset()

	case buttonGetHelp:
		e.sendText(ctx, event.From, msgHelp)
		e.sendMainMenu(ctx, event.From)
		st.Reset()

	default:
		e.sendText(ctx, event.From, msgUnknown)
		e.sendMainMenu(ctx, event.From)
		st.Reset()
	}
}

func (e *Engine) handleList(ctx context.Context, customer *model.Customer, event *model.InboundEvent, st *State) {
	switch st.Step {
	case StepSelectService:
		e.handleServiceSelection(ctx, event, st)
	case StepSelectTime:
		e.handleSlotSelection(ctx, customer, event, st)
	default:
		e.sendText(ctx, event.From, msgUnknown)
		e.sendMainMenu(ctx, event.From)
		st.Reset()
	}
}

func (e *Engine) startServiceSelection(ctx context.Context, to string, st *State) {
	services, err := e.catalog.ListServices(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load service catalog")
		e.failAndReset(ctx, to, st)
		return
	}
	if len(services) == 0 {
		e.sendText(ctx, to, msgNoServices)
		e.sendMainMenu(ctx, to)
		st.Reset()
		return
	}

	items := make([]messenger.ListItem, 0, len(services))
	for _, svc := range services {
		items = append(items, messenger.ListItem{ID: svc.ID.String(), Title: svc.Name})
	}

	if _, err := e.sendList(ctx, to, msgSelectService, "Our Services", items); err != nil {
		// Customer never saw the list; stay where we are.
		return
	}
	st.Reset()
	st.Step = StepSelectService
}

func (e *Engine) handleServiceSelection(ctx context.Context, event *model.InboundEvent, st *State) {
	svc, err := e.catalog.GetService(ctx, event.ReplyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			e.sendText(ctx, event.From, msgInvalidService)
			e.sendMainMenu(ctx, event.From)
			st.Reset()
			return
		}
		log.Error().Err(err).Str("service_id", event.ReplyID).Msg("failed to resolve service")
		e.failAndReset(ctx, event.From, st)
		return
	}

	st.Reset()
	st.Step = StepSelectDate
	st.ServiceID = svc.ID
	st.ServiceName = svc.Name
	st.DurationMinutes = svc.DurationMinutes

	e.sendText(ctx, event.From, fmt.Sprintf(
		"You've selected %s. Now, please enter the desired date for your appointment in YYYY-MM-DD format (e.g., 2026-09-20).", svc.Name))
}

// handleServiceNameInput matches a typed service name against the catalog.
// Reached only from StepSelectServiceTextInput.
func (e *Engine) handleServiceNameInput(ctx context.Context, event *model.InboundEvent, st *State) {
	services, err := e.catalog.ListServices(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load service catalog")
		e.failAndReset(ctx, event.From, st)
		return
	}

	typed := strings.ToLower(strings.TrimSpace(event.Text))
	for _, svc := range services {
		if strings.ToLower(svc.Name) != typed {
			continue
		}
		st.Reset()
		st.Step = StepSelectDate
		st.ServiceID = svc.ID
		st.ServiceName = svc.Name
		st.DurationMinutes = svc.DurationMinutes
		e.sendText(ctx, event.From, fmt.Sprintf(
			"Great! You selected %s. Please provide the date you'd like to book (YYYY-MM-DD):", svc.Name))
		return
	}

	e.sendText(ctx, event.From, msgServiceNotFound)
}

func (e *Engine) handleDateInput(ctx context.Context, customer *model.Customer, event *model.InboundEvent, st *State) {
	loc := e.scheduler.Location()

	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(event.Text), loc)
	if err != nil {
		e.sendText(ctx, event.From, msgInvalidDate)
		return
	}
	if date.Before(e.today()) {
		e.sendText(ctx, event.From, msgPastDate)
		return
	}

	slots, err := e.scheduler.AvailableSlots(ctx, st.DurationMinutes, date)
	if err != nil {
		log.Error().Err(err).
			Str("customer_id", customer.ID.String()).
			Str("date", date.Format(dateLayout)).
			Msg("failed to compute available slots")
		e.failAndReset(ctx, event.From, st)
		return
	}
	if len(slots) == 0 {
		e.sendText(ctx, event.From, msgNoSlots)
		return
	}
	if e.metrics != nil {
		e.metrics.SlotsOffered.Observe(float64(len(slots)))
	}

	items := make([]messenger.ListItem, 0, len(slots))
	for _, slot := range slots {
		items = append(items, messenger.ListItem{
			ID:    EncodeSlotToken(slot.Start),
			Title: slot.Start.Format("15:04"),
		})
	}

	e.sendText(ctx, event.From, fmt.Sprintf("Available slots for %s on %s:", st.ServiceName, date.Format(dateLayout)))
	if _, err := e.sendList(ctx, event.From, msgChooseSlot, "Available Times", items); err != nil {
		// Offer never reached the customer; keep waiting for a date.
		return
	}

	st.SelectedDate = date
	st.Step = StepSelectTime
}

func (e *Engine) handleSlotSelection(ctx context.Context, customer *model.Customer, event *model.InboundEvent, st *State) {
	if !st.hasService() {
		e.sendText(ctx, event.From, msgLostService)
		e.sendMainMenu(ctx, event.From)
		st.Reset()
		return
	}

	start, err := ParseSlotToken(event.ReplyID, e.scheduler.Location())
	if err != nil {
		log.Warn().Err(err).Str("reply_id", event.ReplyID).Msg("rejecting unparseable slot selection")
		e.failAndReset(ctx, event.From, st)
		return
	}

	appointment, err := e.booker.Book(ctx, customer.ID, st.ServiceID, start, st.DurationMinutes, customer.PhoneNumber)
	if err != nil {
		if errors.Is(err, booking.ErrSlotUnavailable) {
			e.sendText(ctx, event.From, msgSlotTaken)
			e.sendMainMenu(ctx, event.From)
			st.Reset()
			return
		}
		log.Error().Err(err).
			Str("customer_id", customer.ID.String()).
			Str("service_id", st.ServiceID.String()).
			Time("start", start).
			Msg("booking failed")
		e.failAndReset(ctx, event.From, st)
		return
	}

	confirmation := fmt.Sprintf("Your %s appointment is confirmed for %s. We look forward to seeing you!",
		st.ServiceName, start.Format("2006-01-02 15:04 MST"))
	if msgID := e.sendText(ctx, event.From, confirmation); msgID != "" {
		if err := e.booker.AttachConfirmationMessage(ctx, appointment.ID, msgID); err != nil {
			log.Warn().Err(err).
				Str("appointment_id", appointment.ID.String()).
				Msg("failed to record confirmation message id")
		}
	}

	e.sendText(ctx, event.From, msgAnythingElse)
	e.sendMainMenu(ctx, event.From)
	st.Reset()
}

// failAndReset reports a processing failure and returns the customer to a
// clean menu rather than leaving them stuck in a broken step.
func (e *Engine) failAndReset(ctx context.Context, to string, st *State) {
	e.sendText(ctx, to, msgGenericFailure)
	e.sendMainMenu(ctx, to)
	st.Reset()
}

func (e *Engine) sendMainMenu(ctx context.Context, to string) {
	buttons := []messenger.Button{
		{ID: buttonBookAppointment, Title: "Book Appointment"},
		{ID: buttonViewAppointments, Title: "View My Appointments"},
		{ID: buttonGetHelp, Title: "Get Help"},
	}
	if _, err := e.sender.SendButtons(ctx, to, msgMainMenu, buttons); err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send main menu")
		if e.metrics != nil {
			e.metrics.MessageSendFails.Inc()
		}
		return
	}
	if e.metrics != nil {
		e.metrics.MessagesSent.WithLabelValues("buttons").Inc()
	}
}

// sendText delivers a plain message, returning the provider message id or ""
// on failure.
func (e *Engine) sendText(ctx context.Context, to, body string) string {
	id, err := e.sender.SendText(ctx, to, body)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send message")
		if e.metrics != nil {
			e.metrics.MessageSendFails.Inc()
		}
		return ""
	}
	if e.metrics != nil {
		e.metrics.MessagesSent.WithLabelValues("text").Inc()
	}
	return id
}

func (e *Engine) sendList(ctx context.Context, to, header, label string, items []messenger.ListItem) (string, error) {
	id, err := e.sender.SendList(ctx, to, header, label, items)
	if err != nil {
		log.Error().Err(err).Str("to", to).Msg("failed to send list message")
		if e.metrics != nil {
			e.metrics.MessageSendFails.Inc()
		}
		return "", err
	}
	if e.metrics != nil {
		e.metrics.MessagesSent.WithLabelValues("list").Inc()
	}
	return id, nil
}

func (e *Engine) today() time.Time {
	now := e.now().In(e.scheduler.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
