package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/messenger"
	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
	"github.com/jwalitptl/bookabot/internal/service/booking"
	"github.com/jwalitptl/bookabot/internal/service/catalog"
	"github.com/jwalitptl/bookabot/internal/service/scheduling"
)

type fakeServiceRepo struct {
	services []*model.Service
}

func (f *fakeServiceRepo) List(ctx context.Context) ([]*model.Service, error) {
	return f.services, nil
}

func (f *fakeServiceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	for _, svc := range f.services {
		if svc.ID == id {
			return svc, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memAppointmentRepo struct {
	repository.AppointmentRepository

	mu           sync.Mutex
	appointments []*model.Appointment
	confirmedMsg map[uuid.UUID]string
}

func newMemAppointmentRepo() *memAppointmentRepo {
	return &memAppointmentRepo{confirmedMsg: make(map[uuid.UUID]string)}
}

func (r *memAppointmentRepo) ListBlockingForDate(ctx context.Context, date time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.appointments {
		if a.Status != model.AppointmentStatusCancelled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAppointmentRepo) CreateIfFree(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appointments {
		if existing.Status == model.AppointmentStatusCancelled {
			continue
		}
		if appointment.StartTime.Before(existing.EndTime) && existing.StartTime.Before(appointment.EndTime) {
			return repository.ErrSlotUnavailable
		}
	}
	stored := *appointment
	r.appointments = append(r.appointments, &stored)
	return nil
}

func (r *memAppointmentRepo) SetConfirmationMessageID(ctx context.Context, id uuid.UUID, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmedMsg[id] = messageID
	return nil
}

type sentMessage struct {
	kind    string
	to      string
	body    string
	buttons []messenger.Button
	items   []messenger.ListItem
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failAll bool
	seq     int
}

func (f *fakeMessenger) record(msg sentMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", assert.AnError
	}
	f.seq++
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("wamid.TEST%03d", f.seq), nil
}

func (f *fakeMessenger) SendText(ctx context.Context, to, body string) (string, error) {
	return f.record(sentMessage{kind: "text", to: to, body: body})
}

func (f *fakeMessenger) SendButtons(ctx context.Context, to, body string, buttons []messenger.Button) (string, error) {
	return f.record(sentMessage{kind: "buttons", to: to, body: body, buttons: buttons})
}

func (f *fakeMessenger) SendList(ctx context.Context, to, header, buttonLabel string, items []messenger.ListItem) (string, error) {
	return f.record(sentMessage{kind: "list", to: to, body: header, items: items})
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeMessenger) lastText() string {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].kind == "text" {
			return msgs[i].body
		}
	}
	return ""
}

func (f *fakeMessenger) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type testHarness struct {
	engine    *Engine
	sender    *fakeMessenger
	services  *fakeServiceRepo
	appts     *memAppointmentRepo
	customer  *model.Customer
	haircutID uuid.UUID
	loc       *time.Location
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	haircut := &model.Service{ID: uuid.New(), Name: "Haircut", DurationMinutes: 60, Price: 150}
	trim := &model.Service{ID: uuid.New(), Name: "Beard Trim", DurationMinutes: 30, Price: 80}
	serviceRepo := &fakeServiceRepo{services: []*model.Service{haircut, trim}}
	apptRepo := newMemAppointmentRepo()

	schedulingSvc, err := scheduling.NewService(apptRepo, config.BookingConfig{
		OpenTime:  "09:00",
		CloseTime: "17:00",
		Timezone:  "Africa/Johannesburg",
	})
	require.NoError(t, err)

	bookingSvc := booking.NewService(apptRepo, serviceRepo, nil, nil)
	sender := &fakeMessenger{}

	engine := NewEngine(NewStore(), catalog.NewService(serviceRepo), schedulingSvc, bookingSvc, sender, nil)
	engine.now = func() time.Time {
		return time.Date(2026, 9, 1, 8, 0, 0, 0, schedulingSvc.Location())
	}

	return &testHarness{
		engine:   engine,
		sender:   sender,
		services: serviceRepo,
		appts:    apptRepo,
		customer: &model.Customer{
			ID:          uuid.New(),
			PhoneNumber: "27821234567",
			Name:        "Thandi",
		},
		haircutID: haircut.ID,
		loc:       schedulingSvc.Location(),
	}
}

func (h *testHarness) text(t *testing.T, body string) {
	t.Helper()
	h.engine.HandleEvent(context.Background(), h.customer, &model.InboundEvent{
		Type: model.EventText,
		From: h.customer.PhoneNumber,
		Text: body,
	})
}

func (h *testHarness) button(t *testing.T, replyID string) {
	t.Helper()
	h.engine.HandleEvent(context.Background(), h.customer, &model.InboundEvent{
		Type:    model.EventButtonReply,
		From:    h.customer.PhoneNumber,
		ReplyID: replyID,
	})
}

func (h *testHarness) list(t *testing.T, replyID string) {
	t.Helper()
	h.engine.HandleEvent(context.Background(), h.customer, &model.InboundEvent{
		Type:    model.EventListReply,
		From:    h.customer.PhoneNumber,
		ReplyID: replyID,
	})
}

func (h *testHarness) state() State {
	return h.engine.states.Peek(h.customer.PhoneNumber)
}

// driveToSlotList walks the happy path up to the point where time slots have
// been offered.
func (h *testHarness) driveToSlotList(t *testing.T, date string) {
	t.Helper()
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())
	h.text(t, date)
	require.Equal(t, StepSelectTime, h.state().Step)
}

func (h *testHarness) offeredSlotIDs() []string {
	var ids []string
	for _, msg := range h.sender.messages() {
		if msg.kind != "list" {
			continue
		}
		ids = ids[:0]
		for _, item := range msg.items {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func TestGreetingShowsMenu(t *testing.T) {
	h := newHarness(t)

	h.text(t, "hi")

	msgs := h.sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgWelcome, msgs[0].body)
	assert.Equal(t, "buttons", msgs[1].kind)
	require.Len(t, msgs[1].buttons, 3)
	assert.Equal(t, buttonBookAppointment, msgs[1].buttons[0].ID)
	assert.Equal(t, StepMainMenu, h.state().Step)
}

func TestGreetingKeywordsMatchAnywhere(t *testing.T) {
	for _, body := range []string{"Hello there", "HI", "please start over", "hi!"} {
		h := newHarness(t)
		h.text(t, body)
		assert.Equal(t, StepMainMenu, h.state().Step, "body %q", body)
	}
}

func TestBookButtonOffersServices(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.sender.clear()

	h.button(t, buttonBookAppointment)

	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "list", msgs[0].kind)
	require.Len(t, msgs[0].items, 2)
	assert.Equal(t, h.haircutID.String(), msgs[0].items[0].ID)
	assert.Equal(t, "Haircut", msgs[0].items[0].Title)
	assert.Equal(t, StepSelectService, h.state().Step)
}

func TestViewAppointmentsAndHelpResetToMenu(t *testing.T) {
	for _, id := range []string{buttonViewAppointments, buttonGetHelp} {
		h := newHarness(t)
		h.text(t, "hi")
		h.button(t, id)
		assert.Equal(t, StepNone, h.state().Step, "button %q", id)
	}
}

func TestServiceSelectionAsksForDate(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)

	h.list(t, h.haircutID.String())

	st := h.state()
	assert.Equal(t, StepSelectDate, st.Step)
	assert.Equal(t, h.haircutID, st.ServiceID)
	assert.Equal(t, "Haircut", st.ServiceName)
	assert.Equal(t, 60, st.DurationMinutes)
	assert.Contains(t, h.sender.lastText(), "You've selected Haircut")
}

func TestUnknownServiceSelectionResets(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)

	h.list(t, uuid.New().String())

	assert.Equal(t, StepNone, h.state().Step)
	msgs := h.sender.messages()
	assert.Equal(t, msgInvalidService, msgs[len(msgs)-2].body)
}

func TestDateEntryOffersSlots(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())
	h.sender.clear()

	h.text(t, "2026-09-15")

	msgs := h.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].body, "Available slots for Haircut on 2026-09-15")
	require.Equal(t, "list", msgs[1].kind)
	require.Len(t, msgs[1].items, 8)
	assert.Equal(t, "book_slot_2026-09-15 09:00", msgs[1].items[0].ID)
	assert.Equal(t, "09:00", msgs[1].items[0].Title)

	st := h.state()
	assert.Equal(t, StepSelectTime, st.Step)
	assert.Equal(t, time.Date(2026, 9, 15, 0, 0, 0, 0, h.loc), st.SelectedDate)
}

func TestInvalidDateKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())

	h.text(t, "next tuesday")

	assert.Equal(t, msgInvalidDate, h.sender.lastText())
	assert.Equal(t, StepSelectDate, h.state().Step)
}

func TestPastDateRejected(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())

	h.text(t, "2026-08-31")

	assert.Equal(t, msgPastDate, h.sender.lastText())
	assert.Equal(t, StepSelectDate, h.state().Step)
}

func TestTodayIsBookable(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())

	h.text(t, "2026-09-01")

	assert.Equal(t, StepSelectTime, h.state().Step)
}

func TestFullyBookedDateKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 9, 15, 0, 0, 0, 0, h.loc)
	h.appts.appointments = append(h.appts.appointments, &model.Appointment{
		ID:        uuid.New(),
		StartTime: day.Add(9 * time.Hour),
		EndTime:   day.Add(17 * time.Hour),
		Status:    model.AppointmentStatusConfirmed,
	})

	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())
	h.text(t, "2026-09-15")

	assert.Equal(t, msgNoSlots, h.sender.lastText())
	assert.Equal(t, StepSelectDate, h.state().Step)
}

func TestSlotSelectionBooksAndConfirms(t *testing.T) {
	h := newHarness(t)
	h.driveToSlotList(t, "2026-09-15")
	h.sender.clear()

	h.list(t, "book_slot_2026-09-15 10:00")

	msgs := h.sender.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].body, "Your Haircut appointment is confirmed for 2026-09-15 10:00")
	assert.Equal(t, msgAnythingElse, msgs[1].body)
	assert.Equal(t, "buttons", msgs[2].kind)
	assert.Equal(t, StepNone, h.state().Step)

	require.Len(t, h.appts.appointments, 1)
	booked := h.appts.appointments[0]
	assert.Equal(t, h.customer.ID, booked.CustomerID)
	assert.Equal(t, h.haircutID, booked.ServiceID)
	assert.Equal(t, time.Date(2026, 9, 15, 10, 0, 0, 0, h.loc), booked.StartTime)
	assert.Equal(t, time.Date(2026, 9, 15, 11, 0, 0, 0, h.loc), booked.EndTime)
	assert.Equal(t, model.AppointmentStatusConfirmed, booked.Status)
	assert.NotEmpty(t, h.appts.confirmedMsg[booked.ID])
}

func TestOfferedTokensRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.driveToSlotList(t, "2026-09-15")

	ids := h.offeredSlotIDs()
	require.NotEmpty(t, ids)
	for _, id := range ids {
		start, err := ParseSlotToken(id, h.loc)
		require.NoError(t, err)
		assert.Equal(t, id, EncodeSlotToken(start))
	}
}

func TestTakenSlotReportsUnavailable(t *testing.T) {
	h := newHarness(t)
	h.driveToSlotList(t, "2026-09-15")

	// Another customer grabs the slot between offer and selection.
	day := time.Date(2026, 9, 15, 0, 0, 0, 0, h.loc)
	require.NoError(t, h.appts.CreateIfFree(context.Background(), &model.Appointment{
		ID:        uuid.New(),
		StartTime: day.Add(10 * time.Hour),
		EndTime:   day.Add(11 * time.Hour),
		Status:    model.AppointmentStatusConfirmed,
	}))
	h.sender.clear()

	h.list(t, "book_slot_2026-09-15 10:00")

	msgs := h.sender.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, msgSlotTaken, msgs[0].body)
	assert.Equal(t, StepNone, h.state().Step)
	assert.Len(t, h.appts.appointments, 1)
}

func TestCancelledAppointmentFreesSlotForRebooking(t *testing.T) {
	h := newHarness(t)
	day := time.Date(2026, 9, 15, 0, 0, 0, 0, h.loc)
	h.appts.appointments = append(h.appts.appointments, &model.Appointment{
		ID:        uuid.New(),
		StartTime: day.Add(10 * time.Hour),
		EndTime:   day.Add(11 * time.Hour),
		Status:    model.AppointmentStatusCancelled,
	})

	h.driveToSlotList(t, "2026-09-15")
	h.list(t, "book_slot_2026-09-15 10:00")

	assert.Equal(t, StepNone, h.state().Step)
	assert.Len(t, h.appts.appointments, 2)
	assert.Equal(t, model.AppointmentStatusConfirmed, h.appts.appointments[1].Status)
}

func TestCancelResetsFromEveryStep(t *testing.T) {
	drive := map[string]func(h *testHarness){
		"main_menu": func(h *testHarness) {
			h.text(t, "hi")
		},
		"select_service": func(h *testHarness) {
			h.text(t, "hi")
			h.button(t, buttonBookAppointment)
		},
		"select_date": func(h *testHarness) {
			h.text(t, "hi")
			h.button(t, buttonBookAppointment)
			h.list(t, h.haircutID.String())
		},
		"select_time": func(h *testHarness) {
			h.driveToSlotList(t, "2026-09-15")
		},
	}

	for step, setup := range drive {
		h := newHarness(t)
		setup(h)
		h.sender.clear()

		h.text(t, "cancel")

		msgs := h.sender.messages()
		require.NotEmpty(t, msgs, "step %s", step)
		assert.Equal(t, msgCancelled, msgs[0].body, "step %s", step)
		assert.Equal(t, StepNone, h.state().Step, "step %s", step)
	}
}

func TestUnmatchedTextFallsBack(t *testing.T) {
	h := newHarness(t)

	h.text(t, "what do you sell")

	msgs := h.sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, msgUnknown, msgs[0].body)
	assert.Equal(t, "buttons", msgs[1].kind)
	assert.Equal(t, StepNone, h.state().Step)
}

func TestListReplyWithoutFlowFallsBack(t *testing.T) {
	h := newHarness(t)

	h.list(t, "book_slot_2026-09-15 10:00")

	assert.Equal(t, StepNone, h.state().Step)
	assert.Empty(t, h.appts.appointments)
}

func TestFailedSlotListSendDoesNotAdvance(t *testing.T) {
	h := newHarness(t)
	h.text(t, "hi")
	h.button(t, buttonBookAppointment)
	h.list(t, h.haircutID.String())

	h.sender.failAll = true
	h.text(t, "2026-09-15")
	h.sender.failAll = false

	// The customer never saw the offer, so a retry of the date must work.
	assert.Equal(t, StepSelectDate, h.state().Step)
	h.text(t, "2026-09-15")
	assert.Equal(t, StepSelectTime, h.state().Step)
}

func TestGreetingRestartsMidFlow(t *testing.T) {
	h := newHarness(t)
	h.driveToSlotList(t, "2026-09-15")

	h.text(t, "hello")

	st := h.state()
	assert.Equal(t, StepMainMenu, st.Step)
	assert.Equal(t, uuid.Nil, st.ServiceID)
}
