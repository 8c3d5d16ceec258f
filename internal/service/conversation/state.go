package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step is a customer's current position in the booking dialogue.
type Step string

const (
	StepNone          Step = ""
	StepMainMenu      Step = "main_menu"
	StepSelectService Step = "select_service"
	StepSelectDate    Step = "select_date"
	StepSelectTime    Step = "select_time"

	// StepSelectServiceTextInput lets a customer type a service name instead
	// of picking from the list. No transition currently enters it; it is kept
	// for a future free-text entry point.
	StepSelectServiceTextInput Step = "select_service_text_input"
)

// State is the working memory of one customer's dialogue. It lives for the
// process lifetime only and is never persisted.
type State struct {
	Step            Step
	ServiceID       uuid.UUID
	ServiceName     string
	DurationMinutes int
	SelectedDate    time.Time
}

// Reset clears the dialogue back to no entry.
func (s *State) Reset() {
	*s = State{}
}

// hasService reports whether a service selection survived to this point.
// select_time requires it; the guard prevents a stuck mid-flow state.
func (s *State) hasService() bool {
	return s.ServiceID != uuid.Nil && s.DurationMinutes > 0
}

const slotTokenPrefix = "book_slot_"

const slotTokenLayout = "2006-01-02 15:04"

// EncodeSlotToken serializes a slot start for use as an interactive list id.
// The structured time is the source of truth; the string form exists only at
// the transport boundary.
func EncodeSlotToken(start time.Time) string {
	return slotTokenPrefix + start.Format(slotTokenLayout)
}

// ParseSlotToken decodes a slot selection id. Selections must round-trip
// exactly what was offered; anything else is an error.
func ParseSlotToken(token string, loc *time.Location) (time.Time, error) {
	rest, ok := strings.CutPrefix(token, slotTokenPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("not a slot token: %q", token)
	}
	start, err := time.ParseInLocation(slotTokenLayout, rest, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed slot token %q: %w", token, err)
	}
	return start, nil
}
