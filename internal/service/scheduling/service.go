// Package scheduling computes candidate appointment slots inside the
// configured business-hours window.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/bookabot/internal/config"
	"github.com/jwalitptl/bookabot/internal/model"
	"github.com/jwalitptl/bookabot/internal/repository"
)

type Service struct {
	repo     repository.AppointmentRepository
	openMin  int
	closeMin int
	loc      *time.Location
}

func NewService(repo repository.AppointmentRepository, cfg config.BookingConfig) (*Service, error) {
	openMin, closeMin, loc, err := cfg.Window()
	if err != nil {
		return nil, fmt.Errorf("invalid booking window: %w", err)
	}
	return &Service{
		repo:     repo,
		openMin:  openMin,
		closeMin: closeMin,
		loc:      loc,
	}, nil
}

// Location returns the business timezone slots are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// AvailableSlots returns the open slots of the given day, ascending.
// Candidates are spaced by the service duration, back to back from window
// open, so availability stays a simple scan. The result is advisory: the
// booking path re-checks overlap inside its transaction.
func (s *Service) AvailableSlots(ctx context.Context, durationMinutes int, date time.Time) ([]model.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc)
	busy, err := s.repo.ListBlockingForDate(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing appointments: %w", err)
	}

	duration := time.Duration(durationMinutes) * time.Minute
	windowOpen := dayStart.Add(time.Duration(s.openMin) * time.Minute)
	windowClose := dayStart.Add(time.Duration(s.closeMin) * time.Minute)

	var slots []model.TimeSlot
	for start := windowOpen; !start.Add(duration).After(windowClose); start = start.Add(duration) {
		end := start.Add(duration)
		if !overlapsAny(start, end, busy) {
			slots = append(slots, model.TimeSlot{Start: start, End: end})
		}
	}
	return slots, nil
}

func overlapsAny(start, end time.Time, busy []*model.Appointment) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff
		// start < b.End && b.Start < end.
		if start.Before(b.EndTime) && b.StartTime.Before(end) {
			return true
		}
	}
	return false
}
