package slots

import (
	"context"
	"fmt"
	"math"
	"time"

	"carebook/internal/domain"
	"carebook/internal/pkg/clock"
	"carebook/internal/repository"
)

type Service struct {
	slots       *repository.TimeSlotRepository
	clk         clock.Clock
	maxPageSize int
}

func NewService(slots *repository.TimeSlotRepository, clk clock.Clock, maxPageSize int) *Service {
	return &Service{slots: slots, clk: clk, maxPageSize: maxPageSize}
}

// Generate slices each day's availability windows into slot_duration-minute
// increments over the date range. An increment that would run past its window
// end is discarded. Rerunning over the same range is safe: collisions on
// (caregiver, date, start) are skipped, not duplicated.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.SlotDuration <= 0 || req.HourlyRate <= 0 {
		return nil, ErrValidation
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad start_date", ErrValidation)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad end_date", ErrValidation)
	}
	if end.Before(start) {
		return nil, ErrValidation
	}

	price := math.Round(req.HourlyRate*float64(req.SlotDuration)/60*100) / 100

	var candidates []domain.TimeSlot
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		windows := req.WeeklyAvailability[weekdayKey(day.Weekday())]
		for _, w := range windows {
			winStart, err := time.Parse("15:04", w.Start)
			if err != nil {
				return nil, fmt.Errorf("%w: bad window start %q", ErrValidation, w.Start)
			}
			winEnd, err := time.Parse("15:04", w.End)
			if err != nil {
				return nil, fmt.Errorf("%w: bad window end %q", ErrValidation, w.End)
			}

			step := time.Duration(req.SlotDuration) * time.Minute
			for cur := winStart; !cur.Add(step).After(winEnd); cur = cur.Add(step) {
				candidates = append(candidates, domain.TimeSlot{
					CaregiverID: req.CaregiverID,
					Date:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
					StartTime:   cur.Format("15:04"),
					EndTime:     cur.Add(step).Format("15:04"),
					Duration:    req.SlotDuration,
					Price:       price,
					Status:      domain.SlotAvailable,
				})
			}
		}
	}

	inserted, err := s.slots.InsertIgnoreDuplicates(ctx, candidates)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Generated: len(candidates), Inserted: inserted}, nil
}

// FindAvailable lists bookable slots for the given filter, page-capped.
func (s *Service) FindAvailable(ctx context.Context, f repository.SlotFilter) ([]domain.TimeSlot, error) {
	return s.slots.FindAvailable(ctx, f, s.clk.Now(), s.maxPageSize)
}

func weekdayKey(w time.Weekday) string {
	switch w {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
