package slots

// AvailabilityWindow is one bookable span inside a weekday, "15:04" times.
type AvailabilityWindow struct {
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

// GenerateRequest describes a caregiver's recurring weekly availability to be
// sliced into bookable slots over a date range.
type GenerateRequest struct {
	CaregiverID        int64                           `json:"-"`
	StartDate          string                          `json:"start_date" binding:"required"` // 2006-01-02
	EndDate            string                          `json:"end_date" binding:"required"`
	WeeklyAvailability map[string][]AvailabilityWindow `json:"weekly_availability" binding:"required"` // keyed monday..sunday
	SlotDuration       int                             `json:"slot_duration" binding:"required"`       // minutes
	HourlyRate         float64                         `json:"hourly_rate" binding:"required"`
}

type GenerateResult struct {
	Generated int `json:"generated"` // candidate slots produced
	Inserted  int `json:"inserted"`  // actually persisted (duplicates skipped)
}
