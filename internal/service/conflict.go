package service

import (
	"fmt"
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

const StatusCancelled = "cancelled"

// ConflictError reports the appointment a candidate booking would overlap.
// It is an expected, recoverable outcome, not a defect.
type ConflictError struct {
	TechnicianID     int64
	ConflictingStart time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("technician %d already has an appointment at %s",
		e.TechnicianID, e.ConflictingStart.Format("15:04"))
}

// ValidateNoConflict rejects a candidate interval [start, start+duration) that
// overlaps an existing appointment of the same technician on the same day.
// Cancelled appointments never conflict. Returns a *ConflictError carrying the
// first conflicting appointment's start time, nil when the candidate is free.
func ValidateNoConflict(technicianID int64, candidateStart time.Time, durationMinutes int, sameDay []models.Appointment) error {
	candidateEnd := candidateStart.Add(time.Duration(durationMinutes) * time.Minute)

	for _, existing := range sameDay {
		if existing.TechnicianID != technicianID || existing.Status == StatusCancelled {
			continue
		}
		start := existing.ScheduledStart
		end := existing.End()

		startsInside := !candidateStart.Before(start) && candidateStart.Before(end)
		endsInside := candidateEnd.After(start) && !candidateEnd.After(end)
		contains := !candidateStart.After(start) && !candidateEnd.Before(end)

		if startsInside || endsInside || contains {
			return &ConflictError{TechnicianID: technicianID, ConflictingStart: start}
		}
	}
	return nil
}
