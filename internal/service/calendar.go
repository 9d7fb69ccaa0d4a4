package service

import (
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

// Fixed national holidays (month/day, year-independent): New Year, Epiphany,
// Liberation Day, Labour Day, Republic Day, Assumption, All Saints, Immaculate
// Conception, Christmas, St. Stephen's Day.
var fixedHolidays = []struct {
	Month time.Month
	Day   int
}{
	{time.January, 1},
	{time.January, 6},
	{time.April, 25},
	{time.May, 1},
	{time.June, 2},
	{time.August, 15},
	{time.November, 1},
	{time.December, 8},
	{time.December, 25},
	{time.December, 26},
}

// IsWorkingDay reports whether appointments can be scheduled on the given day.
// Sundays and fixed holidays are off; Saturdays count as working days.
func IsWorkingDay(day time.Time) bool {
	if day.Weekday() == time.Sunday {
		return false
	}
	for _, h := range fixedHolidays {
		if day.Month() == h.Month && day.Day() == h.Day {
			return false
		}
	}
	return true
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return Midnight(a, loc).Equal(Midnight(b, loc))
}

// IsAbsent reports whether an absence record for the technician matches the
// candidate day. Dates are compared at midnight, ignoring time of day.
func IsAbsent(absences []models.Absence, technicianID int64, day time.Time, loc *time.Location) bool {
	for _, a := range absences {
		if a.TechnicianID == technicianID && SameDay(a.Date, day, loc) {
			return true
		}
	}
	return false
}
