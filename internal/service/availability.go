package service

import (
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

// ProposalConfig carries every tunable of slot generation and scoring.
type ProposalConfig struct {
	// Lookahead window length in days.
	WindowDays int
	// Daily working window: ticks are generated in [StartHour, EndHour).
	WorkDayStartHour int
	WorkDayEndHour   int
	TickMinutes      int
	// Candidate bounding: every candidate from the first eligible day is
	// retained, then the first MaxCandidatesPerDay candidates from each
	// subsequent day, over at most MaxDaysConsidered days.
	MaxDaysConsidered   int
	MaxCandidatesPerDay int
	// Number of ranked slots returned.
	TopK int
	// Distance reported when no constraining neighbor exists in a direction.
	SentinelKm float64
	// Virtual offset added when the nearest neighbor is not on the same day,
	// biasing toward same-day geographic clustering.
	CrossDayPenaltyKm float64
	// Neighbors farther than this radius push the slot to the bottom of the
	// ranking via FarPenalty; the slot stays eligible.
	MaxNeighborRadiusKm float64
	FarPenalty          float64
	// Minutes of idle gap worth one point of temporal bonus.
	BonusIntervalMinutes int
}

func DefaultProposalConfig() ProposalConfig {
	return ProposalConfig{
		WindowDays:           7,
		WorkDayStartHour:     8,
		WorkDayEndHour:       18,
		TickMinutes:          30,
		MaxDaysConsidered:    5,
		MaxCandidatesPerDay:  5,
		TopK:                 3,
		SentinelKm:           999,
		CrossDayPenaltyKm:    50,
		MaxNeighborRadiusKm:  20,
		FarPenalty:           1000,
		BonusIntervalMinutes: 30,
	}
}

// GenerateAvailableSlots enumerates candidate start times for one technician
// between windowStart and windowEnd. Days that are not working days, or on
// which the technician is absent, yield nothing. Within a day, ticks run every
// TickMinutes between the working hours; a tick is rejected when the candidate
// interval [tick, tick+duration) overlaps an existing appointment on the same
// calendar day, or when the tick is not strictly in the future.
//
// An existing appointment whose duration runs past the end of the working
// window is honored as given; only new ticks are constrained to the window.
func GenerateAvailableSlots(
	cfg ProposalConfig,
	technicianID int64,
	windowStart, windowEnd time.Time,
	appointments []models.Appointment,
	absences []models.Absence,
	durationMinutes int,
	now time.Time,
	loc *time.Location,
) []time.Time {
	var slots []time.Time
	duration := time.Duration(durationMinutes) * time.Minute

	for day := Midnight(windowStart, loc); day.Before(windowEnd); day = day.AddDate(0, 0, 1) {
		if !IsWorkingDay(day) || IsAbsent(absences, technicianID, day, loc) {
			continue
		}
		for hour := cfg.WorkDayStartHour; hour < cfg.WorkDayEndHour; hour++ {
			for minute := 0; minute < 60; minute += cfg.TickMinutes {
				tick := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
				if !tick.After(now) {
					continue
				}
				if tickOccupied(tick, tick.Add(duration), appointments, loc) {
					continue
				}
				slots = append(slots, tick)
			}
		}
	}
	return slots
}

// tickOccupied tests half-open interval overlap against same-day appointments
// only: appointments on other days never constrain a tick.
func tickOccupied(tick, tickEnd time.Time, appointments []models.Appointment, loc *time.Location) bool {
	for _, apt := range appointments {
		if !SameDay(apt.ScheduledStart, tick, loc) {
			continue
		}
		if tick.Before(apt.End()) && apt.ScheduledStart.Before(tickEnd) {
			return true
		}
	}
	return false
}

// distributeCandidates bounds the scoring cost: every candidate from the first
// eligible day is kept, then the first MaxCandidatesPerDay from each subsequent
// day, over at most MaxDaysConsidered days. Candidates arrive in chronological
// order and stay that way.
func distributeCandidates(candidates []time.Time, cfg ProposalConfig, loc *time.Location) []time.Time {
	var out []time.Time
	var currentDay time.Time
	daysSeen := 0
	takenToday := 0

	for _, c := range candidates {
		day := Midnight(c, loc)
		if daysSeen == 0 || !day.Equal(currentDay) {
			if daysSeen >= cfg.MaxDaysConsidered {
				break
			}
			currentDay = day
			daysSeen++
			takenToday = 0
		}
		if daysSeen > 1 && takenToday >= cfg.MaxCandidatesPerDay {
			continue
		}
		out = append(out, c)
		takenToday++
	}
	return out
}
