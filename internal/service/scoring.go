package service

import (
	"sort"
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

// NeighborDistance is the outcome of resolving one constraining neighbor of a
// candidate slot. Km is the reported distance, cross-day penalty included.
// Exceeds tags distances beyond the neighbor radius so the scorer can apply
// the far penalty without re-deriving the threshold.
type NeighborDistance struct {
	Km      float64
	Exceeds bool
}

// sentinelDistance means "no constraining neighbor in that direction". It is
// not an error condition.
func sentinelDistance(cfg ProposalConfig) NeighborDistance {
	return NeighborDistance{Km: cfg.SentinelKm, Exceeds: cfg.SentinelKm > cfg.MaxNeighborRadiusKm}
}

func neighborDistance(km float64, crossDay bool, cfg ProposalConfig) NeighborDistance {
	if crossDay {
		km += cfg.CrossDayPenaltyKm
	}
	return NeighborDistance{Km: km, Exceeds: km > cfg.MaxNeighborRadiusKm}
}

// ScoreSlot combines both neighbor distances and the temporal bonus. Lower is
// better. A neighbor beyond the radius pushes the slot to the bottom of the
// ranking rather than excluding it.
func ScoreSlot(prev, next NeighborDistance, temporalBonus float64, cfg ProposalConfig) float64 {
	score := prev.Km + next.Km + temporalBonus
	if prev.Exceeds || next.Exceeds {
		score += cfg.FarPenalty
	}
	return score
}

// SortAppointmentsByStart returns a copy ordered by scheduled start, the shape
// neighbor selection expects.
func SortAppointmentsByStart(appointments []models.Appointment) []models.Appointment {
	sorted := make([]models.Appointment, len(appointments))
	copy(sorted, appointments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ScheduledStart.Before(sorted[j].ScheduledStart)
	})
	return sorted
}

// findNeighbors picks the constraining appointments around a slot: the closest
// preceding and following appointment on the same day, falling back to the
// nearest one on any other day. sameDay reports which case was hit; a nil
// pointer means no neighbor exists at all in that direction.
func findNeighbors(slot time.Time, sorted []models.Appointment, loc *time.Location) (prev *models.Appointment, prevSameDay bool, next *models.Appointment, nextSameDay bool) {
	for i := range sorted {
		apt := &sorted[i]
		if apt.ScheduledStart.Before(slot) {
			if SameDay(apt.ScheduledStart, slot, loc) {
				prev, prevSameDay = apt, true
			} else if !prevSameDay {
				prev = apt
			}
		}
		if apt.ScheduledStart.After(slot) && next == nil {
			next = apt
			nextSameDay = SameDay(apt.ScheduledStart, slot, loc)
		}
	}
	return prev, prevSameDay, next, nextSameDay
}

// TemporalBonus rewards slots that closely follow another appointment on the
// same day. Each BonusIntervalMinutes of idle gap adds one point. A slot with
// no same-day predecessor scores zero, the best possible bonus, so a
// technician's day fills from its start.
func TemporalBonus(slot time.Time, appointments []models.Appointment, cfg ProposalConfig, loc *time.Location) float64 {
	var lastBefore *models.Appointment
	for i := range appointments {
		apt := &appointments[i]
		if !SameDay(apt.ScheduledStart, slot, loc) {
			continue
		}
		if apt.ScheduledStart.Before(slot) {
			if lastBefore == nil || apt.ScheduledStart.After(lastBefore.ScheduledStart) {
				lastBefore = apt
			}
		}
	}
	if lastBefore == nil {
		return 0
	}
	gap := slot.Sub(lastBefore.End()).Minutes()
	return gap / float64(cfg.BonusIntervalMinutes)
}
