package service

import (
	"testing"
	"time"

	"github.com/gestione-tecnici/backend/internal/models"
)

func TestIsWorkingDay(t *testing.T) {
	cases := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"monday", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), true},
		{"saturday is a working day", time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), true},
		{"sunday", time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), false},
		{"new year on a thursday", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"christmas", time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), false},
		{"st stephen", time.Date(2026, 12, 26, 0, 0, 0, 0, time.UTC), false},
		{"assumption", time.Date(2027, 8, 15, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := IsWorkingDay(tc.day); got != tc.want {
			t.Fatalf("%s: IsWorkingDay(%v) = %v, want %v", tc.name, tc.day, got, tc.want)
		}
	}
}

func TestIsAbsentIgnoresTimeOfDay(t *testing.T) {
	absences := []models.Absence{
		{TechnicianID: 1, Date: time.Date(2026, 3, 3, 15, 30, 0, 0, time.UTC), Reason: "ferie"},
	}

	day := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if !IsAbsent(absences, 1, day, time.UTC) {
		t.Fatalf("expected technician 1 absent on %v", day)
	}
	if IsAbsent(absences, 2, day, time.UTC) {
		t.Fatalf("absence of technician 1 must not affect technician 2")
	}
	if IsAbsent(absences, 1, day.AddDate(0, 0, 1), time.UTC) {
		t.Fatalf("absence must only match its own calendar day")
	}
}

func TestMidnightUsesLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 23:30 UTC is already the next day in Rome.
	ts := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	got := Midnight(ts, rome)
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, rome)
	if !got.Equal(want) {
		t.Fatalf("Midnight = %v, want %v", got, want)
	}
}
