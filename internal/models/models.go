package models

import "time"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Customer struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both coordinates are stored.
func (c Customer) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

type Technician struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
}

func (t Technician) FullName() string {
	return t.FirstName + " " + t.LastName
}

type Appointment struct {
	ID              int64     `json:"id"`
	CustomerID      int64     `json:"customer_id"`
	TechnicianID    int64     `json:"technician_id"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
}

// End is the half-open end of the appointment interval.
func (a Appointment) End() time.Time {
	return a.ScheduledStart.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

type Absence struct {
	TechnicianID int64     `json:"technician_id"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason"`
}

// ProposedSlot is an ephemeral engine output: built, scored, ranked,
// returned. Never persisted.
type ProposedSlot struct {
	StartTime            time.Time `json:"start_time"`
	TechnicianID         int64     `json:"technician_id"`
	TechnicianName       string    `json:"technician_name"`
	DistanceFromPrevious float64   `json:"distance_from_previous"`
	DistanceToNext       float64   `json:"distance_to_next"`
	TotalDistance        float64   `json:"total_distance"`
	Score                float64   `json:"score"`
}
