package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestione-tecnici/backend/internal/geocode"
	"github.com/gestione-tecnici/backend/internal/models"
)

type fakeStore struct {
	technicians   []models.Technician
	customers     map[int64]*models.Customer
	appointments  map[int64][]models.Appointment
	absences      []models.Absence
	updatedCoords map[int64]models.Coordinate
}

func (f *fakeStore) ListActiveTechnicians(ctx context.Context) ([]models.Technician, error) {
	return f.technicians, nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return f.customers[id], nil
}

func (f *fakeStore) UpdateCustomerCoordinates(ctx context.Context, id int64, coord models.Coordinate) error {
	if f.updatedCoords == nil {
		f.updatedCoords = map[int64]models.Coordinate{}
	}
	f.updatedCoords[id] = coord
	return nil
}

func (f *fakeStore) ListAppointmentsByTechnician(ctx context.Context, technicianID int64, from, to time.Time) ([]models.Appointment, error) {
	return f.appointments[technicianID], nil
}

func (f *fakeStore) ListAbsences(ctx context.Context, from, to time.Time) ([]models.Absence, error) {
	return f.absences, nil
}

type fakeGeocoder struct {
	coord models.Coordinate
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address, city string) (models.Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

func float64Ptr(v float64) *float64 { return &v }

func newTestService(store *fakeStore, geocoder geocode.Geocoder) *ProposalService {
	return &ProposalService{
		Store:             store,
		Geocoder:          geocoder,
		Logger:            zerolog.Nop(),
		Config:            DefaultProposalConfig(),
		Location:          time.UTC,
		DefaultCoordinate: models.Coordinate{Lat: 42.0, Lon: 12.0},
		Now:               func() time.Time { return time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC) },
	}
}

func mondayScenarioStore() *fakeStore {
	return &fakeStore{
		technicians: []models.Technician{
			{ID: 1, FirstName: "Mario", LastName: "Rossi", IsActive: true},
		},
		customers: map[int64]*models.Customer{
			1: {ID: 1, Address: "Via Roma 1", City: "Padova", Latitude: float64Ptr(45.41), Longitude: float64Ptr(11.76)},
			2: {ID: 2, Address: "Via Dante 2", City: "Padova", Latitude: float64Ptr(45.40), Longitude: float64Ptr(11.75)},
		},
		appointments: map[int64][]models.Appointment{
			1: {{
				ID: 100, CustomerID: 2, TechnicianID: 1,
				ScheduledStart:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
				DurationMinutes: 60, Status: "scheduled",
			}},
		},
	}
}

var preferredMonday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestProposeSlotsRankingAndLimit(t *testing.T) {
	store := mondayScenarioStore()
	s := newTestService(store, &fakeGeocoder{})

	slots, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Score < slots[i-1].Score {
			t.Fatalf("slots not sorted by score: %f before %f", slots[i-1].Score, slots[i].Score)
		}
		if slots[i].Score == slots[i-1].Score && slots[i].StartTime.Before(slots[i-1].StartTime) {
			t.Fatalf("tie not broken by start time")
		}
	}
	// Equal-score morning ticks win the tie-break: the day fills from its start.
	if slots[0].StartTime.Format("15:04") != "08:00" {
		t.Fatalf("expected first slot at 08:00, got %v", slots[0].StartTime)
	}
	if slots[0].TechnicianName != "Mario Rossi" {
		t.Fatalf("unexpected technician name %q", slots[0].TechnicianName)
	}
}

func TestProposeSlotsMondayScenario(t *testing.T) {
	store := mondayScenarioStore()
	s := newTestService(store, &fakeGeocoder{})

	technician := store.technicians[0]
	sorted := SortAppointmentsByStart(store.appointments[1])
	customer := models.Coordinate{Lat: 45.41, Lon: 11.76}
	cache := map[int64]*models.Coordinate{}

	eleven, err := s.scoreCandidate(context.Background(), time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), customer, technician, sorted, cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eleven.DistanceFromPrevious < 1.2 || eleven.DistanceFromPrevious > 1.5 {
		t.Fatalf("expected ~1.3 km from previous, got %f", eleven.DistanceFromPrevious)
	}
	if eleven.DistanceToNext != 999 {
		t.Fatalf("expected sentinel distance to next, got %f", eleven.DistanceToNext)
	}

	fifteen, err := s.scoreCandidate(context.Background(), time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), customer, technician, sorted, cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eleven.Score >= fifteen.Score {
		t.Fatalf("11:00 (bonus 0) must rank above 15:00 with equal distances: %f vs %f", eleven.Score, fifteen.Score)
	}
	if diff := fifteen.Score - eleven.Score; diff < 7.999 || diff > 8.001 {
		t.Fatalf("expected the four-hour gap to cost 8 bonus points, got %f", diff)
	}
}

func TestProposeSlotsSentinelWithoutBookings(t *testing.T) {
	store := mondayScenarioStore()
	store.appointments = nil
	s := newTestService(store, &fakeGeocoder{})

	slots, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range slots {
		if slot.DistanceFromPrevious != 999 || slot.DistanceToNext != 999 {
			t.Fatalf("expected sentinel distances for an empty week, got %+v", slot)
		}
		if slot.TotalDistance != 1998 {
			t.Fatalf("expected total distance 1998, got %f", slot.TotalDistance)
		}
	}
}

func TestProposeSlotsAbsentTechnicianContributesNothing(t *testing.T) {
	store := mondayScenarioStore()
	store.technicians = append(store.technicians, models.Technician{ID: 2, FirstName: "Luca", LastName: "Bianchi", IsActive: true})
	for d := 0; d < 7; d++ {
		store.absences = append(store.absences, models.Absence{
			TechnicianID: 1,
			Date:         preferredMonday.AddDate(0, 0, d),
			Reason:       "ferie",
		})
	}
	s := newTestService(store, &fakeGeocoder{})

	slots, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected slots from the remaining technician")
	}
	for _, slot := range slots {
		if slot.TechnicianID != 2 {
			t.Fatalf("absent technician produced slot %+v", slot)
		}
	}
}

func TestProposeSlotsTechnicianFilter(t *testing.T) {
	store := mondayScenarioStore()
	store.technicians = append(store.technicians, models.Technician{ID: 2, FirstName: "Luca", LastName: "Bianchi", IsActive: true})
	s := newTestService(store, &fakeGeocoder{})

	only := int64(2)
	slots, err := s.ProposeSlots(context.Background(), 1, 60, &only, &preferredMonday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range slots {
		if slot.TechnicianID != 2 {
			t.Fatalf("filter ignored, got technician %d", slot.TechnicianID)
		}
	}
}

func TestProposeSlotsNoTechnicians(t *testing.T) {
	store := mondayScenarioStore()
	store.technicians = []models.Technician{{ID: 1, FirstName: "Mario", LastName: "Rossi", IsActive: false}}
	s := newTestService(store, &fakeGeocoder{})

	_, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday)
	if !errors.Is(err, ErrNoTechnicians) {
		t.Fatalf("expected ErrNoTechnicians, got %v", err)
	}
}

func TestProposeSlotsCustomerNotFound(t *testing.T) {
	store := mondayScenarioStore()
	s := newTestService(store, &fakeGeocoder{})

	_, err := s.ProposeSlots(context.Background(), 999, 60, nil, &preferredMonday)
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestProposeSlotsGeocodesAndPersists(t *testing.T) {
	store := mondayScenarioStore()
	store.customers[1].Latitude = nil
	store.customers[1].Longitude = nil
	geocoder := &fakeGeocoder{coord: models.Coordinate{Lat: 45.41, Lon: 11.76}}
	s := newTestService(store, geocoder)

	if _, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geocoder.calls != 1 {
		t.Fatalf("expected one geocoder call, got %d", geocoder.calls)
	}
	got, ok := store.updatedCoords[1]
	if !ok {
		t.Fatalf("expected resolved coordinate persisted back to the customer")
	}
	if got.Lat != 45.41 || got.Lon != 11.76 {
		t.Fatalf("persisted wrong coordinate: %+v", got)
	}
}

func TestProposeSlotsDegradesOnGeocodingFailure(t *testing.T) {
	store := mondayScenarioStore()
	store.customers[1].Latitude = nil
	store.customers[1].Longitude = nil
	geocoder := &fakeGeocoder{err: geocode.ErrNotFound}
	s := newTestService(store, geocoder)

	slots, err := s.ProposeSlots(context.Background(), 1, 60, nil, &preferredMonday)
	if err != nil {
		t.Fatalf("geocoding failure must not fail the call, got %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected degraded slots with the default coordinate")
	}
	if _, ok := store.updatedCoords[1]; ok {
		t.Fatalf("default coordinate must not be persisted")
	}
}
