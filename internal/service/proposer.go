package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/gestione-tecnici/backend/internal/geocode"
	"github.com/gestione-tecnici/backend/internal/models"
	"github.com/gestione-tecnici/backend/internal/utils"
)

var (
	ErrNoTechnicians    = errors.New("no technicians available")
	ErrCustomerNotFound = errors.New("customer not found")
)

// DataSource is the narrow data-access contract the engine reads through.
// *db.Store satisfies it.
type DataSource interface {
	ListActiveTechnicians(ctx context.Context) ([]models.Technician, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	UpdateCustomerCoordinates(ctx context.Context, id int64, coord models.Coordinate) error
	ListAppointmentsByTechnician(ctx context.Context, technicianID int64, from, to time.Time) ([]models.Appointment, error)
	ListAbsences(ctx context.Context, from, to time.Time) ([]models.Absence, error)
}

// ProposalService computes ranked candidate appointment slots across the
// technician pool.
type ProposalService struct {
	Store    DataSource
	Geocoder geocode.Geocoder
	Logger   zerolog.Logger
	Config   ProposalConfig
	// Location fixes the day semantics: working-day checks, absence-day
	// comparison, tick generation and same-day grouping all use this zone.
	Location *time.Location
	// DefaultCoordinate is substituted when geocoding cannot resolve the
	// customer, so proposal degrades instead of failing.
	DefaultCoordinate models.Coordinate
	// Now is overridable in tests; nil means time.Now.
	Now func() time.Time
}

func (s *ProposalService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ProposalService) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

// ProposeSlots returns up to Config.TopK candidate slots for the customer,
// sorted ascending by score with ties broken by start time. technicianID, when
// non-nil, restricts the pool to that technician; preferredDate, when non-nil,
// anchors the lookahead window.
func (s *ProposalService) ProposeSlots(ctx context.Context, customerID int64, durationMinutes int, technicianID *int64, preferredDate *time.Time) ([]models.ProposedSlot, error) {
	loc := s.location()
	now := s.now()

	customer, err := s.Store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}

	coord, err := s.resolveCustomerCoordinate(ctx, customer)
	if err != nil {
		return nil, err
	}

	technicians, err := s.Store.ListActiveTechnicians(ctx)
	if err != nil {
		return nil, err
	}
	pool := make([]models.Technician, 0, len(technicians))
	for _, t := range technicians {
		if !t.IsActive {
			continue
		}
		if technicianID != nil && t.ID != *technicianID {
			continue
		}
		pool = append(pool, t)
	}
	if len(pool) == 0 {
		return nil, ErrNoTechnicians
	}

	windowStart := now
	if preferredDate != nil {
		windowStart = *preferredDate
	}
	windowStart = Midnight(windowStart, loc)
	windowEnd := windowStart.AddDate(0, 0, s.Config.WindowDays)

	// One absence fetch per proposal call, not per technician.
	absences, err := s.Store.ListAbsences(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	var slots []models.ProposedSlot
	for _, technician := range pool {
		appointments, err := s.Store.ListAppointmentsByTechnician(ctx, technician.ID, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}

		candidates := GenerateAvailableSlots(s.Config, technician.ID, windowStart, windowEnd, appointments, absences, durationMinutes, now, loc)
		candidates = distributeCandidates(candidates, s.Config, loc)

		sorted := SortAppointmentsByStart(appointments)
		coordCache := map[int64]*models.Coordinate{}

		for _, candidate := range candidates {
			scored, err := s.scoreCandidate(ctx, candidate, coord, technician, sorted, coordCache)
			if err != nil {
				return nil, err
			}
			slots = append(slots, scored)
		}
		s.Logger.Debug().
			Int64("technician_id", technician.ID).
			Int("candidates", len(candidates)).
			Int("appointments", len(appointments)).
			Msg("technician candidates scored")
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Score != slots[j].Score {
			return slots[i].Score < slots[j].Score
		}
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	if len(slots) > s.Config.TopK {
		slots = slots[:s.Config.TopK]
	}
	return slots, nil
}

// scoreCandidate resolves the candidate's neighbors, their coordinates and the
// temporal bonus into one scored slot.
func (s *ProposalService) scoreCandidate(ctx context.Context, candidate time.Time, customerCoord models.Coordinate, technician models.Technician, sorted []models.Appointment, coordCache map[int64]*models.Coordinate) (models.ProposedSlot, error) {
	cfg := s.Config
	loc := s.location()

	prev, prevSameDay, next, nextSameDay := findNeighbors(candidate, sorted, loc)

	distPrev := sentinelDistance(cfg)
	if prev != nil {
		if c, err := s.neighborCoordinate(ctx, prev.CustomerID, coordCache); err != nil {
			return models.ProposedSlot{}, err
		} else if c != nil {
			distPrev = neighborDistance(utils.HaversineKm(*c, customerCoord), !prevSameDay, cfg)
		}
	}

	distNext := sentinelDistance(cfg)
	if next != nil {
		if c, err := s.neighborCoordinate(ctx, next.CustomerID, coordCache); err != nil {
			return models.ProposedSlot{}, err
		} else if c != nil {
			distNext = neighborDistance(utils.HaversineKm(*c, customerCoord), !nextSameDay, cfg)
		}
	}

	bonus := TemporalBonus(candidate, sorted, cfg, loc)

	return models.ProposedSlot{
		StartTime:            candidate,
		TechnicianID:         technician.ID,
		TechnicianName:       technician.FullName(),
		DistanceFromPrevious: distPrev.Km,
		DistanceToNext:       distNext.Km,
		TotalDistance:        distPrev.Km + distNext.Km,
		Score:                ScoreSlot(distPrev, distNext, bonus, cfg),
	}, nil
}

// neighborCoordinate looks up a neighbor customer's stored coordinate, caching
// per proposal call. A customer without coordinates resolves to nil, which
// leaves the sentinel distance in place.
func (s *ProposalService) neighborCoordinate(ctx context.Context, customerID int64, cache map[int64]*models.Coordinate) (*models.Coordinate, error) {
	if c, ok := cache[customerID]; ok {
		return c, nil
	}
	customer, err := s.Store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	var coord *models.Coordinate
	if customer != nil && customer.HasCoordinates() {
		coord = &models.Coordinate{Lat: *customer.Latitude, Lon: *customer.Longitude}
	}
	cache[customerID] = coord
	return coord, nil
}

// resolveCustomerCoordinate returns the customer's stored coordinate, geocoding
// and persisting it when absent. Geocoding failure is not fatal: the default
// coordinate is substituted and the degradation is logged.
func (s *ProposalService) resolveCustomerCoordinate(ctx context.Context, customer *models.Customer) (models.Coordinate, error) {
	if customer.HasCoordinates() {
		return models.Coordinate{Lat: *customer.Latitude, Lon: *customer.Longitude}, nil
	}

	coord, err := s.Geocoder.Geocode(ctx, customer.Address, customer.City)
	if err != nil {
		s.Logger.Warn().
			Err(err).
			Int64("customer_id", customer.ID).
			Float64("default_lat", s.DefaultCoordinate.Lat).
			Float64("default_lon", s.DefaultCoordinate.Lon).
			Msg("geocoding failed, falling back to default coordinate")
		return s.DefaultCoordinate, nil
	}

	if err := s.Store.UpdateCustomerCoordinates(ctx, customer.ID, coord); err != nil {
		return models.Coordinate{}, err
	}
	return coord, nil
}
