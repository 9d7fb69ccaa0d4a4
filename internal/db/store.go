package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestione-tecnici/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListActiveTechnicians(ctx context.Context) ([]models.Technician, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, first_name, last_name, is_active
		FROM technicians
		WHERE is_active
		ORDER BY last_name, first_name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Technician
	for rows.Next() {
		var t models.Technician
		if err := rows.Scan(&t.ID, &t.FirstName, &t.LastName, &t.IsActive); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetCustomer returns nil without error when the customer does not exist.
func (s *Store) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, address, city, latitude, longitude, updated_at
		FROM customers
		WHERE id = $1
	`, id)

	var c models.Customer
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Address, &c.City, &c.Latitude, &c.Longitude, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) UpdateCustomerCoordinates(ctx context.Context, id int64, coord models.Coordinate) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE customers SET latitude = $1, longitude = $2, updated_at = NOW() WHERE id = $3
	`, coord.Lat, coord.Lon, id)
	return err
}

// ListAppointmentsByTechnician returns the technician's appointments starting
// in [from, to), cancelled ones excluded, ordered by scheduled start.
func (s *Store) ListAppointmentsByTechnician(ctx context.Context, technicianID int64, from, to time.Time) ([]models.Appointment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, customer_id, technician_id, scheduled_start, duration_minutes, status
		FROM appointments
		WHERE technician_id = $1
		  AND status <> 'cancelled'
		  AND scheduled_start >= $2
		  AND scheduled_start < $3
		ORDER BY scheduled_start
	`, technicianID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListAppointmentsForTechnicianDayTx is the transactional read backing booking
// validation: the conflict check and the insert see the same snapshot.
func (s *Store) ListAppointmentsForTechnicianDayTx(ctx context.Context, tx pgx.Tx, technicianID int64, dayStart, dayEnd time.Time) ([]models.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, customer_id, technician_id, scheduled_start, duration_minutes, status
		FROM appointments
		WHERE technician_id = $1
		  AND status <> 'cancelled'
		  AND scheduled_start >= $2
		  AND scheduled_start < $3
		ORDER BY scheduled_start
	`, technicianID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAppointments(rows)
}

func (s *Store) InsertAppointmentTx(ctx context.Context, tx pgx.Tx, a models.Appointment) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (customer_id, technician_id, scheduled_start, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.CustomerID, a.TechnicianID, a.ScheduledStart, a.DurationMinutes, a.Status).Scan(&id)
	return id, err
}

func (s *Store) ListAbsences(ctx context.Context, from, to time.Time) ([]models.Absence, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT technician_id, date, reason
		FROM absences
		WHERE date >= $1 AND date <= $2
		ORDER BY date, technician_id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Absence
	for rows.Next() {
		var a models.Absence
		if err := rows.Scan(&a.TechnicianID, &a.Date, &a.Reason); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointments(rows pgx.Rows) ([]models.Appointment, error) {
	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.TechnicianID, &a.ScheduledStart, &a.DurationMinutes, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
