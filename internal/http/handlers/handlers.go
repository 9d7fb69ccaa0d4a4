package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/gestione-tecnici/backend/internal/db"
	"github.com/gestione-tecnici/backend/internal/geocode"
	"github.com/gestione-tecnici/backend/internal/models"
	"github.com/gestione-tecnici/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Proposer  *service.ProposalService
	Geocoder  geocode.Geocoder
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
	Location  *time.Location
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ProposeSlotsRequest struct {
	CustomerID      int64      `json:"customer_id" validate:"required"`
	DurationMinutes int        `json:"duration_minutes" validate:"omitempty,min=1"`
	TechnicianID    *int64     `json:"technician_id"`
	PreferredDate   *time.Time `json:"preferred_date"`
}

// @Summary Propose appointment slots
// @Description Ranked candidate slots for a customer across the technician pool
// @Tags appointments
// @Accept json
// @Produce json
// @Success 200 {array} models.ProposedSlot
// @Failure 404 {object} map[string]any
// @Failure 422 {object} map[string]any
// @Router /api/appointments/propose-slots [post]
func (h *Handler) ProposeSlots(c *gin.Context) {
	var req ProposeSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", err.Error())
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 60
	}

	slots, err := h.Proposer.ProposeSlots(c.Request.Context(), req.CustomerID, req.DurationMinutes, req.TechnicianID, req.PreferredDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerNotFound):
			writeError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
		case errors.Is(err, service.ErrNoTechnicians):
			writeError(c, http.StatusUnprocessableEntity, "NO_TECHNICIANS", "No technicians available", nil)
		default:
			h.Logger.Error().Err(err).Int64("customer_id", req.CustomerID).Msg("propose slots failed")
			writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Slot proposal failed", nil)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

type CreateAppointmentRequest struct {
	CustomerID      int64     `json:"customer_id" validate:"required"`
	TechnicianID    int64     `json:"technician_id" validate:"required"`
	ScheduledStart  time.Time `json:"scheduled_start" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
}

// @Summary Book an appointment
// @Description Validates technician availability and persists the booking in one transaction
// @Tags appointments
// @Accept json
// @Produce json
// @Success 201 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Router /api/appointments [post]
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Validation failed", err.Error())
		return
	}

	ctx := c.Request.Context()
	dayStart := service.Midnight(req.ScheduledStart, h.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var id int64
	err := h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := h.Store.ListAppointmentsForTechnicianDayTx(ctx, tx, req.TechnicianID, dayStart, dayEnd)
		if err != nil {
			return err
		}
		if err := service.ValidateNoConflict(req.TechnicianID, req.ScheduledStart, req.DurationMinutes, existing); err != nil {
			return err
		}
		id, err = h.Store.InsertAppointmentTx(ctx, tx, models.Appointment{
			CustomerID:      req.CustomerID,
			TechnicianID:    req.TechnicianID,
			ScheduledStart:  req.ScheduledStart,
			DurationMinutes: req.DurationMinutes,
			Status:          "scheduled",
		})
		return err
	})
	if err != nil {
		var conflict *service.ConflictError
		if errors.As(err, &conflict) {
			writeError(c, http.StatusConflict, "BOOKING_CONFLICT",
				"Technician already has an appointment at "+conflict.ConflictingStart.In(h.Location).Format("15:04"),
				gin.H{"conflicting_start": conflict.ConflictingStart})
			return
		}
		h.Logger.Error().Err(err).Int64("technician_id", req.TechnicianID).Msg("create appointment failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create appointment", nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// @Summary List appointments for a technician
// @Tags appointments
// @Produce json
// @Router /api/appointments [get]
func (h *Handler) AppointmentsList(c *gin.Context) {
	technicianID, err := strconv.ParseInt(c.Query("technician_id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "technician_id is required", nil)
		return
	}
	from, to, err := h.parseWindow(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid from/to", err.Error())
		return
	}

	appointments, err := h.Store.ListAppointmentsByTechnician(c.Request.Context(), technicianID, from, to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list appointments", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}

// @Summary List active technicians
// @Tags technicians
// @Produce json
// @Router /api/technicians [get]
func (h *Handler) TechniciansList(c *gin.Context) {
	technicians, err := h.Store.ListActiveTechnicians(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list technicians", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": technicians})
}

// @Summary List absences in a window
// @Tags absences
// @Produce json
// @Router /api/absences [get]
func (h *Handler) AbsencesList(c *gin.Context) {
	from, to, err := h.parseWindow(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid from/to", err.Error())
		return
	}
	absences, err := h.Store.ListAbsences(c.Request.Context(), from, to)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list absences", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"absences": absences})
}

// @Summary Re-geocode a customer address
// @Tags customers
// @Produce json
// @Router /api/customers/{id}/geocode [post]
func (h *Handler) RegeocodeCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid customer id", nil)
		return
	}

	ctx := c.Request.Context()
	customer, err := h.Store.GetCustomer(ctx, id)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load customer", nil)
		return
	}
	if customer == nil {
		writeError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
		return
	}

	coord, err := h.Geocoder.Geocode(ctx, customer.Address, customer.City)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			writeError(c, http.StatusUnprocessableEntity, "GEOCODE_NOT_FOUND", "Address could not be resolved", nil)
			return
		}
		h.Logger.Error().Err(err).Int64("customer_id", id).Msg("geocoding failed")
		writeError(c, http.StatusBadGateway, "GEOCODE_ERROR", "Geocoding service failed", nil)
		return
	}

	if err := h.Store.UpdateCustomerCoordinates(ctx, id, coord); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to store coordinates", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer_id": id, "lat": coord.Lat, "lon": coord.Lon})
}

// parseWindow reads optional from/to query params (RFC 3339 or plain date),
// defaulting to the lookahead week starting today.
func (h *Handler) parseWindow(c *gin.Context) (time.Time, time.Time, error) {
	from := service.Midnight(time.Now(), h.Location)
	to := from.AddDate(0, 0, 7)

	if raw := c.Query("from"); raw != "" {
		parsed, err := parseTime(raw, h.Location)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseTime(raw, h.Location)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
