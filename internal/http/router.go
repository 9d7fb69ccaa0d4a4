package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gestione-tecnici/backend/internal/config"
	"github.com/gestione-tecnici/backend/internal/db"
	"github.com/gestione-tecnici/backend/internal/geocode"
	"github.com/gestione-tecnici/backend/internal/http/handlers"
	"github.com/gestione-tecnici/backend/internal/http/middleware"
	"github.com/gestione-tecnici/backend/internal/service"

	_ "github.com/gestione-tecnici/backend/docs"
)

func Router(cfg config.Config, store *db.Store, proposer *service.ProposalService, geocoder geocode.Geocoder, loc *time.Location, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Proposer:  proposer,
		Geocoder:  geocoder,
		Validator: validator.New(),
		Logger:    logger,
		AdminKey:  cfg.AdminKey,
		Location:  loc,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/technicians", h.TechniciansList)
		api.GET("/absences", h.AbsencesList)
		api.GET("/appointments", h.AppointmentsList)
		api.POST("/appointments", h.CreateAppointment)
		api.POST("/appointments/propose-slots", h.ProposeSlots)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/customers/:id/geocode", h.RegeocodeCustomer)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
