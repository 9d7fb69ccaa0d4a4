package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string        `mapstructure:"ENV"`
	Port               string        `mapstructure:"PORT"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	AdminKey           string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed        string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	ScheduleTZ         string        `mapstructure:"SCHEDULE_TZ"`
	NominatimURL       string        `mapstructure:"NOMINATIM_URL"`
	GeocodeUserAgent   string        `mapstructure:"GEOCODE_USER_AGENT"`
	GeocodeMinInterval time.Duration `mapstructure:"GEOCODE_MIN_INTERVAL"`
	GeocodeCountry     string        `mapstructure:"GEOCODE_COUNTRY"`
	DefaultLat         float64       `mapstructure:"DEFAULT_LAT"`
	DefaultLon         float64       `mapstructure:"DEFAULT_LON"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SCHEDULE_TZ", "Europe/Rome")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODE_USER_AGENT", "GestioneAppuntamentiTecnici/1.0")
	v.SetDefault("GEOCODE_MIN_INTERVAL", "1s")
	v.SetDefault("GEOCODE_COUNTRY", "it")
	// Center-of-country fallback used when geocoding cannot resolve a customer.
	v.SetDefault("DEFAULT_LAT", 42.0)
	v.SetDefault("DEFAULT_LON", 12.0)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
