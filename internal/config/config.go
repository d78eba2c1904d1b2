package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Environment names the deployment the server runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds all configuration for our application
type Config struct {
	App struct {
		Name        string      `env:"APP_NAME" envDefault:"sarvsaathi"`
		Env         Environment `env:"APP_ENV" envDefault:"development"`
		Port        string      `env:"PORT" envDefault:"8000"`
		Origin      string      `env:"ORIGIN" envDefault:"http://localhost:5173"`
		FrontendURL string      `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
		Timezone    string      `env:"APP_TIMEZONE" envDefault:"Asia/Kolkata"`
	}

	Database struct {
		Host     string `env:"DB_HOST" envDefault:"localhost"`
		Port     string `env:"DB_PORT" envDefault:"3306"`
		Username string `env:"DB_USERNAME" envDefault:"root"`
		Password string `env:"DB_PASSWORD"`
		Name     string `env:"DB_NAME" envDefault:"sarvsaathi"`
		LogSQL   bool   `env:"DB_LOG_SQL"`
		MaxOpen  int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdle  int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	}

	JWT struct {
		Secret        string        `env:"JWT_SECRET" envDefault:"default_jwt_secret"`
		RefreshSecret string        `env:"JWT_REFRESH_SECRET" envDefault:"default_refresh_secret"`
		AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
		RefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	}

	Booking struct {
		CancellationLeadTime time.Duration `env:"BOOKING_CANCELLATION_LEAD_TIME" envDefault:"2h"`
		Currency             string        `env:"BOOKING_CURRENCY" envDefault:"USD"`
		EmergencySlotLength  time.Duration `env:"EMERGENCY_SLOT_LENGTH" envDefault:"30m"`
	}

	Redis struct {
		Enabled  bool   `env:"REDIS_ENABLED"`
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Cache struct {
		Size      int           `env:"CACHE_SIZE" envDefault:"512"`
		DoctorTTL time.Duration `env:"CACHE_DOCTOR_TTL" envDefault:"2m"`
	}

	PayPal struct {
		ClientID     string `env:"PAYPAL_CLIENT_ID"`
		ClientSecret string `env:"PAYPAL_CLIENT_SECRET"`
		Mode         string `env:"PAYPAL_MODE" envDefault:"sandbox"`
	}

	Twilio struct {
		AccountSID   string `env:"TWILIO_ACCOUNT_SID"`
		AuthToken    string `env:"TWILIO_AUTH_TOKEN"`
		FromNumber   string `env:"TWILIO_PHONE_NUMBER"`
		WhatsAppFrom string `env:"TWILIO_WHATSAPP_NUMBER"`
	}

	Brevo struct {
		APIKey      string `env:"BREVO_API_KEY"`
		SenderEmail string `env:"BREVO_SENDER_EMAIL"`
		SenderName  string `env:"BREVO_SENDER_NAME" envDefault:"SarvSaathi"`
		Sandbox     bool   `env:"BREVO_SANDBOX"`
	}

	Cloudinary struct {
		CloudName string `env:"CLOUDINARY_CLOUD_NAME"`
		APIKey    string `env:"CLOUDINARY_API_KEY"`
		APISecret string `env:"CLOUDINARY_API_SECRET"`
		Folder    string `env:"CLOUDINARY_FOLDER" envDefault:"sarvsaathi"`
	}

	ML struct {
		URL     string        `env:"ML_SERVICE_URL" envDefault:"http://localhost:5001"`
		Timeout time.Duration `env:"ML_SERVICE_TIMEOUT" envDefault:"10s"`
	}

	Notify struct {
		Timeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`
		Workers int           `env:"NOTIFY_SOS_WORKERS" envDefault:"4"`
	}

	RateLimit struct {
		EmergencyPerMinute int `env:"RATE_LIMIT_EMERGENCY_PER_MINUTE" envDefault:"10"`
		EmergencyBurst     int `env:"RATE_LIMIT_EMERGENCY_BURST" envDefault:"3"`
	}

	location *time.Location
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional in containers where the environment is injected
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.App.Timezone, err)
	}
	cfg.location = loc

	if cfg.Booking.CancellationLeadTime < 0 {
		return nil, fmt.Errorf("BOOKING_CANCELLATION_LEAD_TIME must not be negative")
	}

	return cfg, nil
}

// DSN builds the MySQL data source name.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name)
}

// Location is the time zone slot dates and times are entered in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// PayPalBaseURL selects the sandbox or live REST endpoint.
func (c *Config) PayPalBaseURL() string {
	if strings.EqualFold(c.PayPal.Mode, "live") {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}
