package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type Config struct {
	ServerPort  string
	DatabaseURL string `validate:"required"`
	RedisURL    string
	RabbitMQURL string

	KommoSubdomain   string  `validate:"required_without=KommoBaseURL"`
	KommoBaseURL     string  `validate:"omitempty,url"`
	KommoAccessToken string  `validate:"required"`
	KommoRateLimit   float64 `validate:"gt=0,lte=7"`
	KommoTimeout     time.Duration

	SyncMode           entity.SyncMode `validate:"oneof=full incremental"`
	SyncAPIKey         string
	SyncInterval       time.Duration `validate:"gte=0"`
	FullIncludeLeads   bool
	EventsLookbackDays int `validate:"gte=1"`
	MetricsTimeout     time.Duration

	TeamsFile string

	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=json console"`

	Mail     MailConfig
	WhatsApp WhatsAppConfig
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	AlertTo  string `validate:"omitempty,email"`
}

// Enabled reports whether failure alerts can be sent.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.AlertTo != ""
}

type WhatsAppConfig struct {
	AccessToken string
	PhoneID     string
	AlertTo     string `validate:"omitempty,numeric"`
	Template    string
	Language    string
}

func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneID != "" && w.AlertTo != ""
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		KommoSubdomain:   os.Getenv("KOMMO_SUBDOMAIN"),
		KommoBaseURL:     os.Getenv("KOMMO_BASE_URL"),
		KommoAccessToken: os.Getenv("KOMMO_ACCESS_TOKEN"),

		SyncMode:   entity.SyncMode(strings.ToLower(getEnv("SYNC_MODE", string(entity.SyncModeIncremental)))),
		SyncAPIKey: os.Getenv("SYNC_API_KEY"),
		TeamsFile:  os.Getenv("TEAMS_FILE"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			User:     os.Getenv("MAIL_USER"),
			Password: os.Getenv("MAIL_PASS"),
			From:     getEnv("MAIL_FROM", "no-reply@sync.local"),
			AlertTo:  os.Getenv("ALERT_EMAIL"),
		},

		WhatsApp: WhatsAppConfig{
			AccessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
			PhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
			AlertTo:     os.Getenv("ALERT_WHATSAPP_TO"),
			Template:    os.Getenv("WHATSAPP_TEMPLATE"),
			Language:    os.Getenv("WHATSAPP_LANGUAGE"),
		},
	}

	var err error
	if cfg.KommoRateLimit, err = getFloat("KOMMO_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.KommoTimeout, err = getDuration("KOMMO_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.MetricsTimeout, err = getDuration("METRICS_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.EventsLookbackDays, err = getInt("SYNC_EVENTS_LOOKBACK_DAYS", 90); err != nil {
		return nil, err
	}
	if cfg.Mail.Port, err = getInt("MAIL_PORT", 587); err != nil {
		return nil, err
	}
	cfg.FullIncludeLeads = getBool("SYNC_FULL_INCLUDE_LEADS")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// KommoAPIURL is the v4 API root for the configured account.
func (c *Config) KommoAPIURL() string {
	if c.KommoBaseURL != "" {
		return strings.TrimRight(c.KommoBaseURL, "/")
	}
	return fmt.Sprintf("https://%s.kommo.com/api/v4", c.KommoSubdomain)
}

func (c *Config) EventsLookback() time.Duration {
	return time.Duration(c.EventsLookbackDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return v, nil
}

func getBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
