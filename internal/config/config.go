package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	WhatsApp     WhatsAppConfig     `mapstructure:"whatsapp"`
	Booking      BookingConfig      `mapstructure:"booking"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Notification NotificationConfig `mapstructure:"notification"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host" envconfig:"DB_HOST" validate:"required"`
	Port         int    `mapstructure:"port" envconfig:"DB_PORT"`
	User         string `mapstructure:"user" envconfig:"DB_USER" validate:"required"`
	Password     string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name         string `mapstructure:"name" envconfig:"DB_NAME" validate:"required"`
	SSLMode      string `mapstructure:"sslmode" envconfig:"DB_SSLMODE"`
	MaxOpenConns int    `mapstructure:"max_open_conns" envconfig:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" envconfig:"DB_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" envconfig:"REDIS_URL"`
}

type WhatsAppConfig struct {
	APIURL        string `mapstructure:"api_url" envconfig:"WHATSAPP_API_URL" validate:"required,url"`
	PhoneNumberID string `mapstructure:"phone_number_id" envconfig:"WHATSAPP_PHONE_NUMBER_ID" validate:"required"`
	AccessToken   string `mapstructure:"access_token" envconfig:"WHATSAPP_ACCESS_TOKEN" validate:"required"`
	VerifyToken   string `mapstructure:"verify_token" envconfig:"WHATSAPP_VERIFY_TOKEN" validate:"required"`
	// AppSecret enables webhook signature verification when set.
	AppSecret string `mapstructure:"app_secret" envconfig:"WHATSAPP_APP_SECRET"`
}

// BookingConfig holds the business-hours window used for slot generation.
// Times are local to Timezone in HH:MM form.
type BookingConfig struct {
	OpenTime  string `mapstructure:"open_time" validate:"required"`
	CloseTime string `mapstructure:"close_time" validate:"required"`
	Timezone  string `mapstructure:"timezone" validate:"required"`
}

// Window parses the configured business hours into minutes from midnight
// and resolves the location.
func (c BookingConfig) Window() (openMin, closeMin int, loc *time.Location, err error) {
	open, err := time.Parse("15:04", c.OpenTime)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid open_time %q: %w", c.OpenTime, err)
	}
	close, err := time.Parse("15:04", c.CloseTime)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid close_time %q: %w", c.CloseTime, err)
	}
	loc, err = time.LoadLocation(c.Timezone)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	openMin = open.Hour()*60 + open.Minute()
	closeMin = close.Hour()*60 + close.Minute()
	if closeMin <= openMin {
		return 0, 0, nil, fmt.Errorf("close_time %q is not after open_time %q", c.CloseTime, c.OpenTime)
	}
	return openMin, closeMin, loc, nil
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type NotificationConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	SMTPHost     string `mapstructure:"smtp_host" envconfig:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"smtp_port" envconfig:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"smtp_user" envconfig:"SMTP_USER"`
	SMTPPassword string `mapstructure:"smtp_password" envconfig:"SMTP_PASSWORD"`
	From         string `mapstructure:"from"`
	BusinessTo   string `mapstructure:"business_to"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Environment variables override file values for secrets and deploy
	// specific settings.
	for _, section := range []interface{}{
		&config.Database,
		&config.Redis,
		&config.WhatsApp,
		&config.Notification,
	} {
		if err := envconfig.Process("", section); err != nil {
			return nil, fmt.Errorf("failed to process env overrides: %w", err)
		}
	}

	applyDefaults(&config)

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, _, _, err := config.Booking.Window(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Booking.OpenTime == "" {
		cfg.Booking.OpenTime = "09:00"
	}
	if cfg.Booking.CloseTime == "" {
		cfg.Booking.CloseTime = "17:00"
	}
	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Africa/Johannesburg"
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 50
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 100
	}
}
