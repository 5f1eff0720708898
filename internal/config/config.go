package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration. Tokens are issued elsewhere; the engine
// only verifies them, so the secret is the whole configuration.
type JWTConfig struct {
	Secret string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// AttendanceConfig holds the attendance engine's tunables. Timezone is the
// civil timezone every calendar-date boundary is evaluated in.
type AttendanceConfig struct {
	Timezone          string
	GraceDefault      int
	GraceCacheTTL     time.Duration
	AbsentMarkingHour int
}

func Load() (*Config, error) {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	config := &Config{}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance-engine"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.JWT = JWTConfig{
		Secret: getEnv("JWT_SECRET_KEY", ""),
	}

	graceDefault, err := strconv.Atoi(getEnv("GRACE_DEFAULT_MINUTES", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRACE_DEFAULT_MINUTES: %w", err)
	}

	graceTTL, err := time.ParseDuration(getEnv("GRACE_CACHE_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRACE_CACHE_TTL: %w", err)
	}

	absentHour, err := strconv.Atoi(getEnv("ABSENT_MARKING_HOUR", "23"))
	if err != nil {
		return nil, fmt.Errorf("invalid ABSENT_MARKING_HOUR: %w", err)
	}

	config.Attendance = AttendanceConfig{
		Timezone:          getEnv("CIVIL_TIMEZONE", "Asia/Jakarta"),
		GraceDefault:      graceDefault,
		GraceCacheTTL:     graceTTL,
		AbsentMarkingHour: absentHour,
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Attendance.GraceDefault < 0 {
		return fmt.Errorf("GRACE_DEFAULT_MINUTES must not be negative")
	}
	if c.Attendance.AbsentMarkingHour < 0 || c.Attendance.AbsentMarkingHour > 23 {
		return fmt.Errorf("ABSENT_MARKING_HOUR must be between 0 and 23")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
