// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every runtime setting for the service.
type Config struct {
	AppEnv           string
	LogLevel         string
	MetricsNamespace string

	TelegramToken string
	AdminChatID   int64
	PollTimeout   time.Duration

	// DatabaseURL selects Postgres when set; otherwise SQLitePath is used.
	DatabaseURL string
	SQLitePath  string
	SeedCSVPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	SessionTTL    time.Duration

	BlobDir        string
	ReportFontPath string

	Timezone    string
	DonationDay int
	ReminderDay int
	ReportDay   int
	NotifyHour  int
	ReportHour  int

	HTTPListenAddr string
	PublicBasePath string
}

// Load reads configuration from environment variables, applying defaults
// for everything except the Telegram token.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "donorbot"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "donor_bot.db"),
		SeedCSVPath: getEnv("SEED_CSV_PATH", "donors.csv"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		BlobDir:        getEnv("BLOB_DIR", "proofs"),
		ReportFontPath: os.Getenv("REPORT_FONT_PATH"),

		Timezone: getEnv("BOT_TIMEZONE", "Asia/Tehran"),

		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBasePath: os.Getenv("PUBLIC_BASE_PATH"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var err error
	if cfg.AdminChatID, err = getEnvInt64("ADMIN_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = getEnvBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = getEnvDuration("TELEGRAM_POLL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DonationDay, err = getEnvInt("DONATION_DAY", 3); err != nil {
		return nil, err
	}
	if cfg.ReminderDay, err = getEnvInt("REMINDER_DAY", 7); err != nil {
		return nil, err
	}
	if cfg.ReportDay, err = getEnvInt("REPORT_DAY", 10); err != nil {
		return nil, err
	}
	if cfg.NotifyHour, err = getEnvInt("NOTIFY_HOUR", 9); err != nil {
		return nil, err
	}
	if cfg.ReportHour, err = getEnvInt("REPORT_HOUR", 20); err != nil {
		return nil, err
	}

	for _, day := range []struct {
		name  string
		value int
	}{
		{"DONATION_DAY", cfg.DonationDay},
		{"REMINDER_DAY", cfg.ReminderDay},
		{"REPORT_DAY", cfg.ReportDay},
	} {
		if day.value < 1 || day.value > 29 {
			return nil, fmt.Errorf("%s must be between 1 and 29, got %d", day.name, day.value)
		}
	}
	for _, hour := range []struct {
		name  string
		value int
	}{
		{"NOTIFY_HOUR", cfg.NotifyHour},
		{"REPORT_HOUR", cfg.ReportHour},
	} {
		if hour.value < 0 || hour.value > 23 {
			return nil, fmt.Errorf("%s must be between 0 and 23, got %d", hour.name, hour.value)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
