package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("missing required env GEMINI_API_KEY")

type Config struct {
	Port      string
	StaticDir string

	GeminiAPIKey string
	GeminiModel  string

	// 0: без дедлайна на запрос
	ChatTimeout time.Duration

	// пусто: журнал обменов выключен
	DatabaseURL       string
	ExchangeRetention time.Duration

	TelegramBotToken string
	WebhookURL       string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("env %s: %w", k, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("env %s: must not be negative", k)
	}
	return d, nil
}

// Load читает окружение; .env подхватывается, если он есть рядом.
// Без GEMINI_API_KEY процесс стартовать не должен.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8000"),
		StaticDir: getEnv("STATIC_DIR", "api/static"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		DatabaseURL: resolveDSN(),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
	}
	if cfg.GeminiAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var err error
	if cfg.ChatTimeout, err = getDuration("CHAT_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.ExchangeRetention, err = getDuration("EXCHANGE_RETENTION"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveDSN: DATABASE_URL в приоритете, иначе собираем из POSTGRES_*/PG*,
// но только если задан хотя бы PGHOST или POSTGRES_DB.
func resolveDSN() string {
	if v := getEnv("DATABASE_URL", ""); v != "" {
		return v
	}
	host := getEnv("PGHOST", "")
	name := getEnv("POSTGRES_DB", "")
	if host == "" && name == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "schedule"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "localhost"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "schedule"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
