// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/env"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

// Datastore selects the database shared by the session store and the
// whatsmeow device store.
type Datastore struct {
	Driver string
	DSN    string
}

// Supervisor holds the pairing and reconnect timings.
type Supervisor struct {
	MaxRetries     int
	PairingBackoff time.Duration
	PairingTimeout time.Duration
	SettleDelay    time.Duration
	ReconnectDelay time.Duration
	SweepDelay     time.Duration
	SweepSchedule  string
}

// Content holds endpoints and keys for the command handlers.
type Content struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	Temperature      float32
	NASAAPIKey       string
	NewsBaseURL      string
	TikTokBaseURL    string
	HTTPTimeout      time.Duration
}

// Webhook configures lifecycle event delivery.
type Webhook struct {
	URLs       []string
	Secret     string
	Workers    int
	RetryLimit int
}

// Config holds the process configuration.
type Config struct {
	ListenAddr string
	LogLevel   string
	BotName    string
	ProxyURL   string
	// ClientVersion pins the advertised WhatsApp Web version when Major is set.
	ClientVersion [3]int

	Datastore  Datastore
	Defaults   Settings
	Supervisor Supervisor
	Content    Content
	Webhook    Webhook

	OTPExpiry       time.Duration
	NumberListPath  string
	AdminListPath   string
	OwnerNumbers    []string
	GroupInviteCode string
	NewsletterJIDs  []string

	AdminSecret string
	JWTSecret   string

	HealthCheckSchedule    string
	VersionRefreshSchedule string
}

var defaultLikeEmoji = []string{"💗", "🔥", "😍", "👍", "😶"}

// Load reads configuration from environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0") + ":" + env.GetEnvStringOrDefault("SERVER_PORT", "7001"),
		LogLevel:   env.GetEnvStringOrDefault("LOG_LEVEL", "info"),
		BotName:    env.GetEnvStringOrDefault("BOT_NAME", "SESSION BOT"),
		ProxyURL:   env.GetEnvStringOrDefault("WHATSAPP_CLIENT_PROXY_URL", ""),
		ClientVersion: [3]int{
			env.GetEnvIntOrDefault("WHATSAPP_VERSION_MAJOR", 0),
			env.GetEnvIntOrDefault("WHATSAPP_VERSION_MINOR", 0),
			env.GetEnvIntOrDefault("WHATSAPP_VERSION_PATCH", 0),
		},
		Datastore: Datastore{
			Driver: normalizeDriver(env.GetEnvStringOrDefault("DATASTORE_TYPE", "sqlite")),
			DSN:    env.GetEnvStringOrDefault("DATASTORE_URI", "file:bot.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
		},
		Defaults: Settings{
			Prefix:         env.GetEnvStringOrDefault("BOT_PREFIX", "."),
			AutoViewStatus: env.GetEnvBoolOrDefault("AUTO_VIEW_STATUS", true),
			AutoLikeStatus: env.GetEnvBoolOrDefault("AUTO_LIKE_STATUS", true),
			AutoRecording:  env.GetEnvBoolOrDefault("AUTO_RECORDING", false),
			AutoLikeEmoji:  env.GetEnvListOrDefault("AUTO_LIKE_EMOJI", defaultLikeEmoji),
		},
		Supervisor: Supervisor{
			MaxRetries:     env.GetEnvIntOrDefault("MAX_RETRIES", 3),
			PairingBackoff: env.GetEnvDurationOrDefault("PAIRING_BACKOFF", 2*time.Second),
			PairingTimeout: env.GetEnvDurationOrDefault("PAIRING_TIMEOUT", 3*time.Minute),
			SettleDelay:    env.GetEnvDurationOrDefault("SETTLE_DELAY", 3*time.Second),
			ReconnectDelay: env.GetEnvDurationOrDefault("RECONNECT_DELAY", 10*time.Second),
			SweepDelay:     env.GetEnvDurationOrDefault("SWEEP_DELAY", time.Second),
			SweepSchedule:  env.GetEnvStringOrDefault("SWEEP_CRON", "0 */30 * * * *"),
		},
		Content: Content{
			GeminiAPIKey:     env.GetEnvStringOrDefault("GEMINI_API_KEY", ""),
			GeminiModel:      env.GetEnvStringOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			GeminiImageModel: env.GetEnvStringOrDefault("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
			NASAAPIKey:       env.GetEnvStringOrDefault("NASA_API_KEY", "DEMO_KEY"),
			NewsBaseURL:      strings.TrimRight(env.GetEnvStringOrDefault("NEWS_API_BASE_URL", "https://suhas-bro-api.vercel.app"), "/"),
			TikTokBaseURL:    strings.TrimRight(env.GetEnvStringOrDefault("TIKTOK_API_BASE_URL", "https://delirius-apiofc.vercel.app"), "/"),
			HTTPTimeout:      env.GetEnvDurationOrDefault("CONTENT_HTTP_TIMEOUT", 20*time.Second),
		},
		Webhook: Webhook{
			URLs:       env.GetEnvListOrDefault("WEBHOOK_URLS", nil),
			Secret:     env.GetEnvStringOrDefault("WEBHOOK_SECRET", ""),
			Workers:    env.GetEnvIntOrDefault("WEBHOOK_WORKERS", 2),
			RetryLimit: env.GetEnvIntOrDefault("WEBHOOK_RETRY_LIMIT", 3),
		},
		OTPExpiry:       env.GetEnvDurationOrDefault("OTP_EXPIRY", 5*time.Minute),
		NumberListPath:  env.GetEnvStringOrDefault("NUMBER_LIST_PATH", "./numbers.json"),
		AdminListPath:   env.GetEnvStringOrDefault("ADMIN_LIST_PATH", "./admin.json"),
		GroupInviteCode: env.GetEnvStringOrDefault("GROUP_INVITE_CODE", ""),
		NewsletterJIDs:  env.GetEnvListOrDefault("NEWSLETTER_JIDS", nil),
		AdminSecret:     env.GetEnvStringOrDefault("ADMIN_SECRET_KEY", ""),
		JWTSecret:       env.GetEnvStringOrDefault("JWT_SECRET_KEY", ""),

		HealthCheckSchedule:    env.GetEnvStringOrDefault("HEALTH_CHECK_CRON", "0 */5 * * * *"),
		VersionRefreshSchedule: env.GetEnvStringOrDefault("WHATSAPP_VERSION_REFRESH_CRON", "0 0 3 * * *"),
	}

	temperature, err := env.GetEnvFloat32("GEMINI_TEMPERATURE")
	if err != nil {
		temperature = 0.7
	}
	cfg.Content.Temperature = temperature

	for _, owner := range env.GetEnvListOrDefault("OWNER_NUMBER", nil) {
		if n := validation.SanitizeNumber(owner); n != "" {
			cfg.OwnerNumbers = append(cfg.OwnerNumbers, n)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Datastore.Driver != "pgx" && c.Datastore.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("DATASTORE_TYPE %q is not supported (postgres or sqlite)", c.Datastore.Driver))
	}
	if c.Supervisor.MaxRetries < 1 {
		errs = append(errs, errors.New("MAX_RETRIES must be at least 1"))
	}
	if c.OTPExpiry <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRY must be positive"))
	}
	if err := c.Defaults.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("default settings: %w", err))
	}
	for _, jid := range c.NewsletterJIDs {
		if err := validation.ValidateNewsletterJID(jid); err != nil {
			errs = append(errs, fmt.Errorf("NEWSLETTER_JIDS %q: %w", jid, err))
		}
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET_KEY must be at least 32 characters"))
	}
	return errors.Join(errs...)
}

// normalizeDriver maps user-facing datastore names onto database/sql drivers.
func normalizeDriver(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pgx":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}
