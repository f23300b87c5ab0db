package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is everything main needs to wire the service.
type Config struct {
	Addr           string
	DatabaseURL    string
	Production     bool
	AllowedOrigins string

	JWTSecret           string
	SessionTTL          time.Duration
	GatewayToken        string
	TrustGatewayHeaders bool

	TelegramBotToken string

	R2 R2Config

	SettlementInterval time.Duration
	ReconcileInterval  time.Duration
	ReconcileGrace     time.Duration

	Tournament TournamentConfig
	AntiCheat  AntiCheatConfig
	Reward     RewardConfig
}

// R2Config points the settlement archive at a Cloudflare R2 bucket.
// An empty Bucket disables archiving.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether receipts should be uploaded.
func (c R2Config) Enabled() bool {
	return c.Bucket != "" && c.AccountID != ""
}

// Load reads the environment. Call godotenv.Load before it if a .env file is used.
func Load() (Config, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ADDR", ":5200")
	}

	tournament := DefaultTournamentConfig()
	tournament.HourlyEntryFee = envInt64Default("HOURLY_ENTRY_FEE", tournament.HourlyEntryFee)
	tournament.DailyEntryFee = envInt64Default("DAILY_ENTRY_FEE", tournament.DailyEntryFee)
	tournament.HourlyJoinWindow = envDurationDefault("HOURLY_JOIN_WINDOW", tournament.HourlyJoinWindow)
	tournament.DailyJoinWindow = envDurationDefault("DAILY_JOIN_WINDOW", tournament.DailyJoinWindow)
	tournament.LeaderboardSize = int(envInt64Default("LEADERBOARD_SIZE", int64(tournament.LeaderboardSize)))
	tournament.SettlementBatchSize = int(envInt64Default("SETTLEMENT_BATCH_SIZE", int64(tournament.SettlementBatchSize)))

	if path := strings.TrimSpace(os.Getenv("EVENTS_FILE")); path != "" {
		events, err := LoadEvents(path)
		if err != nil {
			return Config{}, err
		}
		tournament.Events = events
	}

	cfg := Config{
		Addr:           addr,
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Production:     envBoolDefault("PRODUCTION", false),
		AllowedOrigins: envDefault("ALLOWED_ORIGINS", "http://localhost:3000"),

		JWTSecret:           strings.TrimSpace(os.Getenv("JWT_SECRET")),
		SessionTTL:          envDurationDefault("SESSION_TTL", 24*time.Hour),
		GatewayToken:        strings.TrimSpace(os.Getenv("GAME_SERVICE_TOKEN")),
		TrustGatewayHeaders: envBoolDefault("TRUST_GATEWAY_HEADERS", false),

		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),

		R2: R2Config{
			AccountID:       strings.TrimSpace(os.Getenv("CLOUDFLARE_ACCOUNT_ID")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
			AccessKeySecret: strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_SECRET")),
			Bucket:          strings.TrimSpace(os.Getenv("R2_BUCKET_NAME")),
		},

		SettlementInterval: envDurationDefault("SETTLEMENT_INTERVAL", time.Minute),
		ReconcileInterval:  envDurationDefault("RECONCILE_INTERVAL", 5*time.Minute),
		ReconcileGrace:     envDurationDefault("RECONCILE_GRACE", 10*time.Minute),

		Tournament: tournament,
		AntiCheat:  DefaultAntiCheatConfig(),
		Reward:     DefaultRewardConfig(),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.TrustGatewayHeaders && cfg.GatewayToken == "" {
		return cfg, fmt.Errorf("GAME_SERVICE_TOKEN is required when TRUST_GATEWAY_HEADERS is set")
	}
	if err := cfg.Tournament.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
