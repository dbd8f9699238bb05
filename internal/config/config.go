package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenTTL      time.Duration
	CORSOrigins   []string
	MigrationsDir string

	// NATSURL is the background notification agent transport. Empty disables
	// the agent bridge and alerts stay on the in-process path.
	NATSURL string

	// AgentName identifies this deployment's agent on the shared bus.
	AgentName string

	// RegisterBackoff is the retry interval after a failed agent registration.
	RegisterBackoff time.Duration

	// VerifyDelay is how long after a relayed fire time the bridge waits
	// before checking that the agent actually showed the alert.
	VerifyDelay time.Duration

	// Permission is the initial notification permission state:
	// "granted", "denied" or "undetermined".
	Permission string

	// InboxSize bounds the passive in-app message ring.
	InboxSize int
}

func Load() Config {
	return Config{
		Port:            getEnv("PORT", "8080"),
		DBPath:          getEnv("DB_PATH", "./data/parkpal.db"),
		JWTSecret:       getEnv("JWT_SECRET", "change-this-secret"),
		TokenTTL:        time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "./migrations"),
		NATSURL:         getEnv("NATS_URL", ""),
		AgentName:       getEnv("AGENT_NAME", "parkpal-agent"),
		RegisterBackoff: time.Duration(getEnvInt("AGENT_REGISTER_BACKOFF_SECONDS", 5)) * time.Second,
		VerifyDelay:     time.Duration(getEnvInt("AGENT_VERIFY_DELAY_SECONDS", 3)) * time.Second,
		Permission:      getEnv("NOTIFY_PERMISSION", "undetermined"),
		InboxSize:       getEnvInt("INBOX_SIZE", 50),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
