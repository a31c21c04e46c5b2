// Package config provides centralized default values for BingoCast
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database
	SQLitePath               string
	TursoDatabase            string
	TursoToken               string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int

	// Auth
	JWTSecret            string
	BroadcasterPassHash  string
	TokenLifetime        time.Duration
	PaymentWebhookSecret string

	// Grid bounds
	GridDimensionMin int
	GridDimensionMax int

	// Trigger verification
	TriggerFreshnessWindow time.Duration

	// Upstream collaborator calls
	UpstreamTimeout        time.Duration
	UpstreamMaxRetries     int
	UpstreamInitialBackoff time.Duration
	UpstreamMaxBackoff     time.Duration
	PaymentAPIBaseURL      string
	PaymentAPIKey          string
	StreamingAPIBaseURL    string
	StreamingCallbackURL   string

	// Realtime hub
	WSSendBufferSize  int
	WSWriteTimeout    time.Duration
	WSPongTimeout     time.Duration
	WSPingInterval    time.Duration
	WSMaxMessageBytes int64

	// Pending payments
	PendingPaymentTTL time.Duration
	CleanupInterval   time.Duration

	// Email notifications
	ResendAPIKey    string
	EmailFromSender string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database
	SQLitePath = getEnvString("SQLITE_PATH", "db/bingocast.db")
	TursoDatabase = getEnvString("TURSO_DATABASE_URL", "")
	TursoToken = getEnvString("TURSO_AUTH_TOKEN", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)

	// Auth
	JWTSecret = getEnvString("JWT_SECRET", "")
	BroadcasterPassHash = getEnvString("BROADCASTER_PASSWORD_HASH", "")
	TokenLifetime = getEnvDuration("TOKEN_LIFETIME", 12*time.Hour)
	PaymentWebhookSecret = getEnvString("PAYMENT_WEBHOOK_SECRET", "")

	// Grid bounds
	GridDimensionMin = getEnvInt("GRID_DIMENSION_MIN", 3)
	GridDimensionMax = getEnvInt("GRID_DIMENSION_MAX", 7)

	// Trigger verification
	TriggerFreshnessWindow = getEnvDuration("TRIGGER_FRESHNESS_WINDOW", 10*time.Minute)

	// Upstream collaborator calls
	UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	UpstreamMaxRetries = getEnvInt("UPSTREAM_MAX_RETRIES", 3)
	UpstreamInitialBackoff = getEnvDuration("UPSTREAM_INITIAL_BACKOFF", 250*time.Millisecond)
	UpstreamMaxBackoff = getEnvDuration("UPSTREAM_MAX_BACKOFF", 5*time.Second)
	PaymentAPIBaseURL = getEnvString("PAYMENT_API_BASE_URL", "https://api.payments.example.com")
	PaymentAPIKey = getEnvString("PAYMENT_API_KEY", "")
	StreamingAPIBaseURL = getEnvString("STREAMING_API_BASE_URL", "https://api.platform.example.com")
	StreamingCallbackURL = getEnvString("STREAMING_CALLBACK_URL", "")

	// Realtime hub
	WSSendBufferSize = getEnvInt("WS_SEND_BUFFER_SIZE", 32)
	WSWriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second)
	WSPongTimeout = getEnvDuration("WS_PONG_TIMEOUT", 60*time.Second)
	WSPingInterval = getEnvDuration("WS_PING_INTERVAL", 45*time.Second)
	WSMaxMessageBytes = int64(getEnvInt("WS_MAX_MESSAGE_BYTES", 4096))

	// Pending payments
	PendingPaymentTTL = getEnvDuration("PENDING_PAYMENT_TTL", 30*time.Minute)
	CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 5*time.Minute)

	// Email notifications
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EmailFromSender = getEnvString("EMAIL_FROM_SENDER", "BingoCast <notify@bingocast.app>")
}
