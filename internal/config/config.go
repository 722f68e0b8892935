// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// PublicBaseURL is the externally reachable base URL embedded in voice
	// document actions and status-callback URLs.
	PublicBaseURL string

	// NATS settings. Empty URL disables the audit event stream.
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string

	// Vendor discovery
	PlacesAPIKey  string
	PlacesBaseURL string

	// Telephony
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioBaseURL    string
	WebhookSecret    string

	// Negotiation tuning
	MaxAttempts       int
	DefaultOfferPrice int
	DefaultQuantity   int
	FallbackIncrement int
	ConcessionBump    int
	GatherTimeout     time.Duration
	GatherMaxDigits   int

	// Payment
	PaymentSourceCurrency string
	PaymentTargetCurrency string
	PayoutDestination     string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "openai"),

		// Vendor discovery
		PlacesAPIKey:  getEnv("PLACES_API_KEY", ""),
		PlacesBaseURL: getEnv("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),

		// Telephony
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioBaseURL:    getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		WebhookSecret:    getEnv("WEBHOOK_SECRET", ""),

		// Negotiation
		MaxAttempts:       getIntEnv("NEGOTIATION_MAX_ATTEMPTS", 3),
		DefaultOfferPrice: getIntEnv("NEGOTIATION_OPENING_OFFER", 8000),
		DefaultQuantity:   getIntEnv("NEGOTIATION_DEFAULT_QUANTITY", 5),
		FallbackIncrement: getIntEnv("NEGOTIATION_FALLBACK_INCREMENT", 2000),
		ConcessionBump:    getIntEnv("NEGOTIATION_CONCESSION_BUMP", 500),
		GatherTimeout:     getDurationEnv("GATHER_TIMEOUT", 5*time.Second),
		GatherMaxDigits:   getIntEnv("GATHER_MAX_DIGITS", 1),

		// Payment
		PaymentSourceCurrency: getEnv("PAYMENT_SOURCE_CURRENCY", "INR"),
		PaymentTargetCurrency: getEnv("PAYMENT_TARGET_CURRENCY", "USDC"),
		PayoutDestination:     getEnv("PAYOUT_DESTINATION", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
