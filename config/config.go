package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string
	OfficeName  string
	BaseURL     string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Queue configuration
	DefaultServiceDuration time.Duration
	AllowCallShortcut      bool

	// Notification configuration
	SMSEnabled         bool
	NotifyThreshold    int
	WaitUpdateDelta    time.Duration
	WaitUpdateCooldown time.Duration

	// Background loops
	EstimateRefreshInterval time.Duration
	DayRolloverCheck        time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		OfficeName:  getEnv("OFFICE_NAME", "Dr. Smith's Office"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8090"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Queue
		DefaultServiceDuration: getEnvAsDuration("DEFAULT_SERVICE_DURATION", "15m"),
		AllowCallShortcut:      getEnvAsBool("ALLOW_CALL_SHORTCUT", true),

		// Notifications
		SMSEnabled:         getEnvAsBool("SMS_ENABLED", false),
		NotifyThreshold:    getEnvAsInt("NOTIFY_THRESHOLD_PATIENTS", 2),
		WaitUpdateDelta:    getEnvAsDuration("WAIT_UPDATE_DELTA", "5m"),
		WaitUpdateCooldown: getEnvAsDuration("WAIT_UPDATE_COOLDOWN", "3m"),

		// Background loops
		EstimateRefreshInterval: getEnvAsDuration("ESTIMATE_REFRESH_INTERVAL", "30s"),
		DayRolloverCheck:        getEnvAsDuration("DAY_ROLLOVER_CHECK", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
