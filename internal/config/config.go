package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config - структура для хранения конфигурации сервера
type Config struct {
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int    `env:"DB_MAX_CONNS" envDefault:"10"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Stats Config
	StatsTimeWindowMinutes int `env:"STATS_TIME_WINDOW_MINUTES" envDefault:"60"`

	// Threat corroboration
	ThreatWindow     time.Duration `env:"THREAT_WINDOW" envDefault:"30m"`
	ThreatThreshold  int           `env:"THREAT_THRESHOLD" envDefault:"2"`
	ThreatBoxHalfLat float64       `env:"THREAT_BOX_HALF_LAT" envDefault:"0.01"`
	ThreatBoxHalfLon float64       `env:"THREAT_BOX_HALF_LON" envDefault:"0.01"`

	// API Keys for operator endpoints
	APIKeys []string `env:"API_KEYS"`
}

// AgentConfig - конфигурация агента на устройстве
type AgentConfig struct {
	BackendURL string `env:"BACKEND_URL"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	ClientTimeout    time.Duration `env:"CLIENT_TIMEOUT" envDefault:"10s"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"1m"`
	ProbeInterval    time.Duration `env:"PROBE_INTERVAL" envDefault:"15s"`
	CooldownWindow   time.Duration `env:"COOLDOWN_WINDOW" envDefault:"24h"`
	QueueMaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS" envDefault:"0"`

	DeviceLatitude  float64 `env:"DEVICE_LATITUDE"`
	DeviceLongitude float64 `env:"DEVICE_LONGITUDE"`
	// HasDeviceLocation - обе координаты заданы и разобраны
	HasDeviceLocation bool
}

// LoadConfig загружает конфигурацию сервера из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		DBMaxConns:             getEnvAsInt("DB_MAX_CONNS", 10),
		StorageDriver:          getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		HTTPPort:               getEnv("HTTP_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:              os.Getenv("REDIS_PASSWORD"),
		RedisDB:                getEnvAsInt("REDIS_DB", 0),
		WebhookURL:             os.Getenv("WEBHOOK_URL"),
		WebhookSecret:          os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:         getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:      getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:       getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		StatsTimeWindowMinutes: getEnvAsInt("STATS_TIME_WINDOW_MINUTES", 60),
		ThreatWindow:           getEnvAsDuration("THREAT_WINDOW", 30*time.Minute),
		ThreatThreshold:        getEnvAsInt("THREAT_THRESHOLD", 2),
		ThreatBoxHalfLat:       getEnvAsFloat("THREAT_BOX_HALF_LAT", 0.01),
		ThreatBoxHalfLon:       getEnvAsFloat("THREAT_BOX_HALF_LON", 0.01),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.ThreatThreshold < 1 {
		return nil, fmt.Errorf("THREAT_THRESHOLD must be positive")
	}
	if cfg.ThreatWindow <= 0 {
		return nil, fmt.Errorf("THREAT_WINDOW must be positive")
	}
	if cfg.ThreatBoxHalfLat <= 0 || cfg.ThreatBoxHalfLon <= 0 {
		return nil, fmt.Errorf("THREAT_BOX_HALF_LAT and THREAT_BOX_HALF_LON must be positive")
	}

	return cfg, nil
}

// LoadAgentConfig загружает конфигурацию агента устройства
func LoadAgentConfig() (*AgentConfig, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &AgentConfig{
		BackendURL:       strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		ClientTimeout:    getEnvAsDuration("CLIENT_TIMEOUT", 10*time.Second),
		PollInterval:     getEnvAsDuration("POLL_INTERVAL", time.Minute),
		ProbeInterval:    getEnvAsDuration("PROBE_INTERVAL", 15*time.Second),
		CooldownWindow:   getEnvAsDuration("COOLDOWN_WINDOW", 24*time.Hour),
		QueueMaxAttempts: getEnvAsInt("QUEUE_MAX_ATTEMPTS", 0),
		DeviceLatitude:   getEnvAsFloat("DEVICE_LATITUDE", 0),
		DeviceLongitude:  getEnvAsFloat("DEVICE_LONGITUDE", 0),
	}

	cfg.HasDeviceLocation = hasValidFloat("DEVICE_LATITUDE") && hasValidFloat("DEVICE_LONGITUDE")

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable is required")
	}
	// Сетевой вызов без таймаута может зависнуть навсегда
	if cfg.ClientTimeout <= 0 {
		return nil, fmt.Errorf("CLIENT_TIMEOUT must be positive")
	}
	if cfg.PollInterval <= 0 || cfg.ProbeInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL and PROBE_INTERVAL must be positive")
	}

	return cfg, nil
}

// loadDotEnv загружает переменные окружения из .env файла (если есть)
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// hasValidFloat сообщает, задана ли переменная окружения и разбирается ли она как число
func hasValidFloat(key string) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return false
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
