package configs

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port                string
	APIPrefix           string
	StoreDriver         string
	MongoURI            string
	DBName              string
	PostgresDSN         string
	JWTSecret           string
	JWTTTL              time.Duration
	FineRate            float64
	RequestTimeout      time.Duration
	LogLevel            string
	AuditExportInterval time.Duration
}

// LoadConfig reads .env (if present) and the environment. Unset values fall
// back to defaults; malformed ones are an error.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:                envOr(getenv, "PORT", "8080"),
		APIPrefix:           strings.TrimSuffix(getenv("API_PREFIX"), "/"),
		StoreDriver:         strings.ToLower(envOr(getenv, "STORE_DRIVER", DriverMongo)),
		MongoURI:            envOr(getenv, "MONGO_URI", "mongodb://localhost:27017"),
		DBName:              envOr(getenv, "DB_NAME", "library"),
		PostgresDSN:         getenv("POSTGRES_DSN"),
		JWTSecret:           getenv("JWT_SECRET"),
		JWTTTL:              24 * time.Hour,
		FineRate:            10,
		RequestTimeout:      5 * time.Second,
		LogLevel:            envOr(getenv, "LOG_LEVEL", "info"),
		AuditExportInterval: 30 * time.Second,
	}

	if val := getenv("FINE_RATE"); val != "" {
		var fineRate float64
		if _, err := fmt.Sscanf(val, "%f", &fineRate); err != nil || fineRate <= 0 {
			return cfg, fmt.Errorf("invalid FINE_RATE %q", val)
		}
		cfg.FineRate = fineRate
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_TTL", &cfg.JWTTTL},
		{"REQUEST_TIMEOUT", &cfg.RequestTimeout},
		{"AUDIT_EXPORT_INTERVAL", &cfg.AuditExportInterval},
	}
	for _, d := range durations {
		val := getenv(d.key)
		if val == "" {
			continue
		}
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s %q: %w", d.key, val, err)
		}
		*d.dst = parsed
	}

	switch cfg.StoreDriver {
	case DriverMongo, DriverMemory:
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return cfg, fmt.Errorf("POSTGRES_DSN is required for STORE_DRIVER=postgres")
		}
	default:
		return cfg, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

func envOr(getenv func(string) string, key, fallback string) string {
	if val := getenv(key); val != "" {
		return val
	}
	return fallback
}
