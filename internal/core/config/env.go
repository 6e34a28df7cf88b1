package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: UNPACK_[SECTION]_[KEY] (e.g., UNPACK_ORACLE_MODEL).
func ApplyEnvOverrides(cfg *Config) {
	// Ingest
	setEnvInt64(&cfg.Ingest.MaxFileBytes, "UNPACK_INGEST_MAX_FILE_BYTES")
	setEnvList(&cfg.Ingest.AllowedExtensions, "UNPACK_INGEST_ALLOWED_EXTENSIONS")
	setEnvInt(&cfg.Ingest.Concurrency, "UNPACK_INGEST_CONCURRENCY")
	setEnvString(&cfg.Ingest.IDStrategy, "UNPACK_INGEST_ID_STRATEGY")

	// Loader
	setEnvInt(&cfg.Loader.MaxAttempts, "UNPACK_LOADER_MAX_ATTEMPTS")
	setEnvDuration(&cfg.Loader.AttemptTimeout, "UNPACK_LOADER_ATTEMPT_TIMEOUT")
	setEnvDuration(&cfg.Loader.Backoff, "UNPACK_LOADER_BACKOFF")

	// Oracle
	setEnvBoolPtr(&cfg.Oracle.Enabled, "UNPACK_ORACLE_ENABLED")
	setEnvString(&cfg.Oracle.Provider, "UNPACK_ORACLE_PROVIDER")
	setEnvString(&cfg.Oracle.Model, "UNPACK_ORACLE_MODEL")
	setEnvFloat64(&cfg.Oracle.RPS, "UNPACK_ORACLE_RPS")
	setEnvInt(&cfg.Oracle.Burst, "UNPACK_ORACLE_BURST")
	setEnvDuration(&cfg.Oracle.Timeout, "UNPACK_ORACLE_TIMEOUT")
	setEnvString(&cfg.Oracle.FailurePolicy, "UNPACK_ORACLE_FAILURE_POLICY")

	// Records
	setEnvBool(&cfg.Records.Enabled, "UNPACK_RECORDS_ENABLED")
	setEnvString(&cfg.Records.Path, "UNPACK_RECORDS_PATH")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "UNPACK_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "UNPACK_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "UNPACK_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "UNPACK_OBSERVABILITY_OTLP_ENDPOINT")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
