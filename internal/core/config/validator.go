package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate returns every problem found instead of stopping at the first.
func Validate(cfg *Config) []error {
	var errs []error
	errs = append(errs, validateVersion(cfg)...)
	errs = append(errs, validateIngest(cfg)...)
	errs = append(errs, validateLoader(cfg)...)
	errs = append(errs, validateOracle(cfg)...)
	errs = append(errs, validateRecords(cfg)...)
	errs = append(errs, validateScan(cfg)...)
	return errs
}

func validateVersion(cfg *Config) []error {
	if cfg.Version != 1 {
		return []error{fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)}
	}
	return nil
}

func validateIngest(cfg *Config) []error {
	var errs []error
	if cfg.Ingest.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("ingest.max_file_bytes must be > 0, got %d", cfg.Ingest.MaxFileBytes))
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		errs = append(errs, fmt.Errorf("ingest.allowed_extensions must not be empty"))
	}
	if cfg.Ingest.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("ingest.concurrency must be > 0, got %d", cfg.Ingest.Concurrency))
	}
	switch cfg.Ingest.IDStrategy {
	case "random", "fingerprint":
	default:
		errs = append(errs, fmt.Errorf("ingest.id_strategy must be one of: random, fingerprint"))
	}
	return errs
}

func validateLoader(cfg *Config) []error {
	var errs []error
	if cfg.Loader.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("loader.max_attempts must be >= 1, got %d", cfg.Loader.MaxAttempts))
	}
	if cfg.Loader.AttemptTimeout <= 0 {
		errs = append(errs, fmt.Errorf("loader.attempt_timeout must be > 0"))
	}
	if cfg.Loader.Backoff < 0 {
		errs = append(errs, fmt.Errorf("loader.backoff must not be negative"))
	}
	return errs
}

func validateOracle(cfg *Config) []error {
	var errs []error
	switch cfg.Oracle.Provider {
	case "gemini", "fake":
	default:
		errs = append(errs, fmt.Errorf("oracle.provider must be one of: gemini, fake"))
	}
	switch cfg.Oracle.FailurePolicy {
	case "keep", "drop":
	default:
		errs = append(errs, fmt.Errorf("oracle.failure_policy must be one of: keep, drop"))
	}
	if cfg.Oracle.Provider == "gemini" && cfg.Oracle.Model == "" {
		errs = append(errs, fmt.Errorf("oracle.model must not be empty for the gemini provider"))
	}
	if cfg.Oracle.RPS < 0 {
		errs = append(errs, fmt.Errorf("oracle.rps must not be negative"))
	}
	if cfg.Oracle.Timeout < 0 {
		errs = append(errs, fmt.Errorf("oracle.timeout must not be negative"))
	}
	return errs
}

func validateRecords(cfg *Config) []error {
	if cfg.Records.Enabled && strings.TrimSpace(cfg.Records.Path) == "" {
		return []error{fmt.Errorf("records.path must not be empty when records are enabled")}
	}
	return nil
}

func validateScan(cfg *Config) []error {
	var errs []error
	for i, p := range cfg.Scan.ExcludeDirs {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("scan.exclude_dirs[%d] %q: %w", i, p, err))
		}
	}
	for i, p := range cfg.Scan.ExcludeFiles {
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("scan.exclude_files[%d] %q: %w", i, p, err))
		}
	}
	return errs
}
