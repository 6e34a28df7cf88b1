package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to DefaultConfig when path is the
// default file name and does not exist. Explicit paths must exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if path == DefaultConfigFile && errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return nil, err
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Ingest.MaxFileBytes <= 0 {
		cfg.Ingest.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(cfg.Ingest.AllowedExtensions) == 0 {
		cfg.Ingest.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	if len(cfg.Ingest.SourceExtensions) == 0 {
		cfg.Ingest.SourceExtensions = append([]string(nil), defaultSourceExtensions...)
	}
	if cfg.Ingest.Concurrency <= 0 {
		cfg.Ingest.Concurrency = 8
	}
	if strings.TrimSpace(cfg.Ingest.IDStrategy) == "" {
		cfg.Ingest.IDStrategy = "random"
	}

	if cfg.Loader.MaxAttempts <= 0 {
		cfg.Loader.MaxAttempts = 3
	}
	if cfg.Loader.AttemptTimeout <= 0 {
		cfg.Loader.AttemptTimeout = 30 * time.Second
	}
	if cfg.Loader.Backoff <= 0 {
		cfg.Loader.Backoff = time.Second
	}

	if cfg.Structure.FrameworkTokens == nil {
		cfg.Structure.FrameworkTokens = []string{"React", "Vue", "Angular", "Svelte"}
	}

	if strings.TrimSpace(cfg.Oracle.Provider) == "" {
		cfg.Oracle.Provider = "gemini"
	}
	if strings.TrimSpace(cfg.Oracle.Model) == "" {
		cfg.Oracle.Model = "gemini-1.5-flash"
	}
	if strings.TrimSpace(cfg.Oracle.APIKeyEnv) == "" {
		cfg.Oracle.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Oracle.RPS == 0 {
		// Free-tier Gemini allows 15 requests per minute.
		cfg.Oracle.RPS = 0.25
	}
	if cfg.Oracle.Burst <= 0 {
		cfg.Oracle.Burst = 1
	}
	if strings.TrimSpace(cfg.Oracle.FailurePolicy) == "" {
		cfg.Oracle.FailurePolicy = "keep"
	}
	if cfg.Oracle.CacheEntries <= 0 {
		cfg.Oracle.CacheEntries = 256
	}

	if strings.TrimSpace(cfg.Records.Path) == "" {
		cfg.Records.Path = "data/unpack.db"
	}

	if cfg.Scan.ExcludeDirs == nil {
		cfg.Scan.ExcludeDirs = []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__"}
	}
	if cfg.Scan.ExcludeFiles == nil {
		cfg.Scan.ExcludeFiles = []string{"*.min.js", "*.lock", "*.map"}
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "unpack"
	}
}

func normalize(cfg *Config) {
	cfg.Ingest.AllowedExtensions = normalizeExtensions(cfg.Ingest.AllowedExtensions)
	cfg.Ingest.SourceExtensions = normalizeExtensions(cfg.Ingest.SourceExtensions)
	cfg.Ingest.IDStrategy = strings.ToLower(strings.TrimSpace(cfg.Ingest.IDStrategy))
	cfg.Oracle.Provider = strings.ToLower(strings.TrimSpace(cfg.Oracle.Provider))
	cfg.Oracle.Model = strings.TrimSpace(cfg.Oracle.Model)
	cfg.Oracle.APIKeyEnv = strings.TrimSpace(cfg.Oracle.APIKeyEnv)
	cfg.Oracle.FailurePolicy = strings.ToLower(strings.TrimSpace(cfg.Oracle.FailurePolicy))
	cfg.Records.Path = strings.TrimSpace(cfg.Records.Path)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	tokens := make([]string, 0, len(cfg.Structure.FrameworkTokens))
	for _, tok := range cfg.Structure.FrameworkTokens {
		if tok = strings.TrimSpace(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	cfg.Structure.FrameworkTokens = tokens
}

// normalizeExtensions lower-cases, adds the leading dot and drops duplicates.
func normalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return fmt.Errorf("invalid config: %w", errs[0])
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
