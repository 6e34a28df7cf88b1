package config

import (
	"time"
)

const (
	DefaultConfigFile = "unpack.toml"

	// DefaultMaxFileBytes is the inclusive upload ceiling (10 MiB).
	DefaultMaxFileBytes int64 = 10 * 1024 * 1024
)

type Config struct {
	Version       int           `toml:"version"`
	Ingest        Ingest        `toml:"ingest"`
	Loader        Loader        `toml:"loader"`
	Structure     Structure     `toml:"structure"`
	Oracle        Oracle        `toml:"oracle"`
	Records       Records       `toml:"records"`
	Scan          Scan          `toml:"scan"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Ingest struct {
	MaxFileBytes      int64    `toml:"max_file_bytes"`
	AllowedExtensions []string `toml:"allowed_extensions"`
	SourceExtensions  []string `toml:"source_extensions"`
	Concurrency       int      `toml:"concurrency"`
	IDStrategy        string   `toml:"id_strategy"` // random or fingerprint
}

type Loader struct {
	MaxAttempts    int           `toml:"max_attempts"`
	AttemptTimeout time.Duration `toml:"attempt_timeout"`
	Backoff        time.Duration `toml:"backoff"`
}

type Structure struct {
	FrameworkTokens []string `toml:"framework_tokens"`
}

type Oracle struct {
	Enabled       *bool         `toml:"enabled"`
	Provider      string        `toml:"provider"` // gemini or fake
	Model         string        `toml:"model"`
	APIKeyEnv     string        `toml:"api_key_env"`
	RPS           float64       `toml:"rps"`
	Burst         int           `toml:"burst"`
	Timeout       time.Duration `toml:"timeout"`
	FailurePolicy string        `toml:"failure_policy"` // keep or drop
	CacheEntries  int           `toml:"cache_entries"`
}

func (o Oracle) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

type Records struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`
	ReuseSemantic *bool  `toml:"reuse_semantic"`
}

func (r Records) ReuseSemanticEnabled() bool {
	return r.ReuseSemantic == nil || *r.ReuseSemantic
}

type Scan struct {
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

var defaultAllowedExtensions = []string{
	".txt", ".md", ".js", ".mjs", ".cjs", ".ts", ".jsx", ".tsx", ".py",
	".c", ".cpp", ".cc", ".h", ".hpp", ".cs", ".java", ".rb", ".php",
	".go", ".rs", ".kt", ".swift", ".sh", ".sql",
	".json", ".csv", ".yml", ".yaml", ".xml", ".toml", ".proto",
}

var defaultSourceExtensions = []string{
	".js", ".mjs", ".cjs", ".ts", ".jsx", ".tsx", ".py",
	".c", ".cpp", ".cc", ".h", ".hpp", ".cs", ".java", ".rb", ".php",
	".go", ".rs", ".kt", ".swift",
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}
