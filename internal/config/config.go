// Package config loads cropscore settings from defaults, a YAML file,
// CROPSCORE_* environment variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/zuhrulumam/cropscore/internal/render"
	"github.com/zuhrulumam/cropscore/internal/scoring"
)

// EnvPrefix is the prefix of environment overrides, e.g. CROPSCORE_TOP_K=5
const EnvPrefix = "CROPSCORE_"

// DefaultConfigFiles are looked up in the working directory when no file is given
var DefaultConfigFiles = []string{"cropscore.yaml", "cropscore.yml"}

// Config holds every setting of the CLI and the upload server
type Config struct {
	MalformedPolicy string  `koanf:"malformed_policy"`
	SkipThreshold   float64 `koanf:"skip_threshold"`
	TopK            int     `koanf:"top_k"`

	Output    string `koanf:"output"`
	Precision int    `koanf:"precision"`
	Preview   int    `koanf:"preview"`
	ChartPath string `koanf:"chart_path"`
	XLSXPath  string `koanf:"xlsx_path"`

	Workers int `koanf:"workers"`

	Verbose   bool   `koanf:"verbose"`
	LogFormat string `koanf:"log_format"`

	Server ServerConfig `koanf:"server"`

	// File is the config file that was loaded, if any
	File string `koanf:"-"`
}

// ServerConfig configures the HTTP upload surface
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	MaxRecords      int           `koanf:"max_records"`
	MaxConcurrent   int           `koanf:"max_concurrent"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Defaults returns the built-in settings
func Defaults() map[string]any {
	return map[string]any{
		"malformed_policy":        string(scoring.PolicyReject),
		"skip_threshold":          0.0,
		"top_k":                   scoring.DefaultTopK,
		"output":                  string(render.FormatText),
		"precision":               2,
		"preview":                 5,
		"chart_path":              "",
		"xlsx_path":               "",
		"workers":                 4,
		"verbose":                 false,
		"log_format":              "console",
		"server.addr":             ":8080",
		"server.max_upload_bytes": int64(10 << 20),
		"server.max_records":      0,
		"server.max_concurrent":   8,
		"server.shutdown_timeout": "10s",
	}
}

// flagKeys maps flag names that differ from their config key
var flagKeys = map[string]string{
	"policy":           "malformed_policy",
	"chart":            "chart_path",
	"xlsx":             "xlsx_path",
	"addr":             "server.addr",
	"max-upload-bytes": "server.max_upload_bytes",
	"max-records":      "server.max_records",
	"max-concurrent":   "server.max_concurrent",
	"shutdown-timeout": "server.shutdown_timeout",
}

// findConfigFile returns the explicit path, or the first default file present
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey maps CROPSCORE_SERVER_MAX_CONCURRENT to server.max_concurrent
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if rest, ok := strings.CutPrefix(key, "server_"); ok {
		return "server." + rest
	}
	return key
}

// Load reads configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	if _, err := scoring.ParsePolicy(c.MalformedPolicy); err != nil {
		return fmt.Errorf("malformed_policy: %w", err)
	}
	if c.SkipThreshold < 0 || c.SkipThreshold > 1 {
		return fmt.Errorf("skip_threshold must be within [0, 1], got %v", c.SkipThreshold)
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be >= 0, got %d", c.TopK)
	}
	if _, err := render.ParseFormat(c.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if c.Precision < 0 || c.Precision > 12 {
		return fmt.Errorf("precision must be within [0, 12], got %d", c.Precision)
	}
	if c.Preview < 0 {
		return fmt.Errorf("preview must be >= 0, got %d", c.Preview)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be > 0, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.MaxRecords < 0 {
		return fmt.Errorf("server.max_records must be >= 0, got %d", c.Server.MaxRecords)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("server.max_concurrent must be >= 1, got %d", c.Server.MaxConcurrent)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

// ScoringOptions converts the scoring settings
func (c *Config) ScoringOptions() scoring.Options {
	policy, _ := scoring.ParsePolicy(c.MalformedPolicy)
	return scoring.Options{
		Policy:        policy,
		TopK:          c.TopK,
		SkipThreshold: c.SkipThreshold,
	}
}

// RenderOptions converts the output settings
func (c *Config) RenderOptions() render.Options {
	format, _ := render.ParseFormat(c.Output)
	return render.Options{
		Format:    format,
		Precision: c.Precision,
		Preview:   c.Preview,
	}
}
