// Package config loads the explicit settings passed to the bookmark store
// and CLI. Values come from, lowest to highest precedence: built-in
// defaults, a YAML file, READMARK_* environment variables and caller
// overrides (usually command-line flags). The merged result is checked
// against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaCUE string

// ErrInvalidConfig is returned when loaded values fail schema validation.
var ErrInvalidConfig = errors.New("invalid config")

// Keys understood in files, env and overrides.
const (
	KeyDatabasePath = "database_path"
	KeyLogLevel     = "log_level"
	KeyPrettyLog    = "pretty_log"
)

// Config is the top-level readmark configuration.
type Config struct {
	DatabasePath string `mapstructure:"database_path" json:"database_path"`
	LogLevel     string `mapstructure:"log_level" json:"log_level"`
	PrettyLog    bool   `mapstructure:"pretty_log" json:"pretty_log"`
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config file. When empty, READMARK_CONFIG and then
	// DefaultPath are tried, and a missing file is not an error.
	File string

	// Overrides win over every other source. Keys are the Key* constants.
	Overrides map[string]any
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "readmark", "config.yml")
}

// DefaultDatabasePath returns where the bookmark database lives when
// nothing else is configured.
func DefaultDatabasePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "readmark", "bookmarks.db")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatabasePath: DefaultDatabasePath(),
		LogLevel:     "info",
		PrettyLog:    false,
	}
}

// Load merges every configuration source and validates the result.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyDatabasePath, def.DatabasePath)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyPrettyLog, def.PrettyLog)

	v.SetEnvPrefix("READMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := opts.File != ""
	configPath := opts.File
	if configPath == "" {
		configPath = os.Getenv("READMARK_CONFIG")
		explicit = configPath != ""
	}
	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
		if explicit || !missing {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.DatabasePath = ExpandHome(cfg.DatabasePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks c against the embedded CUE schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(c))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
