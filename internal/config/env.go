// Package config provides centralized configuration management.
// Values come from, in increasing priority: built-in defaults,
// <home>/config.yaml, .env files, and the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultModel            = "gpt-4o-mini"
	DefaultLogLevel         = "warn"
	DefaultIDFormat         = "hex"
	DefaultSnapshotKeep     = 20
	DefaultGeneratorTimeout = 60 * time.Second
)

// CopilotEnv holds all copilot settings.
type CopilotEnv struct {
	// Home is the copilot home directory (COPILOT_HOME, default ~/.copilot)
	Home string

	// Document is the default document path (COPILOT_DOCUMENT)
	Document string

	// CreatorID stamps createdByID/updatedByID on new records (COPILOT_CREATOR_ID)
	CreatorID int

	// Model is the generator model (COPILOT_MODEL)
	Model string

	// OpenAIKey is the generator API key (OPENAI_API_KEY)
	OpenAIKey string

	// OpenAIBaseURL overrides the generator endpoint (OPENAI_BASE_URL)
	OpenAIBaseURL string

	// LogLevel is the minimum log level (COPILOT_LOG_LEVEL)
	LogLevel string

	// IDFormat selects the identifier allocator, "hex" or "objectid" (COPILOT_ID_FORMAT)
	IDFormat string

	// SnapshotKeep is how many snapshots to keep per document (COPILOT_SNAPSHOT_KEEP)
	SnapshotKeep int

	// GeneratorTimeout bounds one generator call (COPILOT_GENERATOR_TIMEOUT)
	GeneratorTimeout time.Duration
}

// FileConfig is the shape of <home>/config.yaml.
type FileConfig struct {
	Document         string `yaml:"document"`
	CreatorID        *int   `yaml:"creator_id"`
	Model            string `yaml:"model"`
	BaseURL          string `yaml:"base_url"`
	LogLevel         string `yaml:"log_level"`
	IDFormat         string `yaml:"id_format"`
	SnapshotKeep     *int   `yaml:"snapshot_keep"`
	GeneratorTimeout string `yaml:"generator_timeout"`
}

var (
	env     *CopilotEnv
	envErr  error
	envOnce sync.Once
)

// Env returns the singleton configuration.
// Thread-safe, loads once on first call. A broken config file or .env is
// reported by LoadError; Env still returns usable values.
func Env() *CopilotEnv {
	envOnce.Do(func() {
		env, envErr = Load()
	})
	return env
}

// LoadError returns the error met while loading Env, if any.
func LoadError() error {
	Env()
	return envErr
}

// ResetEnv resets the cached environment and paths (for testing).
func ResetEnv() {
	envOnce = sync.Once{}
	env = nil
	envErr = nil
	pathsOnce = sync.Once{}
	paths = nil
}

// Load reads .env files, the config file and the environment. On error the
// returned configuration holds every value that could be read.
func Load() (*CopilotEnv, error) {
	var errs []error
	if err := LoadEnvFiles(".env"); err != nil {
		errs = append(errs, err)
	}
	home := homeDir()
	if err := LoadEnvFiles(filepath.Join(home, ".env")); err != nil {
		errs = append(errs, err)
	}

	fc, err := ReadFileConfig(filepath.Join(home, "config.yaml"))
	if err != nil {
		errs = append(errs, err)
		fc = &FileConfig{}
	}

	e := &CopilotEnv{
		Home:             home,
		Document:         getEnvDefault("COPILOT_DOCUMENT", fc.Document),
		Model:            getEnvDefault("COPILOT_MODEL", orDefault(fc.Model, DefaultModel)),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnvDefault("OPENAI_BASE_URL", fc.BaseURL),
		LogLevel:         getEnvDefault("COPILOT_LOG_LEVEL", orDefault(fc.LogLevel, DefaultLogLevel)),
		IDFormat:         getEnvDefault("COPILOT_ID_FORMAT", orDefault(fc.IDFormat, DefaultIDFormat)),
		SnapshotKeep:     DefaultSnapshotKeep,
		GeneratorTimeout: DefaultGeneratorTimeout,
	}
	if fc.CreatorID != nil {
		e.CreatorID = *fc.CreatorID
	}
	if fc.SnapshotKeep != nil {
		e.SnapshotKeep = *fc.SnapshotKeep
	}
	if fc.GeneratorTimeout != "" {
		d, err := time.ParseDuration(fc.GeneratorTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("config generator_timeout: %w", err))
		} else {
			e.GeneratorTimeout = d
		}
	}

	if v, err := getEnvInt("COPILOT_CREATOR_ID"); err != nil {
		errs = append(errs, err)
	} else if v != nil {
		e.CreatorID = *v
	}
	if v, err := getEnvInt("COPILOT_SNAPSHOT_KEEP"); err != nil {
		errs = append(errs, err)
	} else if v != nil {
		e.SnapshotKeep = *v
	}
	if raw := os.Getenv("COPILOT_GENERATOR_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("COPILOT_GENERATOR_TIMEOUT: %w", err))
		} else {
			e.GeneratorTimeout = d
		}
	}

	if len(errs) > 0 {
		return e, errs[0]
	}
	return e, nil
}

// LoadEnvFiles loads each existing .env file without overriding variables
// that are already set.
func LoadEnvFiles(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ReadFileConfig parses a YAML config file. A missing file is an empty config.
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &fc, nil
}

func homeDir() string {
	if v := os.Getenv("COPILOT_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".copilot")
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string) (*int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &v, nil
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// Paths holds standard copilot directory paths.
type Paths struct {
	// Home is the copilot home directory (~/.copilot)
	Home string

	// Snapshots is the snapshot root (~/.copilot/snapshots)
	Snapshots string

	// AuditLog is the operation journal (~/.copilot/audit.log)
	AuditLog string

	// EnvFile is the .env file path (~/.copilot/.env)
	EnvFile string

	// ConfigFile is the YAML config path (~/.copilot/config.yaml)
	ConfigFile string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home := homeDir()
		paths = &Paths{
			Home:       home,
			Snapshots:  filepath.Join(home, "snapshots"),
			AuditLog:   filepath.Join(home, "audit.log"),
			EnvFile:    filepath.Join(home, ".env"),
			ConfigFile: filepath.Join(home, "config.yaml"),
		}
	})
	return paths
}
