// Package config resolves where models and migrations live and how they are
// rendered: modelforge.yaml first, then .env and the process environment,
// then command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ridoystarlord/modelforge/store"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath    = "modelforge.yaml"
	DefaultEnvPath = ".env"
)

// Config is the top-level configuration.
type Config struct {
	ModelsDir     string        `yaml:"models_dir"`
	MigrationsDir string        `yaml:"migrations_dir"`
	Namespace     string        `yaml:"namespace"`
	ModernCasts   bool          `yaml:"modern_casts"`
	JunctionDelay time.Duration `yaml:"junction_delay"`
	DatabaseURL   string        `yaml:"database_url,omitempty"`
	Logging       LogConfig     `yaml:"logging,omitempty"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ModelsDir:     "app/Models",
		MigrationsDir: "database/migrations",
		Namespace:     `App\Models`,
		ModernCasts:   true,
		JunctionDelay: time.Second,
		Logging:       LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults, then applies environment overrides
// from envPath (a .env file) and the process environment. Missing files are
// not an error.
func Load(st *store.Store, path, envPath string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	if st.Exists(path) {
		data, err := st.Read(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	env, err := ReadEnv(st, envPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL, err = ResolveValue(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("database url: %w", err)
	}

	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// ReadEnv merges a .env file under the process environment: non-empty
// variables already set in the process win, as with godotenv.Load.
func ReadEnv(st *store.Store, envPath string) (func(string) (string, bool), error) {
	if envPath == "" {
		envPath = DefaultEnvPath
	}
	file := map[string]string{}
	if st.Exists(envPath) {
		data, err := st.Read(envPath)
		if err != nil {
			return nil, err
		}
		if file, err = godotenv.Unmarshal(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envPath, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides settings from MODELFORGE_* variables and DATABASE_URL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("MODELFORGE_MODELS_DIR"); ok && v != "" {
		c.ModelsDir = v
	}
	if v, ok := lookup("MODELFORGE_MIGRATIONS_DIR"); ok && v != "" {
		c.MigrationsDir = v
	}
	if v, ok := lookup("MODELFORGE_NAMESPACE"); ok && v != "" {
		c.Namespace = v
	}
	if v, ok := lookup("MODELFORGE_MODERN_CASTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MODELFORGE_MODERN_CASTS: %w", err)
		}
		c.ModernCasts = b
	}
	if v, ok := lookup("MODELFORGE_LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.DatabaseURL = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Namespace = strings.Trim(c.Namespace, `\`)
	c.ModelsDir = strings.TrimRight(c.ModelsDir, "/")
	c.MigrationsDir = strings.TrimRight(c.MigrationsDir, "/")
	if c.JunctionDelay <= 0 {
		c.JunctionDelay = time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports settings the generator cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.ModelsDir == "":
		return fmt.Errorf("models_dir cannot be empty")
	case c.MigrationsDir == "":
		return fmt.Errorf("migrations_dir cannot be empty")
	case c.Namespace == "":
		return fmt.Errorf("namespace cannot be empty")
	}
	return nil
}

// Save writes the config to path.
func (c *Config) Save(st *store.Store, path string) error {
	if path == "" {
		path = DefaultPath
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return st.Write(path, string(data))
}

var secretPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

// ResolveValue expands ${ENV:NAME} references.
func ResolveValue(val string) (string, error) {
	m := secretPattern.FindStringSubmatch(val)
	if m == nil {
		return val, nil
	}
	v := os.Getenv(m[1])
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", m[1])
	}
	return strings.Replace(val, m[0], v, 1), nil
}
