package schemaforge

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/tordrt/schemaforge/internal/export"
)

// DefaultConfigFile is the config path used when none is given
const DefaultConfigFile = "schemaforge.yaml"

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// Config is the contents of schemaforge.yaml
type Config struct {
	// Engine is the SQL dialect used when a command does not name one
	Engine    string              `yaml:"engine"`
	Server    ServerConfig        `yaml:"server"`
	Exporter  CommandConfig       `yaml:"exporter"`
	Renderer  CommandConfig       `yaml:"renderer"`
	Databases map[string]Database `yaml:"databases"`
	Import    ImportConfig        `yaml:"import"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// CommandConfig names an external tool
type CommandConfig struct {
	Command string `yaml:"command"`
}

// Database is a named connection usable by the import command
type Database struct {
	URL    string `yaml:"url"`
	Schema string `yaml:"schema"`
}

// ImportConfig holds import defaults
type ImportConfig struct {
	Exclude []string `yaml:"exclude"`
}

// LoadConfig loads .env, then reads configPath. A missing file yields the
// defaults.
func LoadConfig(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	if !fileExists(configPath) {
		config := getDefaultConfig()
		expandConfigEnvVars(config)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.UnmarshalWithOptions(data, &config, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	expandConfigEnvVars(&config)

	return &config, nil
}

// DatabaseURL resolves a configured database name to its URL. Anything else
// is returned unchanged so callers can pass a URL directly.
func (c *Config) DatabaseURL(nameOrURL string) (url, schemaName string) {
	if db, ok := c.Databases[nameOrURL]; ok {
		return db.URL, db.Schema
	}
	return nameOrURL, ""
}

func validateConfig(config *Config) error {
	if config.Engine != "" {
		if _, err := export.ParseEngine(config.Engine); err != nil {
			return fmt.Errorf("%w: invalid engine '%s': must be one of postgres, mysql, mssql", ErrConfigValidation, config.Engine)
		}
	}

	for name, db := range config.Databases {
		if db.URL == "" {
			return fmt.Errorf("%w: databases.%s: url is required", ErrConfigValidation, name)
		}
		// URLs still holding env references are checked after expansion, at connect time
		if !envRef.MatchString(db.URL) {
			if _, _, err := parseDatabaseURL(db.URL); err != nil {
				return fmt.Errorf("%w: databases.%s: %v", ErrConfigValidation, name, err)
			}
		}
	}

	for _, table := range config.Import.Exclude {
		if table == "" {
			return fmt.Errorf("%w: import.exclude must not contain empty names", ErrConfigValidation)
		}
	}

	return nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Engine == "" {
		config.Engine = string(export.Postgres)
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Exporter.Command == "" {
		config.Exporter.Command = "dbml2sql"
	}
	if config.Renderer.Command == "" {
		config.Renderer.Command = "dbml-renderer"
	}
}

// loadEnvFiles loads .env from the working directory if present
func loadEnvFiles() error {
	if fileExists(".env") {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	return nil
}

var (
	envRef      = regexp.MustCompile(`\$(\{[^}]+\}|[A-Za-z_][A-Za-z0-9_]*)`)
	bracedVar   = regexp.MustCompile(`\$\{([^}]+)\}`)
	unbracedVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands ${VAR} and $VAR
func expandEnvVars(s string) string {
	s = bracedVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
	return unbracedVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[1:])
	})
}

func expandConfigEnvVars(config *Config) {
	for name, db := range config.Databases {
		db.URL = expandEnvVars(db.URL)
		db.Schema = expandEnvVars(db.Schema)
		config.Databases[name] = db
	}
	config.Server.Addr = expandEnvVars(config.Server.Addr)
	config.Exporter.Command = expandEnvVars(config.Exporter.Command)
	config.Renderer.Command = expandEnvVars(config.Renderer.Command)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
