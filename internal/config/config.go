// Package config holds the settings for an hpoextend run: category root,
// output format, logging and the optional DuckDB / Neo4j export targets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the complete hpoextend configuration.
// Use DefaultConfig() to get sensible defaults, then override as needed.
type Config struct {
	Ontology OntologyConfig `yaml:"ontology"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	DuckDB   DuckDBConfig   `yaml:"duckdb"`
	Neo4j    Neo4jConfig    `yaml:"neo4j"`
	MCP      MCPConfig      `yaml:"mcp"`
	Checks   ChecksConfig   `yaml:"checks"`
}

// OntologyConfig selects which part of the ontology rows are classified against.
type OntologyConfig struct {
	CategoryRoot string `yaml:"category_root" validate:"required"` // default: HP:0000118
}

// OutputConfig controls the extended CSV.
type OutputConfig struct {
	CRLF   bool `yaml:"crlf"`   // terminate rows with \r\n (default: true)
	Report bool `yaml:"report"` // print a run report to stderr (default: false)
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// DuckDBConfig enables persisting runs into DuckDB. Empty Path disables it.
type DuckDBConfig struct {
	Path          string `yaml:"path"`
	Threads       int    `yaml:"threads" validate:"gte=0"`
	MemoryLimitGB int    `yaml:"memory_limit_gb" validate:"gte=0"`
}

// Neo4jConfig enables pushing the ontology into Neo4j. Empty URI disables it.
type Neo4jConfig struct {
	URI      string        `yaml:"uri" validate:"omitempty,uri"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

// MCPConfig identifies the MCP server to clients.
type MCPConfig struct {
	ServerName    string `yaml:"server_name" validate:"required"`
	ServerVersion string `yaml:"server_version" validate:"required"`
}

// ChecksConfig holds the thresholds used by the run health checks.
type ChecksConfig struct {
	DroppedWarnPct float64 `yaml:"dropped_warn_pct" validate:"gte=0,lte=100"`
	DroppedCritPct float64 `yaml:"dropped_crit_pct" validate:"gte=0,lte=100,gtefield=DroppedWarnPct"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Ontology: OntologyConfig{
			CategoryRoot: "HP:0000118",
		},
		Output: OutputConfig{
			CRLF:   true,
			Report: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		DuckDB: DuckDBConfig{
			Path: "", // Export disabled
		},
		Neo4j: Neo4jConfig{
			URI:      "", // Export disabled
			User:     "neo4j",
			Database: "neo4j",
			Timeout:  5 * time.Second,
		},
		MCP: MCPConfig{
			ServerName:    "hpoextend",
			ServerVersion: "1.0.0",
		},
		Checks: ChecksConfig{
			DroppedWarnPct: 10,
			DroppedCritPct: 50,
		},
	}
}

// WithCategoryRoot returns a copy of the config with a different category root.
func (c Config) WithCategoryRoot(id string) Config {
	c.Ontology.CategoryRoot = id
	return c
}

// WithLogLevel returns a copy of the config with a different log level.
func (c Config) WithLogLevel(level string) Config {
	c.Log.Level = strings.ToLower(level)
	return c
}

// WithCRLF returns a copy of the config with CRLF output enabled/disabled.
func (c Config) WithCRLF(enabled bool) Config {
	c.Output.CRLF = enabled
	return c
}

// WithReport returns a copy of the config with the run report enabled/disabled.
func (c Config) WithReport(enabled bool) Config {
	c.Output.Report = enabled
	return c
}

// WithDuckDBPath returns a copy of the config exporting to the given DuckDB file.
func (c Config) WithDuckDBPath(path string) Config {
	c.DuckDB.Path = path
	return c
}

// WithNeo4jURI returns a copy of the config exporting to the given Neo4j server.
func (c Config) WithNeo4jURI(uri string) Config {
	c.Neo4j.URI = uri
	return c
}

// DuckDBEnabled reports whether runs are persisted into DuckDB.
func (c Config) DuckDBEnabled() bool {
	return c.DuckDB.Path != ""
}

// Neo4jEnabled reports whether the ontology is pushed into Neo4j.
func (c Config) Neo4jEnabled() bool {
	return c.Neo4j.URI != ""
}

var validate = validator.New()

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError reports the first failing field as a ConfigError.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")

	var msg string
	switch e.Tag() {
	case "required":
		msg = "is required"
	case "oneof":
		msg = "must be one of: " + e.Param()
	case "gte", "gt", "lte":
		msg = fmt.Sprintf("must be %s %s", e.Tag(), e.Param())
	case "gtefield":
		msg = "must be >= " + e.Param()
	case "uri":
		msg = "must be a valid URI"
	default:
		msg = "is invalid"
	}
	return &ConfigError{Field: field, Message: msg}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides store locations and credentials from the environment.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv("DUCKDB_PATH"); v != "" {
		c.DuckDB.Path = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	return c
}

// Load builds the effective config: defaults, then the optional YAML file,
// then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	cfg = cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
