package configuration

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RecordsDriverCSV    = "csv"
	RecordsDriverJSON   = "json"
	RecordsDriverSQLite = "sqlite"
	RecordsDriverPgx    = "pgx"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger: logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Server: HTTP server configuration
	Server ServerConfig `mapstructure:"server"`
	// Scoring: rules, field extraction and stakeholder profiles
	Scoring ScoringConfig `mapstructure:"scoring"`
	// Records: listing records source
	Records RecordsConfig `mapstructure:"records"`
	// Output: score sheets and result dataset
	Output OutputConfig `mapstructure:"output"`
	// History: recent results kept for the HTTP API
	History HistoryConfig `mapstructure:"history"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level: log level: debug, info, warn, warning, error.
	// Value is case-insensitive but checked in lowercase.
	Level string `mapstructure:"level"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address: address and port where the server will listen (e.g., ":8080").
	Address string `mapstructure:"address"`
	// Token: bearer token required on API routes. Empty disables authentication.
	Token string `mapstructure:"token"`
}

// StakeholderConfig is one stakeholder profile: either inline metric and
// weight lists, or a score sheet whose header carries them.
type StakeholderConfig struct {
	// Name: stakeholder name as used in the rule table.
	Name string `mapstructure:"name"`
	// Sheet: path to a score sheet CSV (metrics on row 1, weights on row 2).
	Sheet string `mapstructure:"sheet"`
	// Metrics: ordered output metrics.
	Metrics []string `mapstructure:"metrics"`
	// Weights: weight cells parallel to Metrics. Blank is 0, text is NaN.
	Weights []string `mapstructure:"weights"`
}

// ScoringConfig defines the scoring engine inputs.
type ScoringConfig struct {
	// Rules: path to the rule table in YAML or CSV format.
	Rules string `mapstructure:"rules"`
	// IdentifierField: record field holding the listing ID (default "#").
	IdentifierField string `mapstructure:"identifier_field"`
	// TransitField: field from which walking minutes are extracted.
	TransitField string `mapstructure:"transit_field"`
	// TransitPattern: regular expression with one group capturing minutes.
	TransitPattern string `mapstructure:"transit_pattern"`
	// Workers: records scored concurrently in batch runs (default 1).
	Workers int `mapstructure:"workers"`
	// Stakeholders: scored profiles.
	Stakeholders []StakeholderConfig `mapstructure:"stakeholders"`
}

// RecordsConfig defines where listing records are read from.
type RecordsConfig struct {
	// Driver: csv, json, sqlite or pgx.
	Driver string `mapstructure:"driver"`
	// Path: records file for the csv and json drivers.
	Path string `mapstructure:"path"`
	// DSN: data source name for the sql drivers.
	DSN string `mapstructure:"dsn"`
	// Table: table read by the sql drivers when Query is empty.
	Table string `mapstructure:"table"`
	// Query: custom query for the sql drivers.
	Query string `mapstructure:"query"`
}

// DatasetConfig defines the JSONL results dataset
type DatasetConfig struct {
	// Dataset file path (optional)
	File string `mapstructure:"file"`
	// Maximal dataset file size in MB (default 100M)
	Size int `mapstructure:"size"`
	// Number of dataset files (default 20)
	Amount int `mapstructure:"amount"`
}

// OutputConfig defines batch run outputs.
type OutputConfig struct {
	// Dir: directory receiving one score sheet per stakeholder (optional).
	Dir string `mapstructure:"dir"`
	// Dataset: rotating JSONL results dataset.
	Dataset DatasetConfig `mapstructure:"dataset"`
}

// HistoryConfig defines the recent results repository.
type HistoryConfig struct {
	// Length: results kept per record ID (default 10).
	Length int `mapstructure:"length"`
	// Ttl: idle time after which a record's results are dropped.
	// Example: "5m", "1h", "24h". Zero keeps results forever.
	Ttl time.Duration `mapstructure:"ttl"`
}

// Validate checks the correctness of the entire application configuration.
// Calls validation for each nested structure and returns the first detected error.
// Returns nil if the configuration is valid.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return err
	}

	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	if err := c.Records.Validate(); err != nil {
		return err
	}

	if err := c.Output.Dataset.Validate(); err != nil {
		return err
	}

	if err := c.History.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate checks the correctness of the logger configuration.
// Verifies that the log level is set and is one of the supported values.
// Supported values: debug, info, warn, warning, error (case-insensitive).
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	return nil
}

// Validate fills the server address default.
func (n *ServerConfig) Validate() error {
	if n.Address == "" {
		n.Address = ":8080"
	}

	return nil
}

// Validate checks the rule table path, the transit pattern and every
// stakeholder, and fills defaults.
func (s *ScoringConfig) Validate() error {
	if s.Rules == "" {
		return errors.New("scoring.rules: must be specified")
	}

	if s.IdentifierField == "" {
		s.IdentifierField = "#"
	}

	if s.TransitField == "" {
		s.TransitField = "アクセス"
	}

	if s.TransitPattern == "" {
		s.TransitPattern = `歩(\d+)分`
	}
	re, err := regexp.Compile(s.TransitPattern)
	if err != nil {
		return fmt.Errorf("scoring.transit_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return errors.New("scoring.transit_pattern: must capture the minutes")
	}

	if s.Workers < 1 {
		s.Workers = 1
	}

	if len(s.Stakeholders) == 0 {
		return errors.New("scoring.stakeholders: must be specified")
	}

	seen := make(map[string]bool, len(s.Stakeholders))
	for i := range s.Stakeholders {
		if err := s.Stakeholders[i].Validate(); err != nil {
			return fmt.Errorf("scoring.stakeholders[%d]: %w", i, err)
		}
		if seen[s.Stakeholders[i].Name] {
			return fmt.Errorf("scoring.stakeholders[%d]: duplicate name '%s'", i, s.Stakeholders[i].Name)
		}
		seen[s.Stakeholders[i].Name] = true
	}

	return nil
}

// Validate checks that the stakeholder is named and has exactly one metrics
// source.
func (s *StakeholderConfig) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errors.New("name: must be specified")
	}

	switch {
	case s.Sheet != "" && len(s.Metrics) > 0:
		return errors.New("sheet and metrics are mutually exclusive")
	case s.Sheet == "" && len(s.Metrics) == 0:
		return errors.New("sheet or metrics must be specified")
	}

	return nil
}

// Validate checks the records driver and its parameters.
func (r *RecordsConfig) Validate() error {
	switch r.Driver {
	case "":
		r.Driver = RecordsDriverCSV
		fallthrough
	case RecordsDriverCSV, RecordsDriverJSON:
		if r.Path == "" {
			return errors.New("records.path: must be specified")
		}
	case RecordsDriverSQLite, RecordsDriverPgx:
		if r.DSN == "" {
			return errors.New("records.dsn: must be specified")
		}
		if r.Table == "" && r.Query == "" {
			return errors.New("records.table or records.query: must be specified")
		}
	default:
		return fmt.Errorf("records.driver: unsupported driver '%s'", r.Driver)
	}

	return nil
}

// Validate dataset parameters
func (d *DatasetConfig) Validate() error {
	if d.Amount == 0 {
		d.Amount = 20
	}

	if d.Size == 0 {
		d.Size = 100
	}

	return nil
}

// Validate fills the history defaults.
func (h *HistoryConfig) Validate() error {
	if h.Length <= 0 {
		h.Length = 10
	}

	if h.Ttl < 0 {
		return errors.New("history.ttl: must not be negative")
	}

	return nil
}

// LoadConfig loads configuration from the specified file using Viper.
// Supports YAML format. Also includes environment variable loading (AutomaticEnv),
// which can override values from the file, e.g. SERVER_TOKEN for server.token.
//
// Parameter configPath: path to the configuration file.
//
// Returns a pointer to AppConfig or an error if:
// - the file is not found or inaccessible
// - the configuration has invalid format
// - one of the sections fails validation
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
