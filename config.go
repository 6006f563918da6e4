package vizql

import (
	"time"

	"golang.org/x/text/language"
)

// EngineConfig consolidates the ambient settings every stage of the engine
// reads from, grounded on the teacher's nested Config/DefaultConfig/Validate
// pattern (config.go) but scoped to what an in-memory query engine needs
// instead of a database connection pool.
type EngineConfig struct {
	Query    QueryConfig    `json:"query"`
	Logging  LoggingConfig  `json:"logging"`
	Splitter SplitterConfig `json:"splitter"`
	Locale   LocaleConfig   `json:"locale"`
}

// QueryConfig bounds how large a single execution is allowed to grow.
type QueryConfig struct {
	MaxRows            int           `json:"maxRows"`
	DefaultPageSize    int           `json:"defaultPageSize"`
	MaxPageSize        int           `json:"maxPageSize"`
	DefaultTimeout     time.Duration `json:"defaultTimeout"`
	TruncationWarnSize int           `json:"truncationWarnSize"`
}

// LoggingConfig controls the zap sink every package logs through.
type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"` // "json" or "console"
	EnableStructured bool   `json:"enableStructured"`
}

// SplitterConfig governs the query splitter's default behavior (§4.12).
type SplitterConfig struct {
	DefaultCapability  Capability    `json:"defaultCapability"`
	DataSourceTimeout  time.Duration `json:"dataSourceTimeout"`
	AllowDegradedMerge bool          `json:"allowDegradedMerge"`
}

// LocaleConfig carries the default collation locale used by the sort phase
// (§4.9, §9 "Locale is carried as a parameter into the sort and format
// phases only").
type LocaleConfig struct {
	Default language.Tag `json:"-"`
}

// DefaultEngineConfig mirrors the teacher's DefaultConfig factory.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Query: QueryConfig{
			MaxRows:            1_000_000,
			DefaultPageSize:    50,
			MaxPageSize:        1000,
			DefaultTimeout:     30 * time.Second,
			TruncationWarnSize: 1,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "json",
			EnableStructured: true,
		},
		Splitter: SplitterConfig{
			DefaultCapability:  CapabilityNone,
			DataSourceTimeout:  10 * time.Second,
			AllowDegradedMerge: true,
		},
		Locale: LocaleConfig{
			Default: language.English,
		},
	}
}

// Validate mirrors the teacher's Config.Validate: cheap, field-by-field
// sanity checks rather than a generic schema validator.
func (c *EngineConfig) Validate() error {
	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}
	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be >= defaultPageSize"}
	}
	if c.Query.MaxRows <= 0 {
		return &ConfigError{Field: "query.maxRows", Message: "must be greater than 0"}
	}
	if !c.Splitter.DefaultCapability.valid() {
		return &ConfigError{Field: "splitter.defaultCapability", Message: "unknown capability"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
