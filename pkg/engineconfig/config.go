// Package engineconfig provides the configuration schema for the policy
// engine binaries: cache sizing, tracing, and where to load policy
// documents from. It is grounded on the donor's internal/config
// package, carrying over its viper-bindable mapstructure tags and
// go-playground/validator struct validation in place of the donor's
// much larger OSS gateway config.
package engineconfig

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level configuration for an Engine.
type Config struct {
	// Cache configures the Decision cache sitting in front of the
	// evaluator. Leave MaxSize/TTL at zero to take cache.DefaultMaxSize
	// and cache.DefaultTTL.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// MaxConditionDepth is the configured condition nesting limit, 1 to
	// 256; SetDefaults turns 0 into 64. Condition.Validate in the policy
	// package applies its own fixed limit of 64 and does not read it.
	MaxConditionDepth int `yaml:"max_condition_depth" mapstructure:"max_condition_depth" validate:"omitempty,min=1,max=256"`

	// Tracing enables attaching an OpenTelemetry Trace to every Decision.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// Metrics enables the Prometheus collector backing Engine.Metrics().
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// PolicyPaths lists policy document files (YAML or JSON). This
	// package only holds the list; it does not load the files or check
	// them for duplicate policy ids.
	PolicyPaths []string `yaml:"policy_paths" mapstructure:"policy_paths"`
}

// CacheConfig configures the Decision cache.
type CacheConfig struct {
	// Enabled turns the Decision cache on or off. Its zero value is
	// false, and SetDefaults leaves it unchanged.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// MaxSize is the maximum number of cached decisions.
	MaxSize int `yaml:"max_size" mapstructure:"max_size" validate:"omitempty,min=1"`
	// TTL is how long a cached decision remains valid (e.g. "5m").
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled attaches a Trace to every Decision.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Enabled registers the engine's Prometheus metrics.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults applies sensible default values, mirroring the donor's
// OSSConfig.SetDefaults pattern of defaulting zero-valued fields after
// decode and before validation.
func (c *Config) SetDefaults() {
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.MaxConditionDepth == 0 {
		c.MaxConditionDepth = 64
	}
}

// Validate runs struct-tag validation over c.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); ok {
		return fmt.Errorf("engineconfig: %s", verrs.Error())
	}
	return err
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}
