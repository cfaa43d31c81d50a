// Package engine defines the orchestrator contract and its configuration.
// Implementations live in versioned subpackages.
package engine

import (
	"context"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/helix-quant/cta-trading/internal/engine/engine_v1/session"
	"github.com/helix-quant/cta-trading/internal/strategy"
	"github.com/helix-quant/cta-trading/pkg/errors"
)

// Engine is the strategy orchestrator: it owns the dispatch loop, the shared
// per-symbol market state and the lifecycle of every registered strategy
// instance.
type Engine interface {
	// RegisterStrategy adds an instance. Instance names are unique.
	RegisterStrategy(cfg StrategyConfig) error
	// Start brings the engine up: execution service health check, trade
	// stream subscription, dispatch loop. Fails closed when the execution
	// service never becomes healthy.
	Start(ctx context.Context) error
	// Stop shuts the dispatch loop down and stops all running instances.
	Stop() error
	// StartStrategy starts a single registered instance by name.
	StartStrategy(name string) error
	// StopStrategy stops a single running instance by name.
	StopStrategy(name string) error
	// RemoveStrategy stops an instance if needed and deletes it. Removal is
	// the only way to reset an instance out of ERROR.
	RemoveStrategy(name string) error
	// Strategies lists the registered instances with their current status.
	Strategies() []StrategyInfo
}

// StrategyInfo is the externally visible state of one instance.
type StrategyInfo struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Symbol   string          `json:"symbol"`
	Status   strategy.Status `json:"status"`
	Position float64         `json:"position"`
}

// StrategyConfig declares one strategy instance.
type StrategyConfig struct {
	Name        string          `json:"name" yaml:"name" validate:"required"`
	Type        string          `json:"type" yaml:"type" validate:"required"`
	Symbol      string          `json:"symbol" yaml:"symbol" validate:"required"`
	MaxPosition float64         `json:"max_position" yaml:"max_position" validate:"gte=0"`
	Params      strategy.Params `json:"params" yaml:"params"`
}

// Duration wraps time.Duration so YAML configs can say "5s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid duration %q", raw)
	}

	*d = Duration(parsed)

	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ExecutionConfig locates the execution service.
type ExecutionConfig struct {
	BaseURL             string   `json:"base_url" yaml:"base_url" validate:"required,url"`
	HealthCheckRetries  int      `json:"health_check_retries" yaml:"health_check_retries" validate:"gte=1"`
	HealthCheckInterval Duration `json:"health_check_interval" yaml:"health_check_interval"`
}

// Config is the full engine configuration, normally loaded from YAML.
type Config struct {
	Execution        ExecutionConfig  `json:"execution" yaml:"execution" validate:"required"`
	DispatchInterval Duration         `json:"dispatch_interval" yaml:"dispatch_interval"`
	PositionTTL      Duration         `json:"position_ttl" yaml:"position_ttl"`
	Sessions         []session.Window `json:"sessions" yaml:"sessions"`
	Strategies       []StrategyConfig `json:"strategies" yaml:"strategies" validate:"dive"`
}

// Default engine timings.
const (
	DefaultDispatchInterval    = time.Second
	DefaultHealthCheckRetries  = 30
	DefaultHealthCheckInterval = time.Second
)

// ApplyDefaults fills unset timings and windows in place.
func (c *Config) ApplyDefaults() {
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = Duration(DefaultDispatchInterval)
	}

	if c.Execution.HealthCheckRetries <= 0 {
		c.Execution.HealthCheckRetries = DefaultHealthCheckRetries
	}

	if c.Execution.HealthCheckInterval <= 0 {
		c.Execution.HealthCheckInterval = Duration(DefaultHealthCheckInterval)
	}

	if len(c.Sessions) == 0 {
		c.Sessions = session.DefaultWindows()
	}
}

// Validate checks the configuration using go-playground/validator.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid engine configuration", err)
	}

	return nil
}

// LoadConfig reads, defaults and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read config %s", path)
	}

	return ParseConfig(raw)
}

// ParseConfig parses and validates YAML configuration bytes.
func ParseConfig(raw []byte) (*Config, error) {
	config := &Config{} //nolint:exhaustruct // populated from YAML

	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "cannot parse config", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
