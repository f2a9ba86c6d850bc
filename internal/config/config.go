package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks configuration values rejected before any state mutation.
var ErrValidation = errors.New("config validation")

// #region duration

// Duration wraps time.Duration with YAML/JSON (un)marshaling in Go
// duration-string form ("6h", "90s").
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// #endregion duration

// #region config

// Config holds the retraining policy knobs. Values are immutable once
// constructed; partial updates go through Apply, which produces a new
// validated Config rather than mutating the receiver.
type Config struct {
	MinPerformanceThreshold float64  `yaml:"min_performance_threshold" json:"min_performance_threshold"`
	DegradationThreshold    float64  `yaml:"degradation_threshold" json:"degradation_threshold"`
	MinRetrainInterval      Duration `yaml:"min_interval_between_retrains" json:"min_interval_between_retrains"`
	AutoRetrainEnabled      bool     `yaml:"auto_retrain_enabled" json:"auto_retrain_enabled"`
	PipelineTimeout         Duration `yaml:"pipeline_timeout" json:"pipeline_timeout"`
}

// Default returns the stock retraining policy.
func Default() Config {
	return Config{
		MinPerformanceThreshold: 0.5,
		DegradationThreshold:    0.1,
		MinRetrainInterval:      Duration(6 * time.Hour),
		AutoRetrainEnabled:      true,
		PipelineTimeout:         0, // no engine-imposed timeout
	}
}

// Validate checks value ranges. A zero or negative retrain interval would
// disable the frequency guard entirely, so it is rejected.
func (c Config) Validate() error {
	if c.MinPerformanceThreshold < 0 {
		return fmt.Errorf("%w: min_performance_threshold %v is negative", ErrValidation, c.MinPerformanceThreshold)
	}
	if c.DegradationThreshold < 0 {
		return fmt.Errorf("%w: degradation_threshold %v is negative", ErrValidation, c.DegradationThreshold)
	}
	if c.MinRetrainInterval <= 0 {
		return fmt.Errorf("%w: min_interval_between_retrains %v is not positive", ErrValidation, c.MinRetrainInterval)
	}
	if c.PipelineTimeout < 0 {
		return fmt.Errorf("%w: pipeline_timeout %v is negative", ErrValidation, c.PipelineTimeout)
	}
	return nil
}

// #endregion config

// #region overrides

// Overrides carries a partial config update. Nil fields keep the current
// value.
type Overrides struct {
	MinPerformanceThreshold *float64  `json:"min_performance_threshold,omitempty"`
	DegradationThreshold    *float64  `json:"degradation_threshold,omitempty"`
	MinRetrainInterval      *Duration `json:"min_interval_between_retrains,omitempty"`
	AutoRetrainEnabled      *bool     `json:"auto_retrain_enabled,omitempty"`
	PipelineTimeout         *Duration `json:"pipeline_timeout,omitempty"`
}

// Apply overlays the overrides onto a copy of c and validates the result.
// The receiver is never modified; on validation failure the previous config
// stays in effect.
func (c Config) Apply(o Overrides) (Config, error) {
	next := c
	if o.MinPerformanceThreshold != nil {
		next.MinPerformanceThreshold = *o.MinPerformanceThreshold
	}
	if o.DegradationThreshold != nil {
		next.DegradationThreshold = *o.DegradationThreshold
	}
	if o.MinRetrainInterval != nil {
		next.MinRetrainInterval = *o.MinRetrainInterval
	}
	if o.AutoRetrainEnabled != nil {
		next.AutoRetrainEnabled = *o.AutoRetrainEnabled
	}
	if o.PipelineTimeout != nil {
		next.PipelineTimeout = *o.PipelineTimeout
	}
	if err := next.Validate(); err != nil {
		return Config{}, err
	}
	return next, nil
}

// #endregion overrides
