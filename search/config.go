package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// configValidate is the validator instance for search configuration.
var configValidate = validator.New()

// Config tunes a single optimization run.
type Config struct {
	MaxIterations        int     `json:"max_iterations" yaml:"max_iterations" validate:"min=1,max=100000"`
	ParetoFrontSize      int     `json:"pareto_front_size" yaml:"pareto_front_size" validate:"min=1"`
	AnnealingInitialTemp float64 `json:"annealing_initial_temp" yaml:"annealing_initial_temp" validate:"gt=0"`
	AnnealingDecay       float64 `json:"annealing_decay" yaml:"annealing_decay" validate:"gt=0,lte=1"`
	ConvergenceWindow    int     `json:"convergence_window" yaml:"convergence_window" validate:"min=1"`
	ConvergenceThreshold float64 `json:"convergence_threshold" yaml:"convergence_threshold" validate:"gte=0"`
	RandomSeed           int64   `json:"random_seed" yaml:"random_seed"`

	// SuccessThreshold is the weighted score a result must reach to be
	// reported as successful. It must exceed the scorer's hard ceiling.
	SuccessThreshold float64 `json:"success_threshold" yaml:"success_threshold" validate:"gte=0,lte=1"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:        100,
		ParetoFrontSize:      10,
		AnnealingInitialTemp: 1.0,
		AnnealingDecay:       0.95,
		ConvergenceWindow:    5,
		ConvergenceThreshold: 0.001,
		RandomSeed:           42,
		SuccessThreshold:     0.7,
	}
}

// Merge overlays the non-zero fields of other onto c.
func (c Config) Merge(other Config) Config {
	if other.MaxIterations != 0 {
		c.MaxIterations = other.MaxIterations
	}
	if other.ParetoFrontSize != 0 {
		c.ParetoFrontSize = other.ParetoFrontSize
	}
	if other.AnnealingInitialTemp != 0 {
		c.AnnealingInitialTemp = other.AnnealingInitialTemp
	}
	if other.AnnealingDecay != 0 {
		c.AnnealingDecay = other.AnnealingDecay
	}
	if other.ConvergenceWindow != 0 {
		c.ConvergenceWindow = other.ConvergenceWindow
	}
	if other.ConvergenceThreshold != 0 {
		c.ConvergenceThreshold = other.ConvergenceThreshold
	}
	if other.RandomSeed != 0 {
		c.RandomSeed = other.RandomSeed
	}
	if other.SuccessThreshold != 0 {
		c.SuccessThreshold = other.SuccessThreshold
	}
	return c
}

// Overrides is a partial Config. Nil fields keep the base value, so zero
// is a valid override for every field.
type Overrides struct {
	MaxIterations        *int     `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	ParetoFrontSize      *int     `json:"pareto_front_size,omitempty" yaml:"pareto_front_size,omitempty"`
	AnnealingInitialTemp *float64 `json:"annealing_initial_temp,omitempty" yaml:"annealing_initial_temp,omitempty"`
	AnnealingDecay       *float64 `json:"annealing_decay,omitempty" yaml:"annealing_decay,omitempty"`
	ConvergenceWindow    *int     `json:"convergence_window,omitempty" yaml:"convergence_window,omitempty"`
	ConvergenceThreshold *float64 `json:"convergence_threshold,omitempty" yaml:"convergence_threshold,omitempty"`
	RandomSeed           *int64   `json:"random_seed,omitempty" yaml:"random_seed,omitempty"`
	SuccessThreshold     *float64 `json:"success_threshold,omitempty" yaml:"success_threshold,omitempty"`
}

// Apply returns c with every non-nil override set.
func (o Overrides) Apply(c Config) Config {
	set(&c.MaxIterations, o.MaxIterations)
	set(&c.ParetoFrontSize, o.ParetoFrontSize)
	set(&c.AnnealingInitialTemp, o.AnnealingInitialTemp)
	set(&c.AnnealingDecay, o.AnnealingDecay)
	set(&c.ConvergenceWindow, o.ConvergenceWindow)
	set(&c.ConvergenceThreshold, o.ConvergenceThreshold)
	set(&c.RandomSeed, o.RandomSeed)
	set(&c.SuccessThreshold, o.SuccessThreshold)
	return c
}

func set[T any](dst, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks the configuration against the scorer's hard ceiling.
// Failures are returned as *ConfigError.
func (c Config) Validate(hardCeiling float64) error {
	if err := configValidate.Struct(c); err != nil {
		return newConfigError(err)
	}
	if c.SuccessThreshold <= hardCeiling {
		return &ConfigError{
			Fields: []string{"SuccessThreshold"},
			Err:    fmt.Errorf("success threshold %.3f must exceed hard ceiling %.3f", c.SuccessThreshold, hardCeiling),
		}
	}
	return nil
}

// ConfigError reports an invalid search configuration.
type ConfigError struct {
	// Fields names the offending Config fields.
	Fields []string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid search config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(err error) *ConfigError {
	ce := &ConfigError{Err: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			ce.Fields = append(ce.Fields, fe.Field())
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
		ce.Err = fmt.Errorf("%s: %w", strings.Join(msgs, "; "), err)
	}
	return ce
}
