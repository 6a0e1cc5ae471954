package archoptimizer

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semstreams/component"
)

// archOptimizerSchema defines the configuration schema.
var archOptimizerSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the arch-optimizer component.
type Config struct {
	// StreamName is the JetStream stream carrying optimization requests and results.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for optimization requests,category:basic,default:ARCHITECTURE"`

	// ConsumerName is the durable consumer name for request consumption.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for request consumption,category:basic,default:arch-optimizer"`

	// WeightsPath is a YAML rule-weight table watched for changes.
	// When empty the built-in weights are used.
	WeightsPath string `json:"weights_path" schema:"type:string,description:Rule weight table (YAML) reloaded on change,category:basic,default:"`

	// RunTimeout bounds a single optimization run. A run that exceeds it is
	// interrupted between iterations and reports its best variant so far.
	RunTimeout string `json:"run_timeout" schema:"type:string,description:Maximum duration of one optimization run,category:advanced,default:5m"`

	// ProgressEvery publishes an iteration progress event every N iterations.
	// New-best events are always published.
	ProgressEvery int `json:"progress_every" schema:"type:int,description:Publish iteration progress every N iterations,category:advanced,default:1"`

	// PublishGraph publishes the run and its Pareto front to the knowledge graph
	// for every request, not only those that ask for it.
	PublishGraph bool `json:"publish_graph" schema:"type:bool,description:Always publish runs and variants to the graph,category:advanced,default:false"`

	// Search holds default search parameters; requests override non-zero fields.
	Search search.Config `json:"search" schema:"type:object,description:Default search parameters,category:advanced"`

	// Detection holds the rule thresholds.
	Detection rules.Thresholds `json:"detection" schema:"type:object,description:Violation rule thresholds,category:advanced"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// Subjects used by the component.
const (
	RequestSubject        = "arch.optimize.request"
	progressSubjectPrefix = "arch.optimize.progress."
	resultSubjectPrefix   = "arch.optimize.result."
)

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:    "ARCHITECTURE",
		ConsumerName:  "arch-optimizer",
		RunTimeout:    "5m",
		ProgressEvery: 1,
		Search:        search.DefaultConfig(),
		Detection:     rules.DefaultThresholds(),
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "optimize-requests",
					Type:        "jetstream",
					Subject:     RequestSubject,
					StreamName:  "ARCHITECTURE",
					Description: "Receive architecture optimization requests",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "optimize-progress",
					Type:        "nats",
					Subject:     progressSubjectPrefix + ">",
					Description: "Publish per-iteration search progress",
					Required:    false,
				},
				{
					Name:        "optimize-results",
					Type:        "jetstream",
					Subject:     resultSubjectPrefix + ">",
					Description: "Publish optimization results",
					Required:    false,
				},
			},
		},
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.StreamName == "" {
		c.StreamName = defaults.StreamName
	}
	if c.ConsumerName == "" {
		c.ConsumerName = defaults.ConsumerName
	}
	if c.RunTimeout == "" {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.ProgressEvery == 0 {
		c.ProgressEvery = defaults.ProgressEvery
	}
	c.Search = defaults.Search.Merge(c.Search)
	if c.Detection == (rules.Thresholds{}) {
		c.Detection = defaults.Detection
	}
	if c.Ports == nil {
		c.Ports = defaults.Ports
	}
	return c
}

// GetRunTimeout parses the run timeout duration.
// Returns 5 minutes if the field is empty or unparseable.
func (c *Config) GetRunTimeout() time.Duration {
	if c.RunTimeout == "" {
		return 5 * time.Minute
	}
	d, err := time.ParseDuration(c.RunTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be >= 0")
	}
	if c.RunTimeout != "" {
		if _, err := time.ParseDuration(c.RunTimeout); err != nil {
			return fmt.Errorf("run_timeout: %w", err)
		}
	}
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	return nil
}

// requestSubject returns the subject requests are consumed from.
func (c *Config) requestSubject() string {
	if c.Ports != nil && len(c.Ports.Inputs) > 0 && c.Ports.Inputs[0].Subject != "" {
		return c.Ports.Inputs[0].Subject
	}
	return RequestSubject
}
