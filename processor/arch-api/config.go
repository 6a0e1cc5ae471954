package archapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semarch/rules"
	"github.com/c360studio/semstreams/component"
)

// archAPISchema holds the configuration schema generated from Config.
var archAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the arch-api component.
type Config struct {
	// WeightsPath is a YAML rule-weight table used by the score endpoint.
	// When empty the built-in weights are used.
	WeightsPath string `json:"weights_path" schema:"type:string,description:Rule weight table (YAML) for scoring,category:basic,default:"`

	// Detection holds the rule thresholds used by detect and score.
	Detection rules.Thresholds `json:"detection" schema:"type:object,description:Violation rule thresholds,category:advanced"`

	// Ports declares optional HTTP port configuration.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Port configuration,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Detection: rules.DefaultThresholds(),
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	if c.Detection == (rules.Thresholds{}) {
		c.Detection = DefaultConfig().Detection
	}
	return c
}

// Validate verifies the configuration is consistent.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	return nil
}
