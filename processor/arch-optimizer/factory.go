package archoptimizer

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface required for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the arch-optimizer component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "arch-optimizer",
		Factory:     NewComponent,
		Schema:      archOptimizerSchema,
		Type:        "processor",
		Protocol:    "arch",
		Domain:      "semarch",
		Description: "Runs violation-guided architecture optimization on request",
		Version:     "0.1.0",
	})
}
