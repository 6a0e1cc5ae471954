package archapi

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface required for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the arch-api component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "arch-api",
		Factory:     NewComponent,
		Schema:      archAPISchema,
		Type:        "processor",
		Protocol:    "http",
		Domain:      "semarch",
		Description: "HTTP endpoints for optimization runs, detection and scoring",
		Version:     "0.1.0",
	})
}
