package archoptimizer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semarch/architecture"
	"github.com/c360studio/semarch/search"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"
)

// OptimizeRequest is consumed from arch.optimize.request. It carries the
// baseline architecture and optional per-run search overrides.
type OptimizeRequest struct {
	RequestID    string                     `json:"request_id"`
	Slug         string                     `json:"slug"`
	Architecture *architecture.Architecture `json:"architecture"`

	// Search overrides the component's default search parameters. Omitted
	// fields keep the default.
	Search search.Overrides `json:"search"`

	// PublishGraph asks for the run and its Pareto front to be published
	// to the knowledge graph.
	PublishGraph bool `json:"publish_graph,omitempty"`
}

// Schema implements message.Payload.
func (p *OptimizeRequest) Schema() message.Type {
	return OptimizeRequestType
}

// Validate implements message.Payload.
func (p *OptimizeRequest) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if p.Slug == "" {
		return fmt.Errorf("slug is required")
	}
	if p.Architecture == nil {
		return fmt.Errorf("architecture is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *OptimizeRequest) MarshalJSON() ([]byte, error) {
	type Alias OptimizeRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *OptimizeRequest) UnmarshalJSON(data []byte) error {
	type Alias OptimizeRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// ProgressEvent distinguishes progress messages.
type ProgressEvent string

const (
	ProgressIteration ProgressEvent = "iteration"
	ProgressNewBest   ProgressEvent = "new_best"
)

// OptimizeProgress is published to arch.optimize.progress.<request_id>
// while a run is iterating.
type OptimizeProgress struct {
	RequestID    string        `json:"request_id"`
	RunID        string        `json:"run_id"`
	Event        ProgressEvent `json:"event"`
	Iteration    int           `json:"iteration"`
	Violations   int           `json:"violations"`
	Accepted     bool          `json:"accepted"`
	CurrentID    string        `json:"current_id,omitempty"`
	CurrentScore float64       `json:"current_score"`
	BestID       string        `json:"best_id,omitempty"`
	BestScore    float64       `json:"best_score"`
	FrontSize    int           `json:"front_size"`
}

// Schema implements message.Payload.
func (p *OptimizeProgress) Schema() message.Type {
	return OptimizeProgressType
}

// Validate implements message.Payload.
func (p *OptimizeProgress) Validate() error {
	if p.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *OptimizeProgress) MarshalJSON() ([]byte, error) {
	type Alias OptimizeProgress
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *OptimizeProgress) UnmarshalJSON(data []byte) error {
	type Alias OptimizeProgress
	return json.Unmarshal(data, (*Alias)(p))
}

// OptimizeResult is published to arch.optimize.result.<request_id> when a
// run finishes. Result is nil for failed runs.
type OptimizeResult struct {
	RequestID string         `json:"request_id"`
	RunID     string         `json:"run_id"`
	Slug      string         `json:"slug"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Result    *search.Result `json:"result,omitempty"`
}

// Schema implements message.Payload.
func (p *OptimizeResult) Schema() message.Type {
	return OptimizeResultType
}

// Validate implements message.Payload.
func (p *OptimizeResult) Validate() error {
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p *OptimizeResult) MarshalJSON() ([]byte, error) {
	type Alias OptimizeResult
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *OptimizeResult) UnmarshalJSON(data []byte) error {
	type Alias OptimizeResult
	return json.Unmarshal(data, (*Alias)(p))
}

// OptimizeRequestType is the message type for optimization requests.
var OptimizeRequestType = message.Type{
	Domain:   "arch",
	Category: "optimize-request",
	Version:  "v1",
}

// OptimizeProgressType is the message type for progress events.
var OptimizeProgressType = message.Type{
	Domain:   "arch",
	Category: "optimize-progress",
	Version:  "v1",
}

// OptimizeResultType is the message type for optimization results.
var OptimizeResultType = message.Type{
	Domain:   "arch",
	Category: "optimize-result",
	Version:  "v1",
}

// parsePayload extracts a typed payload from a BaseMessage envelope.
func parsePayload[T any](data []byte) (*T, error) {
	var raw struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal BaseMessage: %w", err)
	}
	if len(raw.Payload) == 0 {
		return nil, fmt.Errorf("empty payload in BaseMessage")
	}

	var result T
	if err := json.Unmarshal(raw.Payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload into %T: %w", result, err)
	}
	return &result, nil
}

// RegisterPayloads adds the optimizer's request, progress and result
// payloads to reg.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	registrations := []*payloadregistry.Registration{
		{
			Domain:      OptimizeRequestType.Domain,
			Category:    OptimizeRequestType.Category,
			Version:     OptimizeRequestType.Version,
			Description: "Architecture optimization request with baseline graph",
			Factory:     func() any { return &OptimizeRequest{} },
		},
		{
			Domain:      OptimizeProgressType.Domain,
			Category:    OptimizeProgressType.Category,
			Version:     OptimizeProgressType.Version,
			Description: "Per-iteration optimization progress",
			Factory:     func() any { return &OptimizeProgress{} },
		},
		{
			Domain:      OptimizeResultType.Domain,
			Category:    OptimizeResultType.Category,
			Version:     OptimizeResultType.Version,
			Description: "Optimization result with Pareto front and best variant",
			Factory:     func() any { return &OptimizeResult{} },
		},
	}

	var errs []error
	for _, r := range registrations {
		if err := reg.Register(r); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", r.MessageType(), err))
		}
	}
	return errors.Join(errs...)
}
