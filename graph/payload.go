package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"
)

// EntityType is the message type of run and variant entities sent to
// graph.ingest.entity.
var EntityType = message.Type{Domain: "graph", Category: "entity", Version: "v1"}

// RegisterPayloads adds EntityPayload to reg so graph consumers can decode
// the run and variant entities this package publishes.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	r := &payloadregistry.Registration{
		Domain:      EntityType.Domain,
		Category:    EntityType.Category,
		Version:     EntityType.Version,
		Description: "Optimization run or variant with its lineage and score triples",
		Factory:     func() any { return &EntityPayload{} },
	}
	if err := reg.Register(r); err != nil {
		return fmt.Errorf("register %s: %w", r.MessageType(), err)
	}
	return nil
}

// EntityPayload is one optimization run or variant. The ID is a
// RunEntityID or VariantEntityID and the triples use the arch vocabulary.
type EntityPayload struct {
	EntityID_  string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *EntityPayload) EntityID() string          { return e.EntityID_ }
func (e *EntityPayload) Triples() []message.Triple { return e.TripleData }
func (e *EntityPayload) Schema() message.Type      { return EntityType }

// Validate requires an ID. A variant with nothing to say beyond its ID
// still ingests.
func (e *EntityPayload) Validate() error {
	if e.EntityID_ == "" {
		return errors.New("entity ID is required")
	}
	return nil
}

func (e *EntityPayload) MarshalJSON() ([]byte, error) {
	type wire EntityPayload
	return json.Marshal((*wire)(e))
}

func (e *EntityPayload) UnmarshalJSON(data []byte) error {
	type wire EntityPayload
	return json.Unmarshal(data, (*wire)(e))
}
