package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semarch/vocabulary/arch"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"
)

func TestRegisterPayloads(t *testing.T) {
	reg := payloadregistry.New()
	require.NoError(t, RegisterPayloads(reg))
	assert.Error(t, RegisterPayloads(reg), "second registration collides")

	created := reg.Create("graph", "entity", "v1")
	_, ok := created.(*EntityPayload)
	assert.True(t, ok, "factory builds %T", created)
}

func TestEntityPayload_DecodesThroughRegistry(t *testing.T) {
	reg := payloadregistry.New()
	require.NoError(t, RegisterPayloads(reg))

	in := &EntityPayload{
		EntityID_: VariantEntityID("r1", "v2"),
		TripleData: []message.Triple{
			{Subject: VariantEntityID("r1", "v2"), Predicate: arch.ProducedBy, Object: RunEntityID("r1")},
		},
	}
	require.NoError(t, in.Validate())
	data, err := json.Marshal(message.NewBaseMessage(EntityType, in, "test"))
	require.NoError(t, err)

	msg, err := message.NewDecoder(reg).Decode(data)
	require.NoError(t, err)
	out, ok := msg.Payload().(*EntityPayload)
	require.True(t, ok, "decoded %T", msg.Payload())
	assert.Equal(t, in.EntityID_, out.EntityID())
	require.Len(t, out.Triples(), 1)
	assert.Equal(t, arch.ProducedBy, out.Triples()[0].Predicate)

	assert.Error(t, (&EntityPayload{}).Validate())
}
