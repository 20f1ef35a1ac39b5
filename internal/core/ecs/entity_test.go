package ecs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestIdPacking(t *testing.T) {
	id := MakeId(7, 3)
	assert.Equal(t, uint32(7), id.Index())
	assert.Equal(t, uint32(3), id.Generation())
	assert.False(t, id.IsNone())
	assert.True(t, NoId.IsNone())
	assert.Equal(t, "7:3", id.String())
	assert.Equal(t, "none", NoId.String())
}

func TestIdRegistry_CreateDestroy(t *testing.T) {
	r := NewIdRegistry()

	ids := make([]Id, 8)
	r.CreateN(ids)
	for _, id := range ids {
		assert.True(t, r.IsValid(id))
	}
	assert.Equal(t, 8, r.Size())

	require.True(t, r.Destroy(ids[2]))
	assert.False(t, r.IsValid(ids[2]))
	assert.False(t, r.Destroy(ids[2]), "second destroy reports failure")
	assert.Equal(t, 7, r.Size())

	reused := r.Create()
	assert.Equal(t, ids[2].Index(), reused.Index())
	assert.Equal(t, ids[2].Generation()+1, reused.Generation())
	assert.True(t, r.IsValid(reused))
	assert.False(t, r.IsValid(ids[2]), "stale generation stays invalid after reuse")
}

func TestIdRegistry_InvalidIds(t *testing.T) {
	r := NewIdRegistry()
	assert.False(t, r.IsValid(NoId))
	assert.False(t, r.IsValid(MakeId(42, 0)))
	assert.False(t, r.Destroy(NoId))

	a, b := r.Create(), r.Create()
	assert.False(t, r.DestroyN([]Id{a, NoId, b}))
	assert.Equal(t, 0, r.Size())
}

func TestIdRegistry_Each(t *testing.T) {
	r := NewIdRegistry()
	ids := make([]Id, 4)
	r.CreateN(ids)
	r.Destroy(ids[1])

	var seen []Id
	r.Each(func(id Id) { seen = append(seen, id) })
	assert.Equal(t, []Id{ids[0], ids[2], ids[3]}, seen)
}

func TestIdRegistry_RetiresExhaustedSlot(t *testing.T) {
	r := NewIdRegistry()
	id := r.Create()
	r.generations[id.Index()] = maxGeneration - 1

	id = MakeId(id.Index(), maxGeneration-1)
	require.True(t, r.Destroy(id))
	next := r.Create()
	assert.NotEqual(t, id.Index(), next.Index())
}

type idHolder struct {
	A Id `json:"a"`
	B Id `json:"b"`
}

func TestIdEncoding(t *testing.T) {
	in := idHolder{A: Id(3), B: NoId}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":-1}`, string(raw))

	var out idHolder
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)

	packed, err := msgpack.Marshal(in)
	require.NoError(t, err)
	var out2 idHolder
	require.NoError(t, msgpack.Unmarshal(packed, &out2))
	assert.Equal(t, in, out2)
}
