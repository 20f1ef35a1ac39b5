package ecs

import (
	"encoding/json"
	"fmt"
	"math"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"
)

// Id encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
type Id uint64

const (
	maxIndex      = math.MaxUint32
	maxGeneration = math.MaxUint32

	// NoId never refers to a live entity.
	NoId Id = math.MaxUint64
)

func MakeId(index uint32, generation uint32) Id {
	return Id(uint64(generation)<<32 | uint64(index))
}

func (id Id) Index() uint32      { return uint32(id) }
func (id Id) Generation() uint32 { return uint32(id >> 32) }
func (id Id) IsNone() bool       { return id.Index() == maxIndex }

func (id Id) String() string {
	if id.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// Ids are persisted as plain integers, -1 standing for NoId. Serializers
// remap runtime ids to file-local indices before encoding.
func (id Id) MarshalJSON() ([]byte, error) {
	if id.IsNone() {
		return []byte("-1"), nil
	}
	return json.Marshal(uint64(id))
}

func (id *Id) UnmarshalJSON(b []byte) error {
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = idFromInt(v)
	return nil
}

func (id Id) EncodeMsgpack(enc *msgpack.Encoder) error {
	if id.IsNone() {
		return enc.EncodeInt(-1)
	}
	return enc.EncodeUint(uint64(id))
}

func (id *Id) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInt64()
	if err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = idFromInt(v)
	return nil
}

func idFromInt(v int64) Id {
	if v < 0 {
		return NoId
	}
	return Id(v)
}

// IdRegistry manages id allocation with generational indices and a free list.
type IdRegistry struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	live        int
}

func NewIdRegistry() *IdRegistry {
	return &IdRegistry{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

// Create returns a new valid id, or NoId once the index space is exhausted.
func (r *IdRegistry) Create() Id {
	if n := len(r.freeList); n > 0 {
		idx := r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
		r.alive[idx] = true
		r.live++
		return MakeId(idx, r.generations[idx])
	}
	idx, err := safecast.Conv[uint32](len(r.generations))
	if err != nil || idx == maxIndex {
		return NoId
	}
	r.generations = append(r.generations, 0)
	r.alive = append(r.alive, true)
	r.live++
	return MakeId(idx, 0)
}

// CreateN fills ids with newly created ids.
func (r *IdRegistry) CreateN(ids []Id) {
	for i := range ids {
		ids[i] = r.Create()
	}
}

// Destroy invalidates id. Destroying an invalid id is a no-op reporting false.
func (r *IdRegistry) Destroy(id Id) bool {
	if !r.IsValid(id) {
		return false
	}
	idx := id.Index()
	r.alive[idx] = false
	r.live--
	if r.generations[idx]+1 == maxGeneration {
		// Retired: the slot would otherwise produce NoId-like generations.
		r.generations[idx] = maxGeneration
		return true
	}
	r.generations[idx]++
	r.freeList = append(r.freeList, idx)
	return true
}

// DestroyN destroys every id and reports whether all of them were valid.
func (r *IdRegistry) DestroyN(ids []Id) bool {
	all := true
	for _, id := range ids {
		if !r.Destroy(id) {
			all = false
		}
	}
	return all
}

func (r *IdRegistry) IsValid(id Id) bool {
	if id.IsNone() {
		return false
	}
	idx := id.Index()
	if int(idx) >= len(r.generations) {
		return false
	}
	return r.alive[idx] && r.generations[idx] == id.Generation()
}

// Size returns the number of live ids.
func (r *IdRegistry) Size() int { return r.live }

// Each calls fn for every live id in index order.
func (r *IdRegistry) Each(fn func(Id)) {
	for i, ok := range r.alive {
		if ok {
			fn(MakeId(uint32(i), r.generations[i]))
		}
	}
}

func (r *IdRegistry) clone() *IdRegistry {
	return &IdRegistry{
		generations: append([]uint32(nil), r.generations...),
		alive:       append([]bool(nil), r.alive...),
		freeList:    append([]uint32(nil), r.freeList...),
		live:        r.live,
	}
}
