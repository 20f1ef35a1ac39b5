package ecs

import (
	"reflect"
	"sort"
)

// Kind identifies a component type. It keys pools and capabilities.
type Kind struct {
	t reflect.Type
}

func KindOf[T any]() Kind {
	return Kind{t: reflect.TypeFor[T]()}
}

func (k Kind) String() string {
	if k.t == nil {
		return "<nil>"
	}
	return k.t.Name()
}

// AnyPool is the type-erased view of a Pool used by the context to
// bulk-remove an entity's data from every pool on destroy.
type AnyPool interface {
	Kind() Kind
	Has(id Id) bool
	Remove(id Id) bool
	Len() int
	Ids() []Id
	Clear()
	cloneAny() AnyPool
}

// poolRegistry tracks all pools of a context keyed by component kind.
type poolRegistry struct {
	pools map[Kind]AnyPool
}

func newPoolRegistry() *poolRegistry {
	return &poolRegistry{
		pools: make(map[Kind]AnyPool, 32),
	}
}

func (r *poolRegistry) get(k Kind) AnyPool {
	return r.pools[k]
}

func (r *poolRegistry) register(p AnyPool) {
	r.pools[p.Kind()] = p
}

// removeAll clears the given id from every registered pool.
func (r *poolRegistry) removeAll(id Id) {
	for _, p := range r.pools {
		p.Remove(id)
	}
}

// sorted returns the pools ordered by kind name.
func (r *poolRegistry) sorted() []AnyPool {
	out := make([]AnyPool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Kind().String() < out[j].Kind().String()
	})
	return out
}

func (r *poolRegistry) clone() *poolRegistry {
	c := newPoolRegistry()
	for k, p := range r.pools {
		c.pools[k] = p.cloneAny()
	}
	return c
}
