package ecs

// DeletionPolicy selects how a pool fills the hole left by a removed id.
type DeletionPolicy uint8

const (
	// SwapPolicy moves the last entry into the hole. O(1), reorders.
	SwapPolicy DeletionPolicy = iota
	// InPlacePolicy leaves a tombstone so every other entry keeps its slot.
	InPlacePolicy
)

func (p DeletionPolicy) String() string {
	if p == InPlacePolicy {
		return "in-place"
	}
	return "swap"
}

// Cloner is implemented by components owning slices so pool clones
// don't share backing arrays.
type Cloner[T any] interface {
	Clone() T
}

const noSlot = -1

// Pool is a sparse-set store for one component type. The sparse array maps
// id indices to dense slots; ids and data are dense and index aligned.
type Pool[T any] struct {
	kind     Kind
	policy   DeletionPolicy
	sparse   []int32
	ids      []Id
	data     []T
	free     []int32
	onAdd    Broadcast[[]Id]
	onRemove Broadcast[[]Id]
}

func NewPool[T any](policy DeletionPolicy) *Pool[T] {
	return &Pool[T]{
		kind:   KindOf[T](),
		policy: policy,
		ids:    make([]Id, 0, 64),
		data:   make([]T, 0, 64),
	}
}

func (p *Pool[T]) Kind() Kind                 { return p.kind }
func (p *Pool[T]) Policy() DeletionPolicy     { return p.policy }
func (p *Pool[T]) OnAdd() *Broadcast[[]Id]    { return &p.onAdd }
func (p *Pool[T]) OnRemove() *Broadcast[[]Id] { return &p.onRemove }

func (p *Pool[T]) slot(id Id) int32 {
	if id.IsNone() {
		return noSlot
	}
	idx := int(id.Index())
	if idx >= len(p.sparse) {
		return noSlot
	}
	s := p.sparse[idx]
	if s == noSlot || p.ids[s] != id {
		return noSlot
	}
	return s
}

func (p *Pool[T]) Has(id Id) bool { return p.slot(id) != noSlot }

// Get returns the component of id, or nil. The pointer is valid until the
// next Add or Remove on this pool.
func (p *Pool[T]) Get(id Id) *T {
	if s := p.slot(id); s != noSlot {
		return &p.data[s]
	}
	return nil
}

// Add stores v for id. Re-adding overwrites the value without firing OnAdd.
// Returns nil when a different generation of the same index holds a
// component.
func (p *Pool[T]) Add(id Id, v T) *T {
	c, added := p.insert(id, v)
	if added {
		p.onAdd.Emit([]Id{id})
	}
	return c
}

// AddN adds v to every id and fires OnAdd once for the newly added ids.
func (p *Pool[T]) AddN(ids []Id, v T) {
	var added []Id
	for _, id := range ids {
		if _, ok := p.insert(id, v); ok {
			added = append(added, id)
		}
	}
	if len(added) > 0 {
		p.onAdd.Emit(added)
	}
}

// GetOrAdd returns the component of id, adding a zero value if missing.
func (p *Pool[T]) GetOrAdd(id Id) *T {
	if c := p.Get(id); c != nil {
		return c
	}
	var zero T
	return p.Add(id, zero)
}

func (p *Pool[T]) insert(id Id, v T) (*T, bool) {
	if id.IsNone() {
		return nil, false
	}
	if s := p.slot(id); s != noSlot {
		p.data[s] = v
		return &p.data[s], false
	}

	idx := int(id.Index())
	// Another generation of this index still owns a slot.
	if idx < len(p.sparse) && p.sparse[idx] != noSlot {
		return nil, false
	}
	for idx >= len(p.sparse) {
		p.sparse = append(p.sparse, noSlot)
	}

	var s int32
	if n := len(p.free); p.policy == InPlacePolicy && n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
		p.ids[s] = id
		p.data[s] = v
	} else {
		s = int32(len(p.ids))
		p.ids = append(p.ids, id)
		p.data = append(p.data, v)
	}
	p.sparse[idx] = s
	return &p.data[s], true
}

// Remove deletes the component of id. Returns false if id had none.
func (p *Pool[T]) Remove(id Id) bool {
	if !p.Has(id) {
		return false
	}
	p.onRemove.Emit([]Id{id})
	if p.Has(id) {
		p.erase(id)
	}
	return true
}

// RemoveN removes every id present and returns how many were removed.
func (p *Pool[T]) RemoveN(ids []Id) int {
	present := make([]Id, 0, len(ids))
	for _, id := range ids {
		if p.Has(id) {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return 0
	}
	p.onRemove.Emit(present)
	n := 0
	for _, id := range present {
		// A listener may already have removed it.
		if p.Has(id) {
			p.erase(id)
			n++
		}
	}
	return n
}

func (p *Pool[T]) erase(id Id) {
	s := p.slot(id)
	var zero T
	switch p.policy {
	case InPlacePolicy:
		p.ids[s] = NoId
		p.data[s] = zero
		p.free = append(p.free, s)
	default:
		last := int32(len(p.ids) - 1)
		if s != last {
			moved := p.ids[last]
			p.ids[s] = moved
			p.data[s] = p.data[last]
			p.sparse[moved.Index()] = s
		}
		p.data[last] = zero
		p.ids = p.ids[:last]
		p.data = p.data[:last]
	}
	p.sparse[id.Index()] = noSlot
}

// Len returns the number of live components.
func (p *Pool[T]) Len() int { return len(p.ids) - len(p.free) }

// Ids returns a copy of the live ids in dense order.
func (p *Pool[T]) Ids() []Id {
	out := make([]Id, 0, p.Len())
	for _, id := range p.ids {
		if !id.IsNone() {
			out = append(out, id)
		}
	}
	return out
}

// Each iterates in dense order. fn must not add or remove on this pool.
func (p *Pool[T]) Each(fn func(Id, *T)) {
	for i, id := range p.ids {
		if !id.IsNone() {
			fn(id, &p.data[i])
		}
	}
}

// Clear removes every component, firing OnRemove once.
func (p *Pool[T]) Clear() {
	if p.Len() == 0 {
		return
	}
	p.onRemove.Emit(p.Ids())
	p.sparse = p.sparse[:0]
	p.ids = p.ids[:0]
	p.data = p.data[:0]
	p.free = p.free[:0]
}

// Compact drops tombstones left by the in-place policy.
func (p *Pool[T]) Compact() {
	if len(p.free) == 0 {
		return
	}
	n := int32(0)
	for i, id := range p.ids {
		if id.IsNone() {
			continue
		}
		p.ids[n] = id
		p.data[n] = p.data[i]
		p.sparse[id.Index()] = n
		n++
	}
	var zero T
	for i := n; i < int32(len(p.data)); i++ {
		p.data[i] = zero
	}
	p.ids = p.ids[:n]
	p.data = p.data[:n]
	p.free = p.free[:0]
}

// Clone copies the stored components. Listeners are not copied.
func (p *Pool[T]) Clone() *Pool[T] {
	c := &Pool[T]{
		kind:   p.kind,
		policy: p.policy,
		sparse: append([]int32(nil), p.sparse...),
		ids:    append([]Id(nil), p.ids...),
		data:   make([]T, len(p.data)),
		free:   append([]int32(nil), p.free...),
	}
	for i, v := range p.data {
		if cl, ok := any(v).(Cloner[T]); ok && !p.ids[i].IsNone() {
			v = cl.Clone()
		}
		c.data[i] = v
	}
	return c
}

func (p *Pool[T]) cloneAny() AnyPool { return p.Clone() }
