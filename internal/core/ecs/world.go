package ecs

import (
	"reflect"

	"go.uber.org/zap"
)

// Context is the top-level ECS container. It owns the id registry, one pool
// per component kind, per-context statics and a deferred destruction queue
// flushed by the cleanup system each tick.
type Context struct {
	ids          *IdRegistry
	pools        *poolRegistry
	statics      map[reflect.Type]any
	borrows      map[Kind]int
	destroyQueue []Id
	log          *zap.Logger
}

func NewContext(log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		ids:          NewIdRegistry(),
		pools:        newPoolRegistry(),
		statics:      make(map[reflect.Type]any),
		borrows:      make(map[Kind]int),
		destroyQueue: make([]Id, 0, 64),
		log:          log,
	}
}

func (c *Context) Log() *zap.Logger      { return c.log }
func (c *Context) Registry() *IdRegistry { return c.ids }

func (c *Context) Create() Id {
	return c.ids.Create()
}

func (c *Context) CreateN(ids []Id) {
	c.ids.CreateN(ids)
}

func (c *Context) IsValid(id Id) bool {
	return c.ids.IsValid(id)
}

// Size returns the number of live entities.
func (c *Context) Size() int { return c.ids.Size() }

// Destroy removes every component of each id and invalidates it. Returns
// the number of ids that were valid.
func (c *Context) Destroy(ids ...Id) int {
	n := 0
	for _, id := range ids {
		if !c.ids.IsValid(id) {
			continue
		}
		c.pools.removeAll(id)
		c.ids.Destroy(id)
		n++
	}
	return n
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (c *Context) MarkForDestruction(ids ...Id) {
	c.destroyQueue = append(c.destroyQueue, ids...)
}

// TakeDestroyQueue returns the queued ids and empties the queue.
func (c *Context) TakeDestroyQueue() []Id {
	if len(c.destroyQueue) == 0 {
		return nil
	}
	out := append([]Id(nil), c.destroyQueue...)
	c.destroyQueue = c.destroyQueue[:0]
	return out
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (c *Context) FlushDestroyQueue() int {
	return c.Destroy(c.TakeDestroyQueue()...)
}

// Pool returns the pool of kind k, or nil if it was never requested.
func (c *Context) Pool(k Kind) AnyPool {
	return c.pools.get(k)
}

// Pools returns every pool ordered by kind name.
func (c *Context) Pools() []AnyPool {
	return c.pools.sorted()
}

// PoolOf returns the pool for T, creating it with the swap policy if needed.
func PoolOf[T any](c *Context) *Pool[T] {
	return AssurePool[T](c, SwapPolicy)
}

// AssurePool returns the pool for T, creating it with policy if needed.
// An existing pool keeps its policy.
func AssurePool[T any](c *Context, policy DeletionPolicy) *Pool[T] {
	k := KindOf[T]()
	if p := c.pools.get(k); p != nil {
		return p.(*Pool[T])
	}
	p := NewPool[T](policy)
	c.pools.register(p)
	return p
}

// Reset destroys every entity, pool and static.
func (c *Context) Reset() {
	c.ids = NewIdRegistry()
	c.pools = newPoolRegistry()
	c.statics = make(map[reflect.Type]any)
	c.borrows = make(map[Kind]int)
	c.destroyQueue = c.destroyQueue[:0]
}

// Clone deep copies entities and pools. Statics implementing StaticCloner
// are copied, the rest are dropped.
func (c *Context) Clone() *Context {
	out := &Context{
		ids:          c.ids.clone(),
		pools:        c.pools.clone(),
		statics:      make(map[reflect.Type]any, len(c.statics)),
		borrows:      make(map[Kind]int),
		destroyQueue: append([]Id(nil), c.destroyQueue...),
		log:          c.log,
	}
	for t, s := range c.statics {
		if cl, ok := s.(StaticCloner); ok {
			out.statics[t] = cl.CloneStatic()
		}
	}
	return out
}
