package ecs

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrCapability is returned when narrowing asks for more than the parent grants.
	ErrCapability = errors.New("ecs: capability not granted by parent access")
	// ErrBorrowed is returned when a pool is already borrowed incompatibly.
	ErrBorrowed = errors.New("ecs: pool already borrowed")
)

// Capability declares read or write intent over one component kind.
type Capability struct {
	Kind  Kind
	Write bool
}

func Read[T any]() Capability  { return Capability{Kind: KindOf[T]()} }
func Write[T any]() Capability { return Capability{Kind: KindOf[T](), Write: true} }

func (c Capability) String() string {
	if c.Write {
		return "write " + c.Kind.String()
	}
	return "read " + c.Kind.String()
}

// Access is a capability-checked view over a Context. Every typed operation
// verifies the declared capability; a missing one is logged and the call
// fails. The root access (Context.Root) grants everything.
type Access struct {
	ctx      *Context
	root     bool
	caps     map[Kind]bool // true: write
	borrowed bool
}

// Root returns the owner view of the context with every capability.
func (c *Context) Root() *Access {
	return &Access{ctx: c, root: true}
}

// Narrow derives an access holding only caps. Narrowing the root borrows
// the pools (one writer or many readers per pool) until Release.
func (a *Access) Narrow(caps ...Capability) (*Access, error) {
	n := &Access{ctx: a.ctx, caps: make(map[Kind]bool, len(caps))}
	for _, c := range caps {
		if c.Write && !a.CanWrite(c.Kind) || !c.Write && !a.CanRead(c.Kind) {
			return nil, fmt.Errorf("narrow %s: %w", c, ErrCapability)
		}
		n.caps[c.Kind] = n.caps[c.Kind] || c.Write
	}
	if !a.root {
		return n, nil
	}

	for k, write := range n.caps {
		b := a.ctx.borrows[k]
		if b < 0 || (write && b > 0) {
			return nil, fmt.Errorf("borrow %s: %w", k, ErrBorrowed)
		}
	}
	for k, write := range n.caps {
		if write {
			a.ctx.borrows[k] = -1
		} else {
			a.ctx.borrows[k]++
		}
	}
	n.borrowed = true
	return n, nil
}

// Release returns the pools borrowed by Narrow. Safe to call more than once.
func (a *Access) Release() {
	if !a.borrowed {
		return
	}
	a.borrowed = false
	for k, write := range a.caps {
		if write {
			a.ctx.borrows[k] = 0
		} else if a.ctx.borrows[k] > 0 {
			a.ctx.borrows[k]--
		}
	}
}

func (a *Access) Context() *Context { return a.ctx }
func (a *Access) Log() *zap.Logger  { return a.ctx.log }

func (a *Access) CanRead(k Kind) bool {
	if a.root {
		return true
	}
	_, ok := a.caps[k]
	return ok
}

func (a *Access) CanWrite(k Kind) bool {
	return a.root || a.caps[k]
}

// Capabilities lists the declared capabilities. Nil for the root access.
func (a *Access) Capabilities() []Capability {
	if a.root {
		return nil
	}
	out := make([]Capability, 0, len(a.caps))
	for k, w := range a.caps {
		out = append(out, Capability{Kind: k, Write: w})
	}
	return out
}

// Entity lifecycle is context wide and needs no capability.

func (a *Access) Create() Id            { return a.ctx.Create() }
func (a *Access) CreateN(ids []Id)      { a.ctx.CreateN(ids) }
func (a *Access) Destroy(ids ...Id) int { return a.ctx.Destroy(ids...) }
func (a *Access) IsValid(id Id) bool    { return a.ctx.IsValid(id) }
func (a *Access) Size() int             { return a.ctx.Size() }

func (a *Access) denied(op string, k Kind) {
	a.ctx.log.Error("undeclared component access",
		zap.String("op", op),
		zap.String("component", k.String()),
	)
}

func readable[T any](a *Access, op string) (*Pool[T], bool) {
	k := KindOf[T]()
	if !a.CanRead(k) {
		a.denied(op, k)
		return nil, false
	}
	if p := a.ctx.pools.get(k); p != nil {
		return p.(*Pool[T]), true
	}
	return nil, true
}

func writable[T any](a *Access, op string) *Pool[T] {
	k := KindOf[T]()
	if !a.CanWrite(k) {
		a.denied(op, k)
		return nil
	}
	return PoolOf[T](a.ctx)
}

func Has[T any](a *Access, id Id) bool {
	p, _ := readable[T](a, "has")
	return p != nil && p.Has(id)
}

// Get returns the component of id, or nil. Callers holding only read
// capability must treat it as immutable.
func Get[T any](a *Access, id Id) *T {
	p, _ := readable[T](a, "get")
	if p == nil {
		return nil
	}
	return p.Get(id)
}

// Mut returns the component of id for mutation, or nil.
func Mut[T any](a *Access, id Id) *T {
	k := KindOf[T]()
	if !a.CanWrite(k) {
		a.denied("mut", k)
		return nil
	}
	if p := a.ctx.pools.get(k); p != nil {
		return p.(*Pool[T]).Get(id)
	}
	return nil
}

// stale logs and reports ids that are not alive. Components are never
// added to them.
func (a *Access) stale(op string, id Id) bool {
	if a.ctx.IsValid(id) {
		return false
	}
	a.ctx.log.Error("component added to invalid entity",
		zap.String("op", op),
		zap.Stringer("id", id),
	)
	return true
}

func Add[T any](a *Access, id Id, v T) *T {
	if p := writable[T](a, "add"); p != nil && !a.stale("add", id) {
		return p.Add(id, v)
	}
	return nil
}

// AddN adds v to every live id of ids.
func AddN[T any](a *Access, ids []Id, v T) {
	p := writable[T](a, "add")
	if p == nil {
		return
	}
	live := make([]Id, 0, len(ids))
	for _, id := range ids {
		if !a.stale("add", id) {
			live = append(live, id)
		}
	}
	p.AddN(live, v)
}

func GetOrAdd[T any](a *Access, id Id) *T {
	if p := writable[T](a, "get-or-add"); p != nil && !a.stale("get-or-add", id) {
		return p.GetOrAdd(id)
	}
	return nil
}

func Remove[T any](a *Access, id Id) bool {
	if p := writable[T](a, "remove"); p != nil {
		return p.Remove(id)
	}
	return false
}

func RemoveN[T any](a *Access, ids []Id) int {
	if p := writable[T](a, "remove"); p != nil {
		return p.RemoveN(ids)
	}
	return 0
}

// Clear removes every T component.
func Clear[T any](a *Access) {
	if p := writable[T](a, "clear"); p != nil {
		p.Clear()
	}
}

// Size returns the number of T components.
func Size[T any](a *Access) int {
	p, _ := readable[T](a, "size")
	if p == nil {
		return 0
	}
	return p.Len()
}

// PoolFor returns the pool of T when the access may write it, nil otherwise.
func PoolFor[T any](a *Access) *Pool[T] {
	return writable[T](a, "pool")
}
