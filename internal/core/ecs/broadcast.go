package ecs

// Handle identifies a listener bound to a Broadcast.
type Handle uint32

type listener[T any] struct {
	handle Handle
	fn     func(T)
}

// Broadcast is a synchronous, single-goroutine event hook.
type Broadcast[T any] struct {
	listeners []listener[T]
	next      Handle
}

// Bind registers fn and returns a handle for Unbind.
func (b *Broadcast[T]) Bind(fn func(T)) Handle {
	b.next++
	b.listeners = append(b.listeners, listener[T]{handle: b.next, fn: fn})
	return b.next
}

func (b *Broadcast[T]) Unbind(h Handle) bool {
	for i, l := range b.listeners {
		if l.handle == h {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every listener in bind order.
func (b *Broadcast[T]) Emit(v T) {
	for _, l := range b.listeners {
		l.fn(v)
	}
}

func (b *Broadcast[T]) Len() int { return len(b.listeners) }
