package ecs

import "reflect"

// StaticCloner is implemented by statics that survive Context.Clone.
// CloneStatic must return a pointer of the same type.
type StaticCloner interface {
	CloneStatic() any
}

func staticKey[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// SetStatic stores v as the context singleton of type T, replacing any
// previous one.
func SetStatic[T any](c *Context, v T) *T {
	p := &v
	c.statics[staticKey[T]()] = p
	return p
}

// TryGetStatic returns the singleton of type T, or nil.
func TryGetStatic[T any](c *Context) *T {
	if s, ok := c.statics[staticKey[T]()]; ok {
		return s.(*T)
	}
	return nil
}

// GetOrSetStatic returns the singleton of type T, creating a zero value.
func GetOrSetStatic[T any](c *Context) *T {
	if s := TryGetStatic[T](c); s != nil {
		return s
	}
	var zero T
	return SetStatic(c, zero)
}

func HasStatic[T any](c *Context) bool {
	_, ok := c.statics[staticKey[T]()]
	return ok
}

func RemoveStatic[T any](c *Context) bool {
	k := staticKey[T]()
	if _, ok := c.statics[k]; !ok {
		return false
	}
	delete(c.statics, k)
	return true
}
