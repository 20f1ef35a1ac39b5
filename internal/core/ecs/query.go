package ecs

func (a *Access) readablePools(op string, kinds []Kind) ([]AnyPool, bool) {
	pools := make([]AnyPool, len(kinds))
	for i, k := range kinds {
		if !a.CanRead(k) {
			a.denied(op, k)
			return nil, false
		}
		pools[i] = a.ctx.pools.get(k)
	}
	return pools, true
}

// ListAll returns the ids having every kind. It iterates the smallest pool
// and probes the rest.
func ListAll(a *Access, kinds ...Kind) []Id {
	if len(kinds) == 0 {
		return nil
	}
	pools, ok := a.readablePools("list-all", kinds)
	if !ok {
		return nil
	}
	smallest := -1
	for i, p := range pools {
		if p == nil || p.Len() == 0 {
			return nil
		}
		if smallest < 0 || p.Len() < pools[smallest].Len() {
			smallest = i
		}
	}

	ids := pools[smallest].Ids()
	out := ids[:0]
outer:
	for _, id := range ids {
		for i, p := range pools {
			if i != smallest && !p.Has(id) {
				continue outer
			}
		}
		out = append(out, id)
	}
	return out
}

// ListAny returns the ids having at least one kind, each id once.
func ListAny(a *Access, kinds ...Kind) []Id {
	pools, ok := a.readablePools("list-any", kinds)
	if !ok {
		return nil
	}
	var out []Id
	for i, p := range pools {
		if p == nil {
			continue
		}
	next:
		for _, id := range p.Ids() {
			for _, prev := range pools[:i] {
				if prev != nil && prev.Has(id) {
					continue next
				}
			}
			out = append(out, id)
		}
	}
	return out
}

// List returns the ids having a T component, in dense order.
func List[T any](a *Access) []Id {
	return ListAll(a, KindOf[T]())
}

// FirstId returns any id having a T component, or NoId.
func FirstId[T any](a *Access) Id {
	p, _ := readable[T](a, "first-id")
	if p == nil {
		return NoId
	}
	for _, id := range p.ids {
		if !id.IsNone() {
			return id
		}
	}
	return NoId
}

func (a *Access) probe(op string, k Kind) (AnyPool, bool) {
	if !a.CanRead(k) {
		a.denied(op, k)
		return nil, false
	}
	return a.ctx.pools.get(k), true
}

func removeIf(ids []Id, drop func(Id) bool) []Id {
	for i := 0; i < len(ids); {
		if drop(ids[i]) {
			last := len(ids) - 1
			ids[i] = ids[last]
			ids = ids[:last]
			continue
		}
		i++
	}
	return ids
}

func removeIfStable(ids []Id, drop func(Id) bool) []Id {
	out := ids[:0]
	for _, id := range ids {
		if !drop(id) {
			out = append(out, id)
		}
	}
	return out
}

// ExcludeIf drops the ids having kind k. Order is not preserved.
func ExcludeIf(a *Access, ids []Id, k Kind) []Id {
	p, ok := a.probe("exclude-if", k)
	if !ok || p == nil {
		return ids
	}
	return removeIf(ids, p.Has)
}

// ExcludeIfNot drops the ids lacking kind k. Order is not preserved.
func ExcludeIfNot(a *Access, ids []Id, k Kind) []Id {
	p, ok := a.probe("exclude-if-not", k)
	if !ok {
		return ids
	}
	if p == nil {
		return ids[:0]
	}
	return removeIf(ids, func(id Id) bool { return !p.Has(id) })
}

// ExcludeIfStable is ExcludeIf preserving the order of the kept ids.
func ExcludeIfStable(a *Access, ids []Id, k Kind) []Id {
	p, ok := a.probe("exclude-if", k)
	if !ok || p == nil {
		return ids
	}
	return removeIfStable(ids, p.Has)
}

// ExcludeIfNotStable is ExcludeIfNot preserving the order of the kept ids.
func ExcludeIfNotStable(a *Access, ids []Id, k Kind) []Id {
	p, ok := a.probe("exclude-if-not", k)
	if !ok {
		return ids
	}
	if p == nil {
		return ids[:0]
	}
	return removeIfStable(ids, func(id Id) bool { return !p.Has(id) })
}

// ExtractIf moves the ids having kind k out of ids, returning both sets.
func ExtractIf(a *Access, ids []Id, k Kind) (kept, extracted []Id) {
	p, ok := a.probe("extract-if", k)
	if !ok || p == nil {
		return ids, nil
	}
	kept = ids[:0]
	for _, id := range ids {
		if p.Has(id) {
			extracted = append(extracted, id)
		} else {
			kept = append(kept, id)
		}
	}
	return kept, extracted
}
