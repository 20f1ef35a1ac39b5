package ast

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// PoolStat is the size of one component pool.
type PoolStat struct {
	Component string
	Len       int
}

// PoolStats lists the non empty pools of t ordered by component name.
func PoolStats(t *Tree) []PoolStat {
	var out []PoolStat
	for _, p := range t.ctx.Pools() {
		if n := p.Len(); n > 0 {
			out = append(out, PoolStat{Component: p.Kind().String(), Len: n})
		}
	}
	return out
}

// DumpPools writes a table of entity and pool sizes.
func DumpPools(w io.Writer, t *Tree) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "entities\t%d\n", t.ctx.Size())
	for _, s := range PoolStats(t) {
		fmt.Fprintf(tw, "%s\t%d\n", s.Component, s.Len)
	}
	return tw.Flush()
}
