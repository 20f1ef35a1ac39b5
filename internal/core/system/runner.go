package system

import (
	"fmt"
	"sort"
	"time"
)

// Observer receives the duration of every system update and of whole ticks.
type Observer interface {
	ObserveSystem(name string, phase Phase, d time.Duration)
	ObserveTick(d time.Duration)
}

// Runner executes systems in phase order each tick. Systems of the same
// phase run in registration order.
type Runner struct {
	systems  []System
	sorted   bool
	observer Observer
	ticks    uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

// SetObserver installs o; nil disables observation.
func (r *Runner) SetObserver(o Observer) {
	r.observer = o
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Ticks returns how many full ticks have run.
func (r *Runner) Ticks() uint64 { return r.ticks }

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	start := time.Now()
	for _, s := range r.systems {
		r.update(s, dt)
	}
	r.ticks++
	if r.observer != nil {
		r.observer.ObserveTick(time.Since(start))
	}
}

// TickPhase runs only the systems of the given phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			r.update(s, dt)
		}
	}
}

func (r *Runner) update(s System, dt time.Duration) {
	if r.observer == nil {
		s.Update(dt)
		return
	}
	start := time.Now()
	s.Update(dt)
	r.observer.ObserveSystem(SystemName(s), s.Phase(), time.Since(start))
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

// SystemName returns the Named label of s or its Go type name.
func SystemName(s System) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
