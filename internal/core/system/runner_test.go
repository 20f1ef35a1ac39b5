package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordSystem struct {
	name  string
	phase Phase
	log   *[]string
}

func (s *recordSystem) Phase() Phase           { return s.phase }
func (s *recordSystem) Name() string           { return s.name }
func (s *recordSystem) Update(_ time.Duration) { *s.log = append(*s.log, s.name) }

type countObserver struct {
	systems map[string]int
	ticks   int
}

func (o *countObserver) ObserveSystem(name string, _ Phase, _ time.Duration) { o.systems[name]++ }
func (o *countObserver) ObserveTick(_ time.Duration)                         { o.ticks++ }

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordSystem{name: "cleanup", phase: PhaseCleanup, log: &log})
	r.Register(&recordSystem{name: "sync", phase: PhaseSync, log: &log})
	r.Register(&recordSystem{name: "resolve-calls", phase: PhaseResolve, log: &log})
	r.Register(&recordSystem{name: "resolve-types", phase: PhaseResolve, log: &log})
	r.Register(&recordSystem{name: "load", phase: PhaseLoad, log: &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"load", "resolve-calls", "resolve-types", "sync", "cleanup"}, log)
	assert.Equal(t, uint64(1), r.Ticks())

	log = log[:0]
	r.TickPhase(PhaseResolve, 0)
	assert.Equal(t, []string{"resolve-calls", "resolve-types"}, log)
}

func TestRunner_Observer(t *testing.T) {
	var log []string
	obs := &countObserver{systems: map[string]int{}}
	r := NewRunner()
	r.SetObserver(obs)
	r.Register(&recordSystem{name: "load", phase: PhaseLoad, log: &log})

	r.Tick(0)
	r.Tick(0)
	assert.Equal(t, 2, obs.ticks)
	assert.Equal(t, 2, obs.systems["load"])
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "types", PhaseTypes.String())
	assert.Equal(t, "unknown", Phase(99).String())
}
