package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseEvents    Phase = iota // 0: dispatch last tick's events
	PhaseLoad                   // 1: drain load queues, deserialize files
	PhaseResolve                // 2: resolve symbols to ids
	PhasePropagate              // 3: mark calls dirty from changed functions
	PhaseSync                   // 4: sync call pins, drop stale pins
	PhaseTypes                  // 5: expression type fixed point
	PhasePersist                // 6: save dirty files
	PhaseCleanup                // 7: clear tick tags, destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseEvents:
		return "events"
	case PhaseLoad:
		return "load"
	case PhaseResolve:
		return "resolve"
	case PhasePropagate:
		return "propagate"
	case PhaseSync:
		return "sync"
	case PhaseTypes:
		return "types"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Named is optionally implemented by systems to label their metrics.
type Named interface {
	Name() string
}
