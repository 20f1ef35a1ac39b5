package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/riftlang/rift/internal/ast"
	"github.com/riftlang/rift/internal/core/event"
	coresys "github.com/riftlang/rift/internal/core/system"
)

type noop struct{}

func (noop) Phase() coresys.Phase { return coresys.PhaseTypes }
func (noop) Update(time.Duration)  {}

func TestMetrics_ObservesRunner(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	r := coresys.NewRunner()
	r.SetObserver(m)
	r.Register(noop{})

	r.Tick(time.Millisecond)
	r.Tick(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.systemDuration))
	n, err := testutil.GatherAndCount(reg, "rift_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_SamplePools(t *testing.T) {
	m := New(prometheus.NewRegistry())
	tree := ast.NewTree(nil, zap.NewNop())

	m.SamplePools(tree)
	natives := len(tree.Natives().All())
	assert.Equal(t, float64(natives), testutil.ToFloat64(m.entities))
	assert.Equal(t, float64(natives), testutil.ToFloat64(m.poolSize.WithLabelValues("CDeclNative")))

	ast.CreateType(tree, "Class", "Player", "")
	m.SamplePools(tree)
	assert.Equal(t, float64(natives+1), testutil.ToFloat64(m.entities))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.poolSize.WithLabelValues("CDeclClass")))
}

func TestMetrics_CountsFileEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	bus := event.NewBus()
	m.Subscribe(bus)

	event.Emit(bus, event.FileLoaded{Path: "a"})
	event.Emit(bus, event.FileLoaded{Path: "b"})
	event.Emit(bus, event.FileSaved{Path: "a", Skipped: true})
	bus.SwapBuffers()
	bus.DispatchAll()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.files.WithLabelValues("load", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("save", "skipped")))
	assert.Zero(t, testutil.ToFloat64(m.files.WithLabelValues("save", "written")))
}
