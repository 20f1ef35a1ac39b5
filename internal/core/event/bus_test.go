package event

import (
	"errors"
	"testing"

	"github.com/riftlang/rift/internal/core/ecs"
	"github.com/stretchr/testify/assert"
)

func TestBus_DoubleBuffered(t *testing.T) {
	b := NewBus()
	var loaded []string
	var failed []error
	Subscribe(b, func(ev FileLoaded) { loaded = append(loaded, ev.Path) })
	Subscribe(b, func(ev FileLoadFailed) { failed = append(failed, ev.Err) })

	Emit(b, FileLoaded{Id: ecs.MakeId(1, 0), Path: "a.rf"})
	Emit(b, FileLoadFailed{Path: "b.rf", Err: errors.New("boom")})
	assert.Equal(t, 2, b.Pending())

	b.DispatchAll()
	assert.Empty(t, loaded, "events are not visible before the swap")

	b.SwapBuffers()
	assert.Zero(t, b.Pending())
	b.DispatchAll()
	assert.Equal(t, []string{"a.rf"}, loaded)
	assert.Len(t, failed, 1)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, loaded, 1, "front buffer is drained by the next swap")
}

func TestBus_DeliversInEmissionOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(ev FileLoaded) { order = append(order, "loaded "+ev.Path) })
	Subscribe(b, func(ev FileSaved) {
		order = append(order, "saved "+ev.Path)
		Emit(b, FileLoaded{Path: "again"})
	})

	Emit(b, FileSaved{Path: "a"})
	Emit(b, FileLoaded{Path: "b"})
	Emit(b, FileSaved{Path: "c"})
	b.SwapBuffers()
	b.DispatchAll()

	assert.Equal(t, []string{"saved a", "loaded b", "saved c"}, order)
	assert.Equal(t, 2, b.Pending(), "events emitted by handlers wait for the next swap")
}
