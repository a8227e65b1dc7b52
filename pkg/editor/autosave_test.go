package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/flowedit/pkg/flow"
)

const testDelay = 30 * time.Millisecond

func TestAutosaveDebouncesBurst(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "auto"})
	a := NewAutosaver(s, true, testDelay)
	defer a.Close()

	for i := 0; i < 5; i++ {
		s.AddNode(flow.TypeText, flow.Position{}, nil)
	}
	assert.True(t, a.Pending())

	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !s.Status().IsDirty }, time.Second, 5*time.Millisecond)

	// Nothing else is scheduled once the flow is clean
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, backend.saveCount())
	assert.Len(t, backend.record("auto").Nodes, 5)
}

func TestAutosaveDisabled(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "auto"})
	a := NewAutosaver(s, false, testDelay)
	defer a.Close()

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	time.Sleep(3 * testDelay)
	assert.Zero(t, backend.saveCount())
	assert.False(t, a.Pending())
}

func TestAutosaveRequiresFlowID(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend})
	a := NewAutosaver(s, true, testDelay)
	defer a.Close()

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	assert.False(t, a.Pending())

	s.SetFlowID("late")
	assert.True(t, a.Pending())
	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutosaveCanceledWhenClean(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "auto"})
	a := NewAutosaver(s, true, testDelay)
	defer a.Close()

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	require.True(t, a.Pending())
	s.SetDirty(false)
	assert.False(t, a.Pending())

	time.Sleep(3 * testDelay)
	assert.Zero(t, backend.saveCount())
}

func TestAutosaveClose(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "auto"})
	a := NewAutosaver(s, true, testDelay)

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	a.Close()
	a.Close()

	s.AddNode(flow.TypeText, flow.Position{}, nil)
	time.Sleep(3 * testDelay)
	assert.Zero(t, backend.saveCount())
}

func TestAutosaveSchedulesForInitiallyDirtyStore(t *testing.T) {
	backend := newMemoryBackend()
	s := newTestStore(t, Options{Backend: backend, FlowID: "auto"})
	s.AddNode(flow.TypeText, flow.Position{}, nil)

	a := NewAutosaver(s, true, testDelay)
	defer a.Close()
	require.Eventually(t, func() bool { return backend.saveCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestAutosaveDefaultDelay(t *testing.T) {
	s := newTestStore(t, Options{})
	a := NewAutosaver(s, true, 0)
	defer a.Close()
	assert.Equal(t, DefaultAutosaveDelay, a.delay)
}
