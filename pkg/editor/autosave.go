package editor

import (
	"context"
	"sync"
	"time"
)

// DefaultAutosaveDelay is the quiet period before an automatic save
const DefaultAutosaveDelay = 3 * time.Second

// Autosaver saves the store after a quiet period following the last change.
// A pending save is pushed back by every new change, canceled when the flow
// becomes clean, and dropped by Close.
type Autosaver struct {
	store   *Store
	delay   time.Duration
	enabled bool

	mu        sync.Mutex
	timer     *time.Timer
	gen       uint64
	lastRev   uint64
	lastDirty bool
	lastID    string
	closed    bool

	unsubscribe func()
	wg          sync.WaitGroup
}

// NewAutosaver watches store and saves it delay after the last change.
// A disabled autosaver never saves. delay <= 0 selects DefaultAutosaveDelay.
func NewAutosaver(store *Store, enabled bool, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{
		store:   store,
		delay:   delay,
		enabled: enabled,
	}
	if !enabled {
		return a
	}

	st := store.State()
	a.lastRev, a.lastDirty, a.lastID = st.Revision, st.IsDirty, st.FlowID
	a.unsubscribe = store.Subscribe(a.observe)
	if st.IsDirty && st.FlowID != "" {
		a.mu.Lock()
		a.scheduleLocked()
		a.mu.Unlock()
	}
	return a
}

func (a *Autosaver) observe(st State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	changed := st.Revision != a.lastRev || st.IsDirty != a.lastDirty || st.FlowID != a.lastID
	a.lastRev, a.lastDirty, a.lastID = st.Revision, st.IsDirty, st.FlowID
	if !changed {
		return
	}

	if !st.IsDirty || st.FlowID == "" {
		a.stopLocked()
		return
	}
	a.scheduleLocked()
}

func (a *Autosaver) scheduleLocked() {
	a.stopLocked()
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *Autosaver) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
}

func (a *Autosaver) fire(gen uint64) {
	a.mu.Lock()
	// A newer change rescheduled or canceled this save
	if a.closed || gen != a.gen || a.timer == nil {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	if err := a.store.SaveFlow(context.Background()); err != nil {
		a.store.logger.Warn("autosave failed", "error", err)
	}
}

// Pending reports whether a save is scheduled
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

// Close cancels any pending save and waits for a running one to finish
func (a *Autosaver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.stopLocked()
	a.mu.Unlock()

	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.wg.Wait()
}
