package waveview

import (
	"sync"
	"time"
)

// EventKind discriminates instance notifications.
type EventKind int

const (
	// EventConfigChanged fires after a successful SetOptions commit.
	EventConfigChanged EventKind = iota
	// EventLoadStarted fires when byte retrieval begins. Total carries
	// the expected length, -1 when unknown.
	EventLoadStarted
	// EventDecodeProgress fires as bytes arrive. Bytes is the contiguous
	// prefix received so far.
	EventDecodeProgress
	// EventWaveformReady fires whenever a decode pass lands, carrying
	// the stream duration and channel count known at that point.
	EventWaveformReady
	// EventRedrawDone fires after the surface has been repainted.
	EventRedrawDone
	// EventError carries an asynchronous NetworkError or DecodeError.
	EventError
)

// Event is one instance notification. Fields beyond Kind are populated
// per kind, see the EventKind constants.
type Event struct {
	Kind     EventKind
	Bytes    int64
	Total    int64
	Duration time.Duration
	Channels int
	Err      error
}

// hub fans events out to subscribers. Emission is synchronous on the
// emitting goroutine; callbacks must not block and must not call back
// into the instance.
type hub struct {
	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
	closed bool
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *hub) emit(ev Event) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (h *hub) close() {
	h.mu.Lock()
	h.closed = true
	h.subs = nil
	h.mu.Unlock()
}
