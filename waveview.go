// Package waveview renders zoomable, scrollable audio waveforms onto an
// in-memory raster surface. An Instance streams media bytes through its
// loader, progressively folds them into min/max peak buckets, and
// repaints its surface whenever the view changes.
//
// Instances run in one of two modes, fixed at construction. Unbound
// mode tracks the playback position internally and moves it only
// through Seek. Bound mode attaches a Player that owns position truth;
// position, duration and the playing flag are read through to it and
// Seek is rejected.
package waveview

import (
	"image"
	"sync"
	"time"

	"github.com/olivier-w/waveview/internal/loader"
	"github.com/olivier-w/waveview/internal/peaks"
	"github.com/olivier-w/waveview/internal/render"
	"github.com/olivier-w/waveview/internal/view"
)

// Incremental decode thresholds: a partial buffer is re-decoded only
// after it grows by both this many bytes and this fraction since the
// last pass. A completed buffer always decodes.
const (
	minDecodeGrowthBytes = 64 * 1024
	minDecodeGrowthNum   = 5
	minDecodeGrowthDen   = 4
)

type decodeResult struct {
	gen      uint64
	complete bool
	bytes    int64
	data     *peaks.Data
	err      error
}

// Instance is one waveform view over one media stream.
type Instance struct {
	hub hub

	loaderEvents chan loader.Event
	decodeDone   chan decodeResult
	stop         chan struct{}
	loopDone     chan struct{}

	mu        sync.Mutex
	opts      Options
	ctrl      *view.Controller
	drawer    *render.Drawer
	ldr       *loader.Loader
	data      *peaks.Data
	gen       uint64
	destroyed bool

	// Decode pipeline state, owned by the run loop under mu.
	decoding     bool
	lastDecoded  int64
	lastBuffer   []byte
	lastComplete bool
	pendingBuf   []byte
	pendingDone  bool

	pendingEvents []Event
}

// New creates an instance, validates opts as a whole, paints the empty
// surface and registers the instance in the process-wide registry.
func New(opts Options) (*Instance, error) {
	opts = opts.clone()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	in := &Instance{
		opts:         opts,
		loaderEvents: make(chan loader.Event),
		decodeDone:   make(chan decodeResult, 1),
		stop:         make(chan struct{}),
		loopDone:     make(chan struct{}),
	}

	var vp view.Player
	if opts.Player != nil {
		vp = opts.Player
	}
	in.ctrl = view.New(vp, opts.Width, opts.Height, opts.PixelDensity, in.repaint)
	in.drawer = render.New(opts.style())
	in.ldr = loader.New(loader.Config{
		IncludeCredentials: opts.IncludeCredentials,
		CrossOrigin:        opts.CrossOrigin,
		Origin:             opts.Origin,
		Headers:            opts.Headers,
	}, in.loaderEvents)

	in.mu.Lock()
	in.ctrl.Refresh()
	evs := in.takeEvents()
	in.mu.Unlock()

	register(in)
	go in.run()
	in.flush(evs)
	return in, nil
}

// repaint is the controller's redraw callback. It runs with mu held.
func (in *Instance) repaint() {
	in.drawer.Update(in.ctrl.Snapshot(), in.data, in.opts.Channel)
	in.pendingEvents = append(in.pendingEvents, Event{Kind: EventRedrawDone})
}

func (in *Instance) takeEvents() []Event {
	evs := in.pendingEvents
	in.pendingEvents = nil
	return evs
}

func (in *Instance) flush(evs []Event) {
	for _, ev := range evs {
		in.hub.emit(ev)
	}
}

// Subscribe registers a notification callback and returns its cancel
// function. Callbacks run synchronously on internal goroutines and must
// not call back into the instance.
func (in *Instance) Subscribe(fn func(Event)) func() {
	return in.hub.subscribe(fn)
}

// run is the single consumer of loader and decode events. Generation
// comparison against the instance's current load discards stale events,
// which is the only cancellation mechanism between loads.
func (in *Instance) run() {
	for {
		select {
		case <-in.stop:
			close(in.loopDone)
			return
		case ev := <-in.loaderEvents:
			in.handleLoaderEvent(ev)
		case res := <-in.decodeDone:
			in.handleDecodeDone(res)
		}
	}
}

func (in *Instance) handleLoaderEvent(ev loader.Event) {
	in.mu.Lock()
	if in.destroyed || ev.Gen != in.gen {
		in.mu.Unlock()
		return
	}

	switch ev.Kind {
	case loader.EventStarted:
		in.pendingEvents = append(in.pendingEvents, Event{Kind: EventLoadStarted, Total: ev.Total})
	case loader.EventProgress:
		in.pendingEvents = append(in.pendingEvents, Event{Kind: EventDecodeProgress, Bytes: ev.To, Total: ev.Total})
		in.maybeDecode(ev.Buffer, false)
	case loader.EventComplete:
		in.pendingEvents = append(in.pendingEvents, Event{Kind: EventDecodeProgress, Bytes: ev.To, Total: ev.To})
		in.maybeDecode(ev.Buffer, true)
	case loader.EventFailed:
		// The failed stream leaves no waveform. Bumping the generation
		// invalidates any decode pass still in flight; its result is
		// discarded by the comparison above.
		in.resetLoadState(in.ldr.Cancel())
		in.pendingEvents = append(in.pendingEvents, Event{Kind: EventError, Err: &NetworkError{
			Kind:   NetworkKind(ev.FailKind),
			Status: ev.Status,
			Err:    ev.Err,
		}})
	}

	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
}

// maybeDecode schedules a decode pass for buf if the growth thresholds
// are met, or queues it when a pass is already in flight. Called with
// mu held.
func (in *Instance) maybeDecode(buf []byte, complete bool) {
	in.lastBuffer = buf
	in.lastComplete = complete
	if in.decoding {
		in.pendingBuf = buf
		in.pendingDone = in.pendingDone || complete
		return
	}
	if !complete {
		grown := int64(len(buf)) - in.lastDecoded
		if grown < minDecodeGrowthBytes ||
			int64(len(buf))*minDecodeGrowthDen < in.lastDecoded*minDecodeGrowthNum {
			return
		}
	}
	in.startDecode(buf, complete)
}

// startDecode launches one decode goroutine. Called with mu held.
func (in *Instance) startDecode(buf []byte, complete bool) {
	in.decoding = true
	gen := in.gen
	bucket := in.opts.BucketSeconds
	go func() {
		data, err := peaks.Decode(buf, bucket)
		res := decodeResult{gen: gen, complete: complete, bytes: int64(len(buf)), data: data, err: err}
		select {
		case in.decodeDone <- res:
		case <-in.stop:
		}
	}()
}

func (in *Instance) handleDecodeDone(res decodeResult) {
	in.mu.Lock()
	if in.destroyed || res.gen != in.gen {
		in.mu.Unlock()
		return
	}
	in.decoding = false

	switch {
	case res.err != nil && res.complete:
		// The full stream failed to decode; no waveform remains.
		in.data = nil
		in.ctrl.Refresh()
		in.pendingEvents = append(in.pendingEvents, Event{Kind: EventError, Err: &DecodeError{Err: res.err}})
	case res.err != nil:
		// A partial prefix may simply not be decodable yet. Wait for
		// more bytes.
	default:
		in.data = res.data
		in.lastDecoded = res.bytes
		in.ctrl.Batch(func() {
			in.ctrl.SetDuration(res.data.Duration)
			in.ctrl.Refresh()
		})
		in.pendingEvents = append(in.pendingEvents, Event{
			Kind:     EventWaveformReady,
			Duration: res.data.Duration,
			Channels: len(res.data.Channels),
		})
	}

	if in.pendingBuf != nil {
		buf, complete := in.pendingBuf, in.pendingDone
		in.pendingBuf = nil
		in.pendingDone = false
		in.maybeDecode(buf, complete)
	}

	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
}

// resetLoadState clears per-stream state for a new generation. Called
// with mu held.
func (in *Instance) resetLoadState(gen uint64) {
	in.gen = gen
	in.data = nil
	in.decoding = false
	in.lastDecoded = 0
	in.lastBuffer = nil
	in.lastComplete = false
	in.pendingBuf = nil
	in.pendingDone = false
	in.ctrl.Batch(func() {
		in.ctrl.SetDuration(view.Unbounded)
		in.ctrl.Refresh()
	})
}

// Load begins streamed retrieval of target, an http(s) URL or a local
// file path, superseding any in-flight load. An empty target pulls the
// media bytes from the bound player instead, when it exposes them.
// Retrieval failures are delivered asynchronously as EventError.
func (in *Instance) Load(target string) error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return ErrDestroyed
	}

	var gen uint64
	if target == "" {
		opener, ok := in.opts.Player.(MediaOpener)
		if !ok {
			in.mu.Unlock()
			return &UsageError{Op: "load", Reason: "no target given and no bound player exposes its media"}
		}
		gen = in.ldr.LoadFrom(opener.OpenMedia)
	} else {
		gen = in.ldr.Load(target)
	}

	in.resetLoadState(gen)
	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
	return nil
}

// Seek moves the playback position, clamped to the known duration. It
// fails in bound mode, where the player owns the position.
func (in *Instance) Seek(t time.Duration) error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return ErrDestroyed
	}
	err := in.ctrl.Seek(t)
	if err == view.ErrSeekBound {
		err = &UsageError{Op: "seek", Reason: "position is owned by the bound player"}
	}
	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
	return err
}

// Zoom sets the zoom level. Levels above the maximum are clamped;
// levels below one are rejected.
func (in *Instance) Zoom(level int) error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return ErrDestroyed
	}
	err := in.ctrl.SetZoom(level)
	if err == view.ErrZoomNotPositive {
		err = &UsageError{Op: "zoom", Reason: "level must be a positive integer"}
	}
	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
	return err
}

// ZoomLevel returns the effective zoom level.
func (in *Instance) ZoomLevel() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.ctrl.Zoom()
}

// CurrentTime returns the playback position: the bound player's when
// attached, the internally tracked one otherwise.
func (in *Instance) CurrentTime() time.Duration {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed {
		return 0
	}
	return in.ctrl.CurrentTime()
}

// Duration returns the media duration, zero while unknown.
func (in *Instance) Duration() time.Duration {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed {
		return 0
	}
	d := in.ctrl.Duration()
	if d == view.Unbounded {
		return 0
	}
	return d
}

// Playing reports the bound player's playing flag, always false in
// unbound mode.
func (in *Instance) Playing() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return !in.destroyed && in.ctrl.Playing()
}

// Options returns a copy of the committed options.
func (in *Instance) Options() Options {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.opts.clone()
}

// SetOptions merges patch into the committed options, validates the
// merged set and commits it atomically: on any violation nothing
// changes. A committed change repaints once and fires
// EventConfigChanged.
func (in *Instance) SetOptions(patch OptionsPatch) error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return ErrDestroyed
	}

	merged := in.opts.clone()
	patch.apply(&merged)
	if err := merged.validate(); err != nil {
		in.mu.Unlock()
		return err
	}

	prevBucket := in.opts.BucketSeconds
	in.opts = merged
	in.drawer.SetStyle(merged.style())
	in.ldr.SetConfig(loader.Config{
		IncludeCredentials: merged.IncludeCredentials,
		CrossOrigin:        merged.CrossOrigin,
		Origin:             merged.Origin,
		Headers:            merged.Headers,
	})
	in.ctrl.Batch(func() {
		in.ctrl.Resize(merged.Width, merged.Height)
		in.ctrl.SetDensity(merged.PixelDensity)
		in.ctrl.Refresh()
	})

	// A new bucket width invalidates the decoded peaks; re-decode the
	// retained buffer when one exists, queuing behind a pass already in
	// flight.
	if merged.BucketSeconds != prevBucket && in.lastBuffer != nil {
		in.lastDecoded = 0
		if in.decoding {
			in.pendingBuf = in.lastBuffer
			in.pendingDone = in.pendingDone || in.lastComplete
		} else {
			in.startDecode(in.lastBuffer, in.lastComplete)
		}
	}

	in.pendingEvents = append(in.pendingEvents, Event{Kind: EventConfigChanged})
	evs := in.takeEvents()
	in.mu.Unlock()
	in.flush(evs)
	return nil
}

// PeakAt returns the min/max peak of the rendered channel's bucket
// covering t. ok is false while no decoded data covers t.
func (in *Instance) PeakAt(t time.Duration) (min, max float64, ok bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed || in.data == nil || t < 0 {
		return 0, 0, false
	}
	frame := in.data.Frame(in.opts.Channel)
	idx := int(t / (time.Duration(in.data.BucketSeconds) * time.Second))
	if idx < 0 || idx >= len(frame) {
		return 0, 0, false
	}
	p := frame[idx]
	return p.Min, p.Max, true
}

// Surface returns a copy of the current raster, width*density by
// height*density pixels.
func (in *Instance) Surface() *image.RGBA {
	in.mu.Lock()
	defer in.mu.Unlock()
	src := in.drawer.Image()
	if src == nil {
		return nil
	}
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// ExportPNG encodes the surface exactly as last painted; it never
// triggers an implicit repaint.
func (in *Instance) ExportPNG() ([]byte, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.destroyed {
		return nil, ErrDestroyed
	}
	return in.drawer.ExportPNG()
}

// Destroy cancels any in-flight load, stops the run loop, silences
// subscribers and removes the instance from the registry. Safe to call
// more than once; every later operation returns ErrDestroyed.
func (in *Instance) Destroy() {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return
	}
	in.destroyed = true
	in.gen = in.ldr.Cancel()
	in.data = nil
	in.lastBuffer = nil
	in.pendingBuf = nil
	close(in.stop)
	in.mu.Unlock()

	<-in.loopDone
	in.hub.close()
	unregister(in)
}
