// Package loader streams raw media bytes for one waveform instance.
//
// Every retrieval is tagged with a monotonically increasing generation
// id. Starting a new load (or cancelling outright) bumps the generation
// and cancels the in-flight context; the consumer discards events whose
// generation is stale. That comparison is the sole cancellation
// mechanism between loads; no locks guard the byte buffer, which is
// only ever appended to by the goroutine of its own generation.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sync"
	"sync/atomic"
)

const chunkSize = 32 * 1024

// FailureKind classifies a failed retrieval.
type FailureKind string

const (
	FailNetwork    FailureKind = "network"
	FailAborted    FailureKind = "aborted"
	FailCORSDenied FailureKind = "cors-denied"
	FailHTTPStatus FailureKind = "http-status"
)

// EventKind discriminates retrieval events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventComplete
	EventFailed
)

// Event is one retrieval notification. Buffer is the append-only byte
// prefix received so far; receivers must treat it as read-only.
type Event struct {
	Gen      uint64
	Kind     EventKind
	From     int64 // start of the newly available range (Progress)
	To       int64 // end of the newly available range, also total received
	Total    int64 // expected length, -1 when unknown
	Buffer   []byte
	FailKind FailureKind
	Status   int // HTTP status for FailHTTPStatus
	Err      error
}

// Config carries the network options of one instance.
type Config struct {
	// IncludeCredentials keeps cookies across requests of this loader.
	IncludeCredentials bool
	// CrossOrigin sends an Origin header and requires the response to
	// allow it, mirroring an anonymous cross-origin media fetch.
	CrossOrigin bool
	// Origin is the value sent when CrossOrigin is set. Empty means "null".
	Origin string
	// Headers are added verbatim to every request.
	Headers map[string]string
}

// Loader streams bytes for one instance, one generation at a time.
type Loader struct {
	events chan<- Event

	gen    atomic.Uint64
	mu     sync.Mutex
	cfg    Config
	client *http.Client
	cancel context.CancelFunc
}

// New creates a loader emitting into events. The channel is consumed by
// a single goroutine on the instance side.
func New(cfg Config, events chan<- Event) *Loader {
	l := &Loader{events: events}
	l.SetConfig(cfg)
	return l
}

// SetConfig replaces the network options. Retrievals already in flight
// keep the configuration they started with.
func (l *Loader) SetConfig(cfg Config) {
	client := &http.Client{}
	if cfg.IncludeCredentials {
		if jar, err := cookiejar.New(nil); err == nil {
			client.Jar = jar
		}
	}
	l.mu.Lock()
	l.cfg = cfg
	l.client = client
	l.mu.Unlock()
}

// Gen returns the current generation id.
func (l *Loader) Gen() uint64 { return l.gen.Load() }

// Load begins streamed retrieval of target, which may be an http(s) URL
// or a local file path. It supersedes any in-flight retrieval and
// returns the new generation id.
func (l *Loader) Load(target string) uint64 {
	ctx, gen := l.begin()
	cfg, client := l.snapshot()
	go func() {
		if IsURL(target) {
			l.fetchHTTP(ctx, gen, cfg, client, target)
			return
		}
		l.fetchOpener(ctx, gen, func() (io.ReadCloser, int64, error) {
			f, err := os.Open(target)
			if err != nil {
				return nil, -1, err
			}
			size := int64(-1)
			if info, statErr := f.Stat(); statErr == nil {
				size = info.Size()
			}
			return f, size, nil
		})
	}()
	return gen
}

// LoadFrom begins a pull from an arbitrary byte source, used when the
// instance is bound to a player that exposes its media. open is invoked
// on the retrieval goroutine.
func (l *Loader) LoadFrom(open func() (io.ReadCloser, int64, error)) uint64 {
	ctx, gen := l.begin()
	go l.fetchOpener(ctx, gen, open)
	return gen
}

// Cancel invalidates the current generation without starting a new load.
// Late events from the cancelled retrieval are discarded by generation
// comparison on the consumer side.
func (l *Loader) Cancel() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return l.gen.Add(1)
}

func (l *Loader) begin() (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	return ctx, l.gen.Add(1)
}

func (l *Loader) snapshot() (Config, *http.Client) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg, l.client
}

// emit delivers an event unless the retrieval context is gone. The
// consumer channel is serviced by a single live goroutine, so a send
// only blocks transiently; context cancellation unblocks a send whose
// generation has been superseded or destroyed.
func (l *Loader) emit(ctx context.Context, ev Event) {
	select {
	case l.events <- ev:
	case <-ctx.Done():
	}
}

func (l *Loader) fail(ctx context.Context, gen uint64, kind FailureKind, status int, err error) {
	l.emit(ctx, Event{Gen: gen, Kind: EventFailed, FailKind: kind, Status: status, Err: err})
}

func (l *Loader) fetchHTTP(ctx context.Context, gen uint64, cfg Config, client *http.Client, rawURL string) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		l.fail(ctx, gen, FailNetwork, 0, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		l.fail(ctx, gen, FailNetwork, 0, err)
		return
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	origin := cfg.Origin
	if cfg.CrossOrigin {
		if origin == "" {
			origin = "null"
		}
		req.Header.Set("Origin", origin)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			l.fail(ctx, gen, FailAborted, 0, err)
			return
		}
		l.fail(ctx, gen, FailNetwork, 0, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		l.fail(ctx, gen, FailHTTPStatus, resp.StatusCode,
			fmt.Errorf("unexpected HTTP status %s", resp.Status))
		return
	}
	if cfg.CrossOrigin {
		allow := resp.Header.Get("Access-Control-Allow-Origin")
		if allow != "*" && allow != origin {
			l.fail(ctx, gen, FailCORSDenied, resp.StatusCode,
				fmt.Errorf("origin %q not allowed by %q", origin, allow))
			return
		}
	}

	l.stream(ctx, gen, resp.Body, resp.ContentLength)
}

func (l *Loader) fetchOpener(ctx context.Context, gen uint64, open func() (io.ReadCloser, int64, error)) {
	rc, size, err := open()
	if err != nil {
		l.fail(ctx, gen, FailNetwork, 0, err)
		return
	}
	defer rc.Close()
	l.stream(ctx, gen, rc, size)
}

func (l *Loader) stream(ctx context.Context, gen uint64, r io.Reader, total int64) {
	if total == 0 {
		total = -1
	}
	l.emit(ctx, Event{Gen: gen, Kind: EventStarted, Total: total})

	var buf []byte
	chunk := make([]byte, chunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			from := int64(len(buf))
			buf = append(buf, chunk[:n]...)
			l.emit(ctx, Event{
				Gen:    gen,
				Kind:   EventProgress,
				From:   from,
				To:     int64(len(buf)),
				Total:  total,
				Buffer: buf,
			})
		}
		if err == io.EOF {
			l.emit(ctx, Event{Gen: gen, Kind: EventComplete, To: int64(len(buf)), Total: int64(len(buf)), Buffer: buf})
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				l.fail(ctx, gen, FailAborted, 0, err)
				return
			}
			l.fail(ctx, gen, FailNetwork, 0, err)
			return
		}
	}
}
