package loader

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// collect drains events of one generation until a terminal event arrives.
func collect(t *testing.T, events <-chan Event, gen uint64) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Gen != gen {
				continue
			}
			got = append(got, ev)
			if ev.Kind == EventComplete || ev.Kind == EventFailed {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for terminal event, got %d events", len(got))
		}
	}
}

func TestLoadLocalFileEventOrdering(t *testing.T) {
	payload := bytes.Repeat([]byte("waveview"), 10000)
	path := filepath.Join(t.TempDir(), "clip.bin")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	events := make(chan Event, 64)
	l := New(Config{}, events)
	gen := l.Load(path)

	got := collect(t, events, gen)
	if got[0].Kind != EventStarted {
		t.Fatalf("first event kind = %d, want EventStarted", got[0].Kind)
	}
	if got[0].Total != int64(len(payload)) {
		t.Fatalf("started total = %d, want %d", got[0].Total, len(payload))
	}

	last := got[len(got)-1]
	if last.Kind != EventComplete {
		t.Fatalf("terminal event kind = %d, want EventComplete", last.Kind)
	}
	if !bytes.Equal(last.Buffer, payload) {
		t.Fatal("completed buffer does not match the source bytes")
	}

	prevTo := int64(0)
	for _, ev := range got[1 : len(got)-1] {
		if ev.Kind != EventProgress {
			t.Fatalf("mid-stream event kind = %d, want EventProgress", ev.Kind)
		}
		if ev.From != prevTo {
			t.Fatalf("progress range starts at %d, want %d", ev.From, prevTo)
		}
		prevTo = ev.To
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	events := make(chan Event, 8)
	l := New(Config{}, events)
	gen := l.Load(filepath.Join(t.TempDir(), "absent.wav"))

	got := collect(t, events, gen)
	last := got[len(got)-1]
	if last.Kind != EventFailed || last.FailKind != FailNetwork {
		t.Fatalf("got kind %d / %q, want EventFailed / network", last.Kind, last.FailKind)
	}
}

func TestLoadHTTPStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	events := make(chan Event, 8)
	l := New(Config{}, events)
	gen := l.Load(srv.URL)

	got := collect(t, events, gen)
	last := got[len(got)-1]
	if last.Kind != EventFailed || last.FailKind != FailHTTPStatus {
		t.Fatalf("got kind %d / %q, want EventFailed / http-status", last.Kind, last.FailKind)
	}
	if last.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", last.Status)
	}
}

func TestLoadHTTPSendsConfiguredHeaders(t *testing.T) {
	payload := []byte("streamed media bytes")
	var seenAuth, seenOrigin string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		seenOrigin = r.Header.Get("Origin")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write(payload)
	}))
	defer srv.Close()

	events := make(chan Event, 16)
	l := New(Config{
		CrossOrigin: true,
		Headers:     map[string]string{"Authorization": "Bearer token123"},
	}, events)
	gen := l.Load(srv.URL)

	got := collect(t, events, gen)
	last := got[len(got)-1]
	if last.Kind != EventComplete {
		t.Fatalf("terminal event kind = %d, want EventComplete (err: %v)", last.Kind, last.Err)
	}
	if !bytes.Equal(last.Buffer, payload) {
		t.Fatal("completed buffer does not match served payload")
	}
	if seenAuth != "Bearer token123" {
		t.Fatalf("server saw Authorization %q", seenAuth)
	}
	if seenOrigin != "null" {
		t.Fatalf("server saw Origin %q, want \"null\"", seenOrigin)
	}
}

func TestCrossOriginDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Access-Control-Allow-Origin header.
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	events := make(chan Event, 8)
	l := New(Config{CrossOrigin: true}, events)
	gen := l.Load(srv.URL)

	got := collect(t, events, gen)
	last := got[len(got)-1]
	if last.Kind != EventFailed || last.FailKind != FailCORSDenied {
		t.Fatalf("got kind %d / %q, want EventFailed / cors-denied", last.Kind, last.FailKind)
	}
}

func TestSecondLoadBumpsGeneration(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("head"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
		w.Write([]byte("tail"))
	}))
	defer srv.Close()
	defer close(release)

	events := make(chan Event, 64)
	l := New(Config{}, events)
	first := l.Load(srv.URL)
	second := l.Load(srv.URL + "?again=1")
	if second <= first {
		t.Fatalf("second generation %d not greater than first %d", second, first)
	}
	if l.Gen() != second {
		t.Fatalf("Gen() = %d, want %d", l.Gen(), second)
	}
}

func TestCancelSilencesRetrieval(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("head"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	events := make(chan Event, 64)
	l := New(Config{}, events)
	gen := l.Load(srv.URL)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the request")
	}

	next := l.Cancel()
	if next <= gen {
		t.Fatalf("Cancel generation %d not greater than %d", next, gen)
	}

	// Any residual event from the cancelled retrieval must carry the old
	// generation so the consumer can discard it.
	drain := time.After(500 * time.Millisecond)
	for {
		select {
		case ev := <-events:
			if ev.Gen != gen {
				t.Fatalf("event carries generation %d, want %d", ev.Gen, gen)
			}
		case <-drain:
			return
		}
	}
}
