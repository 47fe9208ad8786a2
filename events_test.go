package waveview

import (
	"testing"
	"time"
)

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	in := newTestInstance(t, DefaultOptions())

	got := make(chan Event, 16)
	cancel := in.Subscribe(func(ev Event) { got <- ev })

	zoom := func(level int) {
		if err := in.Zoom(level); err != nil {
			t.Fatalf("Zoom: %v", err)
		}
	}
	zoom(2)
	select {
	case ev := <-got:
		if ev.Kind != EventRedrawDone {
			t.Fatalf("event kind = %d, want redraw", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after a zoom change")
	}

	cancel()
	zoom(3)
	select {
	case ev := <-got:
		t.Fatalf("event %d delivered after cancel", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNoEventsAfterDestroyReturns(t *testing.T) {
	in, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got := make(chan Event, 64)
	in.Subscribe(func(ev Event) { got <- ev })

	path := writeTempWAV(t, 1, 8000, 2)
	if err := in.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	in.Destroy()
	for len(got) > 0 {
		<-got
	}

	select {
	case ev := <-got:
		t.Fatalf("event %d delivered after Destroy returned", ev.Kind)
	case <-time.After(200 * time.Millisecond):
	}

	if cancel := in.Subscribe(func(Event) {}); cancel == nil {
		t.Fatal("Subscribe after destroy must return a usable cancel func")
	}
}

func TestRedrawFiresOncePerCall(t *testing.T) {
	path := writeTempWAV(t, 1, 8000, 10)
	in := newTestInstance(t, DefaultOptions())
	rec := record(t, in)
	if err := in.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	rec.waitReady(t, 10*time.Second)
	for len(rec.ch) > 0 {
		<-rec.ch
	}

	if err := in.Seek(3 * time.Second); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	redraws := 0
	deadline := time.After(300 * time.Millisecond)
drain:
	for {
		select {
		case ev := <-rec.ch:
			if ev.Kind == EventRedrawDone {
				redraws++
			}
		case <-deadline:
			break drain
		}
	}
	if redraws != 1 {
		t.Fatalf("seek produced %d redraws, want exactly 1", redraws)
	}
}
