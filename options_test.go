package waveview

import (
	"errors"
	"testing"
)

func TestValidationCollectsEveryViolation(t *testing.T) {
	opts := DefaultOptions()
	opts.Width = 0
	opts.PixelDensity = -1
	opts.BucketSeconds = 0
	opts.WaveColor = "33ccff"

	_, err := New(opts)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("New error = %T, want *ConfigError", err)
	}
	want := map[string]bool{
		"Width": false, "PixelDensity": false, "BucketSeconds": false, "WaveColor": false,
	}
	for _, v := range cerr.Violations {
		if _, ok := want[v.Field]; !ok {
			t.Fatalf("unexpected violation for field %q", v.Field)
		}
		want[v.Field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("missing violation for field %q", field)
		}
	}
}

func TestSetOptionsCommitsAtomically(t *testing.T) {
	in := newTestInstance(t, DefaultOptions())

	width := 1024
	bad := "nope"
	err := in.SetOptions(OptionsPatch{Width: &width, CursorColor: &bad})
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("SetOptions error = %T, want *ConfigError", err)
	}
	if got := in.Options().Width; got != 800 {
		t.Fatalf("width changed to %d despite a rejected patch", got)
	}
}

func TestSetOptionsMergesPartialPatch(t *testing.T) {
	in := newTestInstance(t, DefaultOptions())
	rec := record(t, in)

	width := 1024
	grid := false
	if err := in.SetOptions(OptionsPatch{Width: &width, Grid: &grid}); err != nil {
		t.Fatalf("SetOptions: %v", err)
	}
	rec.wait(t, EventConfigChanged)

	got := in.Options()
	if got.Width != 1024 {
		t.Fatalf("width = %d, want 1024", got.Width)
	}
	if got.Grid {
		t.Fatal("grid should be off after the patch")
	}
	if got.Height != 240 {
		t.Fatalf("height = %d, untouched fields must keep their value", got.Height)
	}
}

func TestOptionsCopyIsIsolated(t *testing.T) {
	opts := DefaultOptions()
	opts.Headers = map[string]string{"Authorization": "Bearer x"}
	in := newTestInstance(t, opts)

	got := in.Options()
	got.Headers["Authorization"] = "tampered"

	if in.Options().Headers["Authorization"] != "Bearer x" {
		t.Fatal("mutating a returned copy leaked into committed options")
	}
}
