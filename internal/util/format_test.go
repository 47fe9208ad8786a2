package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "0:00"},
		{d: 9 * time.Second, want: "0:09"},
		{d: 75 * time.Second, want: "1:15"},
		{d: -3 * time.Second, want: "0:00"},
		{d: 3599 * time.Second, want: "59:59"},
		{d: 3661 * time.Second, want: "1:01:01"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Fatalf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
