package tui

import (
	"strings"
	"testing"
)

func TestLayoutModeBreakpoints(t *testing.T) {
	cases := []struct {
		width int
		want  string
	}{
		{30, LayoutModeSingle},
		{49, LayoutModeSingle},
		{50, LayoutModeStacked},
		{79, LayoutModeStacked},
		{80, LayoutModeDual},
		{200, LayoutModeDual},
	}
	for _, tc := range cases {
		if got := layoutMode(tc.width); got != tc.want {
			t.Fatalf("layoutMode(%d) = %s, want %s", tc.width, got, tc.want)
		}
	}
}

func TestClampViewOffsetFollowsCursor(t *testing.T) {
	offset := clampViewOffset(0, 0, 5, 20)
	if offset != 0 {
		t.Fatalf("initial offset = %d", offset)
	}
	offset = clampViewOffset(10, offset, 5, 20)
	if 10 < offset || 10 >= offset+5 {
		t.Fatalf("cursor 10 not visible at offset %d", offset)
	}
	offset = clampViewOffset(2, offset, 5, 20)
	if offset != 2 {
		t.Fatalf("scrolling up should pin cursor to top, offset = %d", offset)
	}
}

func TestClampViewOffsetBounds(t *testing.T) {
	if got := clampViewOffset(0, 5, 10, 0); got != 0 {
		t.Fatalf("empty list offset = %d", got)
	}
	if got := clampViewOffset(3, 10, 5, 4); got != 0 {
		t.Fatalf("short list offset = %d", got)
	}
}

func TestEnsureExactHeight(t *testing.T) {
	got := ensureExactHeight("a\nb", 4)
	if len(strings.Split(got, "\n")) != 4 {
		t.Fatalf("padded = %q", got)
	}
	got = ensureExactHeight("a\nb\nc\nd\ne", 2)
	if got != "a\nb" {
		t.Fatalf("truncated = %q", got)
	}
}

func TestPadBodyToHeight(t *testing.T) {
	got := padBodyToHeight("x", 3)
	if len(strings.Split(got, "\n")) != 3 {
		t.Fatalf("padded = %q", got)
	}
}
