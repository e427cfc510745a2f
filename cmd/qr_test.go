package cmd

import (
	"strings"
	"testing"
)

func TestHalfBlocks(t *testing.T) {
	bitmap := [][]bool{
		{true, true, false, false},
		{true, false, true, false},
		{false, true, false, false},
	}

	got := halfBlocks(bitmap)
	want := "█▀▄ \n ▀  \n"
	if got != want {
		t.Errorf("halfBlocks() = %q, want %q", got, want)
	}
}

func TestRenderQR(t *testing.T) {
	out, err := renderQR("http://nas.local:8080/api/folder.m3u8?path=jazz")
	if err != nil {
		t.Fatalf("renderQR() error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("expected a multi-line code, got %d lines", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Errorf("line %d has %d columns, want %d", i, n, width)
		}
	}
}
