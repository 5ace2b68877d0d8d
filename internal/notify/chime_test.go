package notify

import (
	"bytes"
	"testing"

	"messagemaster/internal/config"
)

func TestTerminalBellWritesBEL(t *testing.T) {
	var buf bytes.Buffer
	b := NewTerminalBell(&buf)
	b.Ring(3)
	b.Ring(4)
	if buf.String() != "\a\a" {
		t.Fatalf("expected two bells, got %q", buf.String())
	}
}

func TestNewChimeSelectsSink(t *testing.T) {
	if _, ok := NewChime(config.Config{AlertChime: "none"}).(Silent); !ok {
		t.Fatalf("expected silent chime")
	}
	if _, ok := NewChime(config.Config{AlertChime: "bell"}).(*TerminalBell); !ok {
		t.Fatalf("expected terminal bell")
	}
	if _, ok := NewChime(config.Config{}).(LogChime); !ok {
		t.Fatalf("expected log chime by default")
	}
}

func TestFuncChime(t *testing.T) {
	got := 0
	Func(func(n int) { got = n }).Ring(7)
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}
