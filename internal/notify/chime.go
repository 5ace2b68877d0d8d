package notify

import (
	"io"
	"log"
	"os"
	"sync"

	"messagemaster/internal/config"
)

// Chime is the audible signal the alert poller raises when unread items grow.
type Chime interface {
	Ring(unread int)
}

type LogChime struct{}

func (LogChime) Ring(unread int) {
	log.Printf("alert chime unread=%d", unread)
}

// TerminalBell writes BEL to w, the controlling terminal in `console watch`.
type TerminalBell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalBell(w io.Writer) *TerminalBell {
	if w == nil {
		w = os.Stdout
	}
	return &TerminalBell{w: w}
}

func (b *TerminalBell) Ring(unread int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := io.WriteString(b.w, "\a"); err != nil {
		log.Printf("alert chime write failed error=%q", err.Error())
	}
	log.Printf("alert chime unread=%d", unread)
}

type Silent struct{}

func (Silent) Ring(int) {}

// Func adapts a plain function, mostly for tests.
type Func func(unread int)

func (f Func) Ring(unread int) { f(unread) }

func NewChime(cfg config.Config) Chime {
	switch cfg.AlertChime {
	case "bell":
		return NewTerminalBell(os.Stdout)
	case "none":
		return Silent{}
	default:
		return LogChime{}
	}
}
