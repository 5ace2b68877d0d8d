package rate

import (
	"testing"
	"time"
)

func TestAllowFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := NewLimiter()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("login:1.2.3.4", 3, time.Minute); !ok {
			t.Fatalf("hit %d should pass", i+1)
		}
	}
	ok, retry := l.Allow("login:1.2.3.4", 3, time.Minute)
	if ok {
		t.Fatalf("fourth hit should be limited")
	}
	if retry != time.Minute {
		t.Fatalf("unexpected retry %s", retry)
	}
	if ok, _ := l.Allow("login:5.6.7.8", 3, time.Minute); !ok {
		t.Fatalf("other keys keep their own window")
	}

	now = now.Add(time.Minute)
	if ok, _ := l.Allow("login:1.2.3.4", 3, time.Minute); !ok {
		t.Fatalf("expected window to reopen")
	}
}

func TestResetClearsKey(t *testing.T) {
	l := NewLimiter()
	l.Allow("k", 1, time.Hour)
	if ok, _ := l.Allow("k", 1, time.Hour); ok {
		t.Fatalf("expected limit")
	}
	l.Reset("k")
	if ok, _ := l.Allow("k", 1, time.Hour); !ok {
		t.Fatalf("expected reset to clear the window")
	}
}
