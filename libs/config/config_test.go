package config

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "")
	d, err := Duration("TEST_DURATION", 3*time.Second)
	if err != nil || d != 3*time.Second {
		t.Fatalf("expected fallback, got %v %v", d, err)
	}

	t.Setenv("TEST_DURATION", "15")
	if d, _ = Duration("TEST_DURATION", 0); d != 15*time.Second {
		t.Fatalf("expected bare integer as seconds, got %v", d)
	}

	t.Setenv("TEST_DURATION", "250ms")
	if d, _ = Duration("TEST_DURATION", 0); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", d)
	}

	t.Setenv("TEST_DURATION", "soon")
	if _, err = Duration("TEST_DURATION", 0); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPortAndList(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected out of range port to fail")
	}

	t.Setenv("TEST_LIST", " a, ,b ")
	got := List("TEST_LIST")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list: %#v", got)
	}

	t.Setenv("TEST_BOOL", "off")
	if Bool("TEST_BOOL", true) {
		t.Fatal("expected off to be false")
	}
}
