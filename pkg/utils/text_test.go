package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("مرحبا بالعالم", 5); got != "مرحبا..." {
		t.Errorf("Arabic text must be cut on rune boundaries, got %q", got)
	}
	if got := Truncate("إطار", 4); got != "إطار" {
		t.Errorf("exact rune length unchanged, got %q", got)
	}
}
