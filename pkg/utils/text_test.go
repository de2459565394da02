package utils

import (
	"testing"
	"unicode/utf8"
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
}

func TestTruncate_multibyte(t *testing.T) {
	s := "Überprüfung des Hydrauliksystems – 液压泄漏"
	for n := 1; n < utf8.RuneCountInString(s); n++ {
		got := Truncate(s, n)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%d) produced invalid UTF-8: %q", n, got)
		}
		if c := utf8.RuneCountInString(got); c != n+3 {
			t.Fatalf("Truncate(%d) kept %d runes, want %d", n, c, n+3)
		}
	}
	if got := Truncate("液压泄漏", 2); got != "液压..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("液压泄漏", 4); got != "液压泄漏" {
		t.Errorf("exact length should be unchanged, got %q", got)
	}
}
