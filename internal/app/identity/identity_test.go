package identity

import (
	"errors"
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	addr := "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

	got, err := Canonicalize("  " + addr + " ")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if got != addr {
		t.Fatalf("casing not preserved: %s", got)
	}
}

func TestCanonicalizeRejects(t *testing.T) {
	cases := []string{
		"",
		"not_connected",
		"0x123",
		"abcdef0123456789abcdef0123456789abcdef0101",
		"0xZZcdef0123456789abcdef0123456789abcdef01",
		"0xabcdef0123456789abcdef0123456789abcdef0", // 41 chars
	}
	for _, raw := range cases {
		if _, err := Canonicalize(raw); !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("expected ErrInvalidFormat for %q, got %v", raw, err)
		}
	}
}

func TestKeyAndSameEntity(t *testing.T) {
	upper := "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"
	lower := strings.ToLower(upper)

	if Key(upper) != lower {
		t.Fatalf("key not lower-cased: %s", Key(upper))
	}
	if !SameEntity(upper, lower) {
		t.Fatal("case-insensitive identities should match")
	}
	if SameEntity(upper, "0xABCDEF0123456789ABCDEF0123456789ABCDEF02") {
		t.Fatal("distinct addresses should not match")
	}
}
