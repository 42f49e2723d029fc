// Package identity normalizes caller-supplied wallet addresses into the
// canonical form used as the ledger key. Validation here is purely syntactic;
// checksum and network validation belong to the chain client.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat reports an address that fails the syntactic check.
var ErrInvalidFormat = errors.New("invalid address format")

const (
	prefix  = "0x"
	hexLen  = 40
	addrLen = len(prefix) + hexLen
)

// Canonicalize trims and validates a raw address, returning it with the
// caller's casing intact. The ledger keys entries by Key, so casing only
// affects how the address is displayed.
func Canonicalize(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if len(addr) != addrLen || !strings.HasPrefix(addr, prefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
	for _, c := range addr[len(prefix):] {
		if !isHex(c) {
			return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
		}
	}
	return addr, nil
}

// Key returns the case-insensitive comparison key for an address.
func Key(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// SameEntity reports whether two addresses refer to the same ledger entity.
func SameEntity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func isHex(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
