package chain

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ErrInvalidAddress reports an address that fails syntactic or checksum
// validation.
var ErrInvalidAddress = errors.New("invalid address")

// IsValidAddress reports whether s is a syntactically valid hex address.
// A mixed-case address must additionally carry a correct EIP-55 checksum.
func IsValidAddress(s string) bool {
	_, err := ValidateAddress(s)
	return err == nil
}

// ValidateAddress checks syntax and, for mixed-case input, the EIP-55
// checksum. It returns the checksummed form of the address.
func ValidateAddress(s string) (string, error) {
	addr := strings.TrimSpace(s)
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	body := addr[2:]
	for _, c := range body {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
	}

	checksummed := ChecksumAddress(addr)
	lower := strings.ToLower(body)
	upper := strings.ToUpper(body)
	if body != lower && body != upper && addr != checksummed {
		return "", fmt.Errorf("%w: checksum mismatch in %q", ErrInvalidAddress, s)
	}
	return checksummed, nil
}

// ChecksumAddress returns the EIP-55 checksummed form of a hex address. The
// input must already be syntactically valid.
func ChecksumAddress(addr string) string {
	body := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(body))
	hash := hasher.Sum(nil)

	out := make([]byte, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2]
			if i%2 == 0 {
				nibble >>= 4
			} else {
				nibble &= 0x0f
			}
			if nibble >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out)
}
