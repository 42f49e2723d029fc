package chain

import (
	"strings"
	"testing"
)

// Checksum vectors from EIP-55.
var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestChecksumAddress(t *testing.T) {
	for _, addr := range checksummed {
		if got := ChecksumAddress(strings.ToLower(addr)); got != addr {
			t.Fatalf("checksum of %s: got %s", strings.ToLower(addr), got)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	for _, addr := range checksummed {
		got, err := ValidateAddress(strings.ToLower(addr))
		if err != nil {
			t.Fatalf("lower-case form rejected: %v", err)
		}
		if got != addr {
			t.Fatalf("expected checksum form %s, got %s", addr, got)
		}

		if _, err := ValidateAddress(addr); err != nil {
			t.Fatalf("checksummed form rejected: %v", err)
		}
	}
}

func TestValidateAddressRejects(t *testing.T) {
	bad := []string{
		"",
		"0x123",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaeg",
		// Correct length but wrong mixed-case checksum.
		"0x5Aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}
	for _, addr := range bad {
		if _, err := ValidateAddress(addr); err == nil {
			t.Fatalf("expected rejection of %q", addr)
		}
	}
}
