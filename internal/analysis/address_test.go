package analysis

import "testing"

func TestGenerateAddress_Shape(t *testing.T) {
	addr := GenerateAddress("01OWNER")
	if len(addr) != AddressLength {
		t.Fatalf("len = %d, want %d", len(addr), AddressLength)
	}
	if !ValidAddress(addr) {
		t.Errorf("ValidAddress(%q) = false", addr)
	}
}

func TestGenerateAddress_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		addr := GenerateAddress("same-owner")
		if seen[addr] {
			t.Fatalf("duplicate address after %d draws: %s", i, addr)
		}
		seen[addr] = true
	}
}

func TestValidAddress(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"abcdefghijklmnopqrstuvwx", true},
		{"234567abcdefghijklmnopqr", true},
		{"ABCDEFGHIJKLMNOPQRSTUVWX", false},
		{"abcdefghijklmnopqrstuvw1", false},
		{"short", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidAddress(tt.in); got != tt.want {
			t.Errorf("ValidAddress(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
