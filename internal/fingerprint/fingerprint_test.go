package fingerprint

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		expected     string
	}{
		{
			name:         "forwarded_single",
			forwardedFor: "1.2.3.4",
			remoteAddr:   "10.0.0.1:54321",
			expected:     "1.2.3.4",
		},
		{
			name:         "forwarded_chain_takes_first",
			forwardedFor: "1.2.3.4, 10.0.0.1, 172.16.0.1",
			remoteAddr:   "10.0.0.1:54321",
			expected:     "1.2.3.4",
		},
		{
			name:         "forwarded_with_whitespace",
			forwardedFor: "  1.2.3.4 , 10.0.0.1",
			remoteAddr:   "10.0.0.1:54321",
			expected:     "1.2.3.4",
		},
		{
			name:       "remote_addr_strips_port",
			remoteAddr: "10.0.0.1:54321",
			expected:   "10.0.0.1",
		},
		{
			name:       "remote_addr_ipv6",
			remoteAddr: "[2001:db8::1]:443",
			expected:   "2001:db8::1",
		},
		{
			name:       "remote_addr_without_port",
			remoteAddr: "10.0.0.1",
			expected:   "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.forwardedFor, tt.remoteAddr)
			if got != tt.expected {
				t.Errorf("expected %q, but got %q", tt.expected, got)
			}
		})
	}
}

func TestHashDeterministic(t *testing.T) {
	a := Hash("1.2.3.4")
	b := Hash("1.2.3.4")
	if a != b {
		t.Errorf("expected identical fingerprints, but got %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex characters, but got %d", len(a))
	}

	other := Hash("1.2.3.5")
	if other == a {
		t.Error("expected different addresses to produce different fingerprints")
	}
}

func TestHashMatchesNormalizedAddress(t *testing.T) {
	direct := Hash(Normalize("", "1.2.3.4:9999"))
	forwarded := Hash(Normalize("1.2.3.4, 10.0.0.1", "10.0.0.1:54321"))
	if direct != forwarded {
		t.Error("expected the same client address to fingerprint identically regardless of transport path")
	}
}
