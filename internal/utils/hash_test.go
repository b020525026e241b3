package utils

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte("Carro,Radio\n1,6000\n"))
	b := Fingerprint([]byte("Carro,Radio\n1,6000\n"))
	if a != b {
		t.Fatalf("expected identical fingerprints")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
	if a == Fingerprint([]byte("Carro,Radio\n1,6001\n")) {
		t.Fatalf("expected different content to change the fingerprint")
	}
}
