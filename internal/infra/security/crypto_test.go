package security

import (
	"bytes"
	"math"
	"testing"
	"time"
)

func TestCodeIssuerProducesUniqueCodes(t *testing.T) {
	issuer := NewCodeIssuer()

	first, err := issuer.IssueCode()
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}
	second, err := issuer.IssueCode()
	if err != nil {
		t.Fatalf("issue code: %v", err)
	}

	if first == "" || second == "" {
		t.Fatalf("codes must not be empty")
	}
	if first == second {
		t.Fatalf("consecutive codes must differ")
	}
}

func TestResetCodeHasherIsDeterministicAndKeyed(t *testing.T) {
	hasher := ResetCodeHasher{}

	a := hasher.HashCode("some-code")
	b := hasher.HashCode("some-code")
	c := hasher.HashCode("other-code")

	if a != b {
		t.Fatalf("same code must hash identically")
	}
	if a == c {
		t.Fatalf("different codes must hash differently")
	}
	if a == "some-code" {
		t.Fatalf("plaintext must never be the stored form")
	}
}

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(DefaultIterationPolicy())

	salt, err := hasher.NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if len(salt) != DefaultHashSize {
		t.Fatalf("salt length %d, want %d", len(salt), DefaultHashSize)
	}

	hash := hasher.Hash("Abcdef1!", salt, 1000)
	if len(hash) != DefaultHashSize {
		t.Fatalf("hash length %d, want %d", len(hash), DefaultHashSize)
	}

	if !bytes.Equal(hash, hasher.Hash("Abcdef1!", salt, 1000)) {
		t.Fatalf("same inputs must produce the same hash")
	}
	if bytes.Equal(hash, hasher.Hash("wrongpw!", salt, 1000)) {
		t.Fatalf("different passwords must produce different hashes")
	}

	otherSalt, err := hasher.NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	if bytes.Equal(hash, hasher.Hash("Abcdef1!", otherSalt, 1000)) {
		t.Fatalf("different salts must produce different hashes")
	}
}

func TestIterationPolicyRatchet(t *testing.T) {
	policy := DefaultIterationPolicy()

	at := func(year int) time.Time {
		return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	}

	if got := policy.IterationsFor(at(2014)); got != 128000 {
		t.Fatalf("epoch year: got %d, want 128000", got)
	}
	if got := policy.IterationsFor(at(2015)); got != 128000 {
		t.Fatalf("inside first period: got %d, want 128000", got)
	}
	if got := policy.IterationsFor(at(2016)); got != 256000 {
		t.Fatalf("after one period: got %d, want 256000", got)
	}
	if got := policy.IterationsFor(at(2020)); got != 1024000 {
		t.Fatalf("after three periods: got %d, want 1024000", got)
	}
	if got := policy.IterationsFor(at(2010)); got != 128000 {
		t.Fatalf("before the epoch the base applies: got %d", got)
	}
}

func TestIterationPolicyMonotonicAndClamped(t *testing.T) {
	policy := DefaultIterationPolicy()

	previous := 0
	for year := 2014; year <= 2120; year += 2 {
		got := policy.IterationsFor(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
		if got < previous {
			t.Fatalf("iterations decreased at year %d: %d < %d", year, got, previous)
		}
		previous = got
	}

	far := policy.IterationsFor(time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC))
	if far != math.MaxInt32 {
		t.Fatalf("far future must clamp at MaxInt32, got %d", far)
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals([]byte("abc"), []byte("abc")) {
		t.Fatalf("equal slices should compare equal")
	}
	if ConstantTimeEquals([]byte("abc"), []byte("abd")) {
		t.Fatalf("different slices must not compare equal")
	}
	if ConstantTimeEquals([]byte("abc"), []byte("abcd")) {
		t.Fatalf("different lengths must not compare equal")
	}
}
