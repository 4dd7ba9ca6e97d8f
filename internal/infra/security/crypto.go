package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/arklim/social-platform-membership/internal/core/domain"
)

const (
	// DefaultHashSize is the byte length of password hashes, salts, and codes.
	DefaultHashSize = 20

	// resetCodeKey is a fixed, non-secret domain-separation key: the stored
	// form of a reset code is keyed so a leaked table cannot be replayed as
	// plaintext codes. The code's own entropy carries the security.
	resetCodeKey = "MembershipResetCodeKey"
)

// GenerateRandomBytes returns n cryptographically secure random bytes.
func GenerateRandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("length must be positive")
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate random bytes: %w", err)
	}

	return buf, nil
}

// CodeIssuer mints opaque verification/reset codes as base64 URL-safe strings.
type CodeIssuer struct {
	size int
}

// NewCodeIssuer constructs an issuer producing codes of the default size.
func NewCodeIssuer() *CodeIssuer {
	return &CodeIssuer{size: DefaultHashSize}
}

// IssueCode returns a fresh random code.
func (c *CodeIssuer) IssueCode() (string, error) {
	size := c.size
	if size <= 0 {
		size = DefaultHashSize
	}

	buf, err := GenerateRandomBytes(size)
	if err != nil {
		return "", fmt.Errorf("issue code: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ResetCodeHasher computes the stored form of reset codes.
type ResetCodeHasher struct{}

// HashCode returns base64 of a single-round PBKDF2 of the code under the
// fixed domain-separation key.
func (ResetCodeHasher) HashCode(code string) string {
	sum := pbkdf2.Key([]byte(code), []byte(resetCodeKey), 1, DefaultHashSize, sha256.New)
	return base64.StdEncoding.EncodeToString(sum)
}

// PasswordHasher derives PBKDF2 password hashes with a time-ratcheted work factor.
type PasswordHasher struct {
	policy   IterationPolicy
	hashSize int
	saltSize int
}

// NewPasswordHasher constructs a hasher governed by the given iteration policy.
func NewPasswordHasher(policy IterationPolicy) *PasswordHasher {
	return &PasswordHasher{
		policy:   policy,
		hashSize: DefaultHashSize,
		saltSize: DefaultHashSize,
	}
}

// NewSalt returns a fresh random salt.
func (h *PasswordHasher) NewSalt() ([]byte, error) {
	salt, err := GenerateRandomBytes(h.saltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// Hash derives the password hash with the stored salt and work factor.
func (h *PasswordHasher) Hash(password string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = 1
	}
	return pbkdf2.Key([]byte(password), salt, iterations, h.hashSize, sha256.New)
}

// Iterations returns the work factor for hashes written at the given time.
func (h *PasswordHasher) Iterations(asOf time.Time) int {
	return h.policy.IterationsFor(asOf)
}

// ConstantTimeEquals compares two byte slices without leaking a timing signal.
func ConstantTimeEquals(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

var (
	_ domain.CodeIssuer     = (*CodeIssuer)(nil)
	_ domain.CodeHasher     = ResetCodeHasher{}
	_ domain.PasswordHasher = (*PasswordHasher)(nil)
)
