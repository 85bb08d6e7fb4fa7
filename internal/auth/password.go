// Password hashing for recipebox accounts.
//
// STORED FORMAT:
// users.password_hash holds the full bcrypt output, salt and cost included:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^
//	    cost (2^12 rounds)
//
// Because the cost travels with the hash, BCRYPT_COST can be raised later
// and old hashes still verify; only new or changed passwords pick up the
// new cost.
//
// LIMITS:
// Registration and password change accept 6 to 72 bytes. bcrypt reads at
// most 72 bytes, so Hash refuses anything longer instead of letting two
// different passwords share a prefix-equal hash.

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
//
// Cost 12 takes roughly 250ms on a modern server: negligible for a login,
// brutal for somebody trying billions of guesses against a stolen table.
const DefaultCost = 12

// MinPasswordLength is the shortest password accepted at registration and
// on password change.
const MinPasswordLength = 6

// MaxPasswordBytes is bcrypt's input limit. Longer inputs would be silently
// truncated, so they are rejected instead.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests: using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int

	// dummyHash is compared against when a login names an unknown user.
	// The constructor builds it, so every unknown-user login costs one
	// compare, the same as a wrong password.
	dummyHash []byte
}

const dummyPassword = "recipebox-dummy-password"

func newPasswordService(cost int) *PasswordService {
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		// Only an invalid cost gets here; callers have ruled that out.
		panic(fmt.Sprintf("auth: building dummy hash: %v", err))
	}
	return &PasswordService{cost: cost, dummyHash: dummy}
}

// NewPasswordService creates a PasswordService with the given cost.
// A cost outside bcrypt's range falls back to DefaultCost.
func NewPasswordService(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return newPasswordService(cost)
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost,
// normally bcrypt.MinCost (4). Use this in tests in other packages to avoid
// the ~250ms overhead of cost 12 per hashing operation.
//
// Do NOT use in production. Cost 4 is far too weak.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordService(cost)
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained string like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// It includes the salt and the cost, so it is stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
// It returns ErrPasswordMismatch for a wrong password and a different error
// if the stored hash is malformed.
//
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// BurnCompare performs a throwaway comparison at the service's cost. Call it
// on the "unknown user" login path.
func (p *PasswordService) BurnCompare(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
}
