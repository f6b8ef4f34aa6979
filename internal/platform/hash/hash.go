// Package hash wraps bcrypt for credential storage and verification.
package hash

import "golang.org/x/crypto/bcrypt"

const Cost = 12

// Hash computes a bcrypt hash of the password.
func Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether the password matches the stored hash. A mismatch is
// never an error.
func Verify(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
