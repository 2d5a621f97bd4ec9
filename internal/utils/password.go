package utils

import "golang.org/x/crypto/bcrypt"

// MinBcryptCost is the floor applied to the configured cost. Costs below 12
// are too cheap for password storage.
const MinBcryptCost = 12

// maxBcryptInput is bcrypt's hard key-material limit. Passwords longer than
// this are truncated before hashing; the registration policy allows up to
// 128 characters, so both Hash and Verify must apply the same truncation or
// long passwords could never be verified.
const maxBcryptInput = 72

func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxBcryptInput {
		b = b[:maxBcryptInput]
	}
	return b
}

// HashPassword returns a bcrypt hash using the given cost. Costs lower than
// MinBcryptCost are raised to it.
func HashPassword(plain string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password. A
// malformed hash yields false, never an error or a panic.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)) == nil
}
