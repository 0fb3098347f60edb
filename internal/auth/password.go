package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds in bytes. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordBytes = 8
	MaxPasswordBytes = 72
)

// HashPassword hashes password with bcrypt. Costs outside bcrypt's range fall
// back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches hashed. A malformed hash is an
// error, a plain mismatch is not.
func CheckPassword(hashed, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
