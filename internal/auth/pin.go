package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPin hashes a login pin with bcrypt
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePin reports whether pin matches hash
func ComparePin(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
