package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const passwordCost = 10

// PasswordHash returns a bcrypt hash of password. Values that already are bcrypt hashes
// are returned unchanged, so ADMIN_PASSWORD may hold either form.
func PasswordHash(password string) ([]byte, error) {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(password, prefix) {
			return []byte(password), nil
		}
	}
	return bcrypt.GenerateFromPassword([]byte(password), passwordCost)
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
