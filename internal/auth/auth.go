package auth

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Registration form limits.
const (
	MinUsernameLen = 4
	MaxUsernameLen = 80
	MinPasswordLen = 6
)

// HashPassword returns a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSessionToken returns a new random opaque session token.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidateRegistration checks registration form input and returns a map of
// field name to error message. An empty map means the input is valid.
func ValidateRegistration(username, password, confirm string) map[string]string {
	errs := make(map[string]string)

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		errs["username"] = "Username is required"
	case len(username) < MinUsernameLen || len(username) > MaxUsernameLen:
		errs["username"] = "Username must be between 4 and 80 characters"
	}

	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < MinPasswordLen:
		errs["password"] = "Password must be at least 6 characters"
	}

	if _, ok := errs["password"]; !ok && confirm != password {
		errs["confirm_password"] = "Passwords do not match"
	}

	return errs
}
