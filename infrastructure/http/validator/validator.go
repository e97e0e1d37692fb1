package validator

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	ErrInvalidEmail    = errors.New("Invalid email address")
	ErrInvalidUsername = errors.New("Username must be 3-30 characters of letters, digits or underscores")
	ErrWeakPassword    = errors.New("Password must be at least 8 characters long")
)

func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return ErrInvalidUsername
	}
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}

func ValidateRequired(value string) bool {
	return strings.TrimSpace(value) != ""
}
