package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = validator.New()
	rollRe   = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)
)

// ValidateRoll checks a roll number: 1-32 letters, digits, dot, dash or underscore.
func ValidateRoll(roll string) error {
	if roll == "" {
		return fmt.Errorf("roll is empty")
	}
	if !rollRe.MatchString(roll) {
		return fmt.Errorf("invalid roll %q", roll)
	}
	return nil
}

// ValidateContact checks that contact is an email address.
func ValidateContact(contact string) error {
	if err := validate.Var(contact, "required,email,max=254"); err != nil {
		return fmt.Errorf("invalid contact address: %w", err)
	}
	return nil
}

// ValidatePassword rejects empty passwords and those bcrypt would truncate.
func ValidatePassword(pwd string) error {
	if pwd == "" {
		return fmt.Errorf("password is empty")
	}
	if len(pwd) > 72 {
		return fmt.Errorf("password too long, max 72 bytes")
	}
	return nil
}

// ValidateCandidate checks a candidate name (no blank names, at most 64 characters).
func ValidateCandidate(candidate string) error {
	if strings.TrimSpace(candidate) == "" {
		return fmt.Errorf("candidate is empty")
	}
	if len([]rune(candidate)) > 64 {
		return fmt.Errorf("candidate too long, max 64 characters")
	}
	return nil
}
