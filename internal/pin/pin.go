// Package pin hashes and verifies the caregiver PIN.
package pin

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinLength = 4
	MaxLength = 8
)

var (
	// ErrMismatch means the supplied PIN does not match the stored hash.
	ErrMismatch = errors.New("incorrect PIN")
	// ErrRequired means a PIN is set and none was supplied.
	ErrRequired = errors.New("PIN required")
)

// Cost is the bcrypt work factor; tests lower it.
var Cost = bcrypt.DefaultCost

// Validate checks that pin is 4 to 8 ASCII digits.
func Validate(pin string) error {
	if len(pin) < MinLength || len(pin) > MaxLength {
		return fmt.Errorf("PIN must be %d-%d digits", MinLength, MaxLength)
	}
	for _, r := range pin {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return fmt.Errorf("PIN must contain digits only")
		}
	}
	return nil
}

// Hash validates pin and returns its bcrypt hash.
func Hash(pin string) (string, error) {
	if err := Validate(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), Cost)
	if err != nil {
		return "", fmt.Errorf("hash PIN: %w", err)
	}
	return string(hash), nil
}

// Verify checks pin against hash. An empty hash means no PIN is set and always passes.
func Verify(hash string, pin string) error {
	if hash == "" {
		return nil
	}
	if pin == "" {
		return ErrRequired
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("verify PIN: %w", err)
	}
	return nil
}
