// Copyright (c) 2026 Redisboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// # Password Policy

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePasswordPolicy checks a candidate password against the complexity policy.
//
// # Rules
//
//   - At least [MinPasswordLength] characters.
//   - At least one letter and one digit.
//
// Returns a human-readable reason string when the password is rejected.
func ValidatePasswordPolicy(candidate string) (ok bool, reason string) {
	if len(candidate) < MinPasswordLength {
		return false, fmt.Sprintf("Must be at least %d characters", MinPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range candidate {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return false, "Must contain at least one letter and one digit"
	}

	return true, ""
}
