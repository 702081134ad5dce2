package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// NormalizeName normalizes a name by trimming leading/trailing whitespace
// and collapsing multiple internal spaces into single spaces.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.Join(strings.Fields(name), " ")
}

// GenerateVerificationCode returns a random 5-digit numeric code,
// zero-padded.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()), nil
}

// ValidDate reports whether s is a YYYY-MM-DD date string. Appointment and
// prescription dates travel in this format.
func ValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
