// Package common provides shared utilities used across CLI and server packages.
package common

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidClaimKey is returned when a claim key doesn't match the expected format.
var ErrInvalidClaimKey = errors.New("invalid claim key format (expected ORG-NUMBER)")

// claimKeyRegex validates claim keys like "ACME-42" or "LOCAL9-1"
var claimKeyRegex = regexp.MustCompile(`^([A-Z][A-Z0-9]*)-(\d+)$`)

// ParseClaimKey parses a claim key like "ACME-42" into organization key and number.
// It also accepts just a number (e.g., "42") for use with a default organization.
// Returns ErrInvalidClaimKey if the format is invalid or number is not positive.
func ParseClaimKey(key string) (orgKey string, number int, err error) {
	key = strings.ToUpper(strings.TrimSpace(key))

	// Pattern: ORG-NUMBER (e.g., "ACME-42")
	matches := claimKeyRegex.FindStringSubmatch(key)
	if matches != nil {
		orgKey = matches[1]
		number, _ = strconv.Atoi(matches[2])
		return orgKey, number, nil
	}

	// Just a positive number (e.g., "42")
	if n, err := strconv.Atoi(key); err == nil && n > 0 {
		return "", n, nil
	}

	return "", 0, ErrInvalidClaimKey
}
