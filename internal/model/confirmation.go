package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ConfirmationPrefix starts every confirmation code.
const ConfirmationPrefix = "CSN"

// FormatConfirmationCode renders n as CSN followed by at least three
// digits. Values above 999 simply grow wider (CSN1000).
func FormatConfirmationCode(n int) string {
	return fmt.Sprintf("%s%03d", ConfirmationPrefix, n)
}

// ParseConfirmationCode extracts the numeric suffix of a code. ok is
// false when the prefix is missing or the suffix is not all digits.
func ParseConfirmationCode(code string) (int, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(code), ConfirmationPrefix)
	if !found || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextConfirmationCode returns the code following the highest issued
// one. An empty or unparsable maximum starts the sequence at CSN001.
func NextConfirmationCode(maxCode string) string {
	n, ok := ParseConfirmationCode(maxCode)
	if !ok {
		n = 0
	}
	return FormatConfirmationCode(n + 1)
}
