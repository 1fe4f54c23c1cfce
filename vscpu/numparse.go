package vscpu

import (
	"fmt"
	"strconv"
	"strings"
)

// parseNumber accepts a decimal digit string or a 0x-prefixed hexadecimal
// digit string and returns the unsigned value. Anything else is rejected.
//
// Grounded on GVM's inputArgToUint32 (vm/compile.go), narrowed to the
// unsigned decimal/hex-only grammar VSCPU source actually uses — GVM's
// version also handles floats and quoted characters, which have no
// equivalent in VSCPU source.
func parseNumber(s string) (uint32, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty", errBadNumber)
	}

	base := 10
	digits := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		digits = s[2:]
		if digits == "" {
			return 0, fmt.Errorf("%w: %q", errBadNumber, s)
		}
	}

	v, err := strconv.ParseUint(digits, base, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", errBadNumber, s, err)
	}
	return uint32(v), nil
}

// isNumber reports whether s parses cleanly via parseNumber.
func isNumber(s string) bool {
	_, err := parseNumber(s)
	return err == nil
}
